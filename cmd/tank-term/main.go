//go:build !rp2040

// Command tank-term attaches the host terminal to the Pico's console UART
// through a USB serial adapter.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

var (
	port = flag.String("port", "", "serial device, e.g. /dev/ttyUSB0")
	baud = flag.Int("baud", 115200, "baud rate; must match the board console")
	list = flag.Bool("list", false, "list serial ports and exit")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			glog.Exitf("list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	if *port == "" {
		glog.Exit("-port is required (try -list)")
	}

	p, err := serial.Open(*port, &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		glog.Exitf("open %s: %v", *port, err)
	}
	defer p.Close()
	glog.Infof("attached to %s at %d baud", *port, *baud)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := attach(ctx, p, os.Stdin, os.Stdout); err != nil {
		glog.Errorf("%v", err)
	}
}

// attach copies board output to out and sends each line of in to the board.
// It returns when either side closes or ctx ends.
func attach(ctx context.Context, board io.ReadWriter, in io.Reader, out io.Writer) error {
	errc := make(chan error, 2)
	go func() {
		_, err := io.Copy(out, board)
		errc <- err
	}()
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if _, err := io.WriteString(board, sc.Text()+"\r\n"); err != nil {
				errc <- err
				return
			}
		}
		errc <- sc.Err()
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}
