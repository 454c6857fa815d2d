// Package console is a line-oriented operator shell over the HAL bus:
// read tanks on demand, show and reset the wire statistics.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/shlex"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/services/hal"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

const defaultTimeout = 2 * time.Second

// Tank is a tank_level capability the console can read.
type Tank struct {
	Domain string
	Name   string
	Addr   int
}

// Wire is a seelevel_stats capability, one per select/response pair.
type Wire struct {
	Domain string
	Name   string
}

type Console struct {
	conn    *bus.Connection
	tanks   []Tank
	wires   []Wire
	out     io.Writer
	Timeout time.Duration // per request; default 2s
}

func New(conn *bus.Connection, tanks []Tank, wires []Wire, out io.Writer) *Console {
	return &Console{conn: conn, tanks: tanks, wires: wires, out: out, Timeout: defaultTimeout}
}

// Run executes one command per input line until in is exhausted or ctx is
// cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	c.prompt()
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.Exec(ctx, sc.Text()); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		c.prompt()
	}
	return sc.Err()
}

func (c *Console) prompt() { fmt.Fprint(c.out, "> ") }

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "help", "?":
		c.help()
		return nil
	case "read":
		if len(args) != 2 {
			return fmt.Errorf("usage: read <name|addr|all>")
		}
		return c.read(ctx, args[1])
	case "stats":
		return c.stats(ctx, "read")
	case "reset":
		return c.stats(ctx, "reset")
	}
	return fmt.Errorf("unknown command %q (try help)", args[0])
}

func (c *Console) help() {
	fmt.Fprintln(c.out, "commands:")
	fmt.Fprintln(c.out, "  read <name|addr|all>  read tank level(s)")
	fmt.Fprintln(c.out, "  stats                 show read counters")
	fmt.Fprintln(c.out, "  reset                 clear read counters")
	fmt.Fprintln(c.out, "  help                  this text")
}

func (c *Console) read(ctx context.Context, which string) error {
	targets, err := c.resolve(which)
	if err != nil {
		return err
	}
	for _, t := range targets {
		a := hal.CapAddr{Domain: t.Domain, Kind: types.KindTankLevel, Name: t.Name}
		val, st, err := c.roundTrip(ctx, a, "read")
		switch {
		case err != nil:
			fmt.Fprintf(c.out, "%s: %v\n", t.Name, err)
		case st.Link != types.LinkUp:
			fmt.Fprintf(c.out, "%s: %s\n", t.Name, st.Error)
		default:
			v, _ := val.(types.TankLevelValue)
			whole, tenths := mathx.SplitDeci(v.DeciPct)
			fmt.Fprintf(c.out, "%s: %d.%d%%\n", t.Name, whole, tenths)
		}
	}
	return nil
}

// resolve matches a tank by name or select address.
func (c *Console) resolve(which string) ([]Tank, error) {
	if which == "all" {
		return c.tanks, nil
	}
	addr, numErr := strconv.Atoi(which)
	for _, t := range c.tanks {
		if t.Name == which || (numErr == nil && t.Addr == addr) {
			return []Tank{t}, nil
		}
	}
	return nil, fmt.Errorf("no tank %q", which)
}

func (c *Console) stats(ctx context.Context, verb string) error {
	for _, w := range c.wires {
		a := hal.CapAddr{Domain: w.Domain, Kind: types.KindSeeLevelStats, Name: w.Name}
		val, _, err := c.roundTrip(ctx, a, verb)
		if err != nil {
			fmt.Fprintf(c.out, "%s: %v\n", w.Name, err)
			continue
		}
		s, _ := val.(types.SeeLevelStatsValue)
		fmt.Fprintf(c.out, "%s: reads=%d ok=%d no_response=%d preamble=%d checksum=%d unsupported=%d\n",
			w.Name, s.Reads, s.OK, s.NoResponse, s.Preamble, s.Checksum, s.Unsupported)
	}
	return nil
}

// roundTrip issues verb on a capability and waits for the status that
// follows the resulting publication. The value, if any, precedes it.
func (c *Console) roundTrip(ctx context.Context, a hal.CapAddr, verb string) (any, types.CapabilityStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	sub := c.conn.Subscribe(hal.TopicAny(a))
	defer c.conn.Unsubscribe(sub)
	drain(sub)

	reply, err := c.conn.RequestWait(ctx, c.conn.NewMessage(hal.TopicControl(a, verb), nil, false))
	if err != nil {
		return nil, types.CapabilityStatus{}, err
	}
	if er, ok := reply.Payload.(types.ErrorReply); ok {
		return nil, types.CapabilityStatus{}, errcode.Code(er.Error)
	}

	var val any
	valueTopic := hal.TopicValue(a).String()
	for {
		select {
		case m := <-sub.Channel():
			if m.Topic.String() == valueTopic {
				val = m.Payload
				continue
			}
			if st, ok := m.Payload.(types.CapabilityStatus); ok {
				return val, st, nil
			}
		case <-ctx.Done():
			return nil, types.CapabilityStatus{}, errcode.Timeout
		}
	}
}

// drain discards retained messages queued at subscribe time.
func drain(sub *bus.Subscription) {
	for {
		select {
		case <-sub.Channel():
		default:
			return
		}
	}
}
