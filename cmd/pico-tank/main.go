//go:build rp2040

// Command pico-tank is the Pico firmware: it reads the SeeLevel tanks on a
// schedule and serves the operator console on the board UART.
package main

import (
	"context"
	"time"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/services/config"
	"github.com/cpk123/tank-level/services/console"
	"github.com/cpk123/tank-level/services/hal"
	"github.com/cpk123/tank-level/services/heartbeat"
	"github.com/cpk123/tank-level/types"
)

const device = "pico"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)

	cfg, err := config.Embedded(device)
	if err != nil {
		println("[main] config:", err.Error())
		return
	}

	b := bus.NewBus(4)
	go hal.Run(ctx, b.NewConnection("hal"), hal.NewRP2Registry(hal.Board))

	ui := b.NewConnection("ui")
	waitReady(ui)

	config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	port, ok := hal.OpenConsole(hal.Board)
	if !ok {
		println("[main] no console UART; running headless")
		select {}
	}
	tanks, wires := console.Targets(cfg)
	con := console.New(ui, tanks, wires, port)
	for {
		if err := con.Run(ctx, port); err != nil {
			println("[main] console:", err.Error())
		}
	}
}

func waitReady(conn *bus.Connection) {
	sub := conn.Subscribe(hal.TopicState())
	defer conn.Unsubscribe(sub)
	for m := range sub.Channel() {
		if st, ok := m.Payload.(types.HALState); ok {
			println("[main] hal", st.Level)
			if st.Level == "idle" || st.Level == "ready" {
				return
			}
		}
	}
}
