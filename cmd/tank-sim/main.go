//go:build !rp2040

// Command tank-sim runs the full service stack against a simulated sensor
// wire: tanks drain and refill over time, readings are logged, optionally
// bridged to MQTT, and the operator console reads commands from stdin.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/drivers/seelevel/simbus"
	"github.com/cpk123/tank-level/services/bridge"
	"github.com/cpk123/tank-level/services/config"
	"github.com/cpk123/tank-level/services/console"
	"github.com/cpk123/tank-level/services/hal"
	"github.com/cpk123/tank-level/services/heartbeat"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

var (
	cfgPath  = flag.String("config", "", "YAML config file; default is the embedded pico config")
	device   = flag.String("device", "pico", "embedded config to use when -config is empty")
	broker   = flag.String("broker", "", "MQTT broker URL, overrides the config's bridge section")
	tick     = flag.Duration("tick", time.Second, "simulation step")
	drain    = flag.Float64("drain", 0.5, "percent drained per step")
	poll     = flag.Duration("poll", 0, "override poll interval")
	noPrompt = flag.Bool("no-console", false, "do not read commands from stdin")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	if *broker != "" {
		cfg.Bridge.Broker = *broker
		config.Normalize(cfg)
	}
	if *poll > 0 {
		cfg.Poll.IntervalMs = uint32(poll.Milliseconds())
		if uint32(cfg.Poll.JitterMs) >= cfg.Poll.IntervalMs {
			cfg.Poll.JitterMs = 0
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := simbus.New()
	m := newModel(cfg)
	m.apply(sim)

	b := bus.NewBus(16)
	go hal.Run(ctx, b.NewConnection("hal"), hal.NewSimRegistry(hal.Board, sim))
	go logLevels(ctx, b.NewConnection("monitor"))

	config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))
	hb := &heartbeat.Service{Log: func(l string) { glog.Info(l) }}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))
	if cfg.Bridge.Broker != "" {
		go bridge.Start(ctx, b.NewConnection("bridge"))
	}

	go func() {
		t := time.NewTicker(*tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.step(*drain)
				m.apply(sim)
				sim.ClearEdges()
			}
		}
	}()

	if *noPrompt {
		<-ctx.Done()
		return
	}
	tanks, wires := console.Targets(cfg)
	con := console.New(b.NewConnection("console"), tanks, wires, os.Stdout)
	if err := con.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		glog.Errorf("console: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *cfgPath != "" {
		return config.Load(*cfgPath)
	}
	return config.Embedded(*device)
}

// logLevels prints every tank reading the HAL publishes.
func logLevels(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("hal", "cap", "+", string(types.KindTankLevel), "+", "+"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			name := msg.Topic[4]
			switch v := msg.Payload.(type) {
			case types.TankLevelValue:
				w, f := mathx.SplitDeci(v.DeciPct)
				glog.Infof("%s: %d.%d%% %v", name, w, f, v.Segments)
			case types.CapabilityStatus:
				if v.Link == types.LinkDegraded {
					glog.Warningf("%s: %s", name, v.Error)
				}
			}
		}
	}
}
