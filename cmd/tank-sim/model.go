//go:build !rp2040

package main

import (
	"github.com/golang/glog"

	"github.com/cpk123/tank-level/drivers/seelevel"
	"github.com/cpk123/tank-level/drivers/seelevel/simbus"
	"github.com/cpk123/tank-level/services/config"
	"github.com/cpk123/tank-level/services/hal"
)

// Segment reading for a covered segment.
const fullReading = 200

type simTank struct {
	name string
	addr int
	pct  float64
}

// model drains the simulated tanks and refills each one when it runs dry.
// Only tanks on the bus wired to the board's primary pair are simulated.
type model struct {
	segments int
	tanks    []*simTank
}

func newModel(cfg *config.Config) *model {
	m := &model{segments: seelevel.DefaultFrameBytes - 2}
	for _, b := range cfg.Buses {
		if b.SelectPin != hal.Board.Wire.Select || b.ResponsePin != hal.Board.Wire.Response {
			glog.Warningf("bus %s is not on the simulated pair; its tanks will not answer", b.ID)
			continue
		}
		if b.Protocol.FrameBytes != 0 {
			m.segments = b.Protocol.FrameBytes - 2
		}
		for i, t := range b.Tanks {
			m.tanks = append(m.tanks, &simTank{name: t.Name, addr: t.Addr, pct: 100 - 30*float64(i%3)})
		}
	}
	return m
}

func (m *model) step(drain float64) {
	for _, t := range m.tanks {
		t.pct -= drain
		if t.pct <= 0 {
			glog.Infof("sim: refilling %s", t.name)
			t.pct = 100
		}
	}
}

func (m *model) apply(sim *simbus.Bus) {
	for _, t := range m.tanks {
		sim.SetFrame(t.addr, simbus.BuildFrame(simbus.Payload(t.pct, m.segments, fullReading)))
	}
}
