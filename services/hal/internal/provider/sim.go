//go:build !rp2040

package provider

import (
	"github.com/cpk123/tank-level/drivers/seelevel/simbus"
	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/services/hal/internal/provider/setups"
)

// memGPIO is a latch with no hardware behind it.
type memGPIO struct {
	n     int
	level bool
}

func (g *memGPIO) Number() int                        { return g.n }
func (g *memGPIO) ConfigureInput(core.Pull) error     { return nil }
func (g *memGPIO) ConfigureOutput(initial bool) error { g.level = initial; return nil }
func (g *memGPIO) Set(v bool)                         { g.level = v }
func (g *memGPIO) Get() bool                          { return g.level }

// simSelect drives the simulator's select line.
type simSelect struct {
	n   int
	sim *simbus.Bus
}

func (g simSelect) Number() int                        { return g.n }
func (g simSelect) ConfigureInput(core.Pull) error     { return nil }
func (g simSelect) ConfigureOutput(initial bool) error { g.sim.SetSelect(initial); return nil }
func (g simSelect) Set(v bool)                         { g.sim.SetSelect(v) }
func (g simSelect) Get() bool                          { return false }

// simResponse samples the simulator's response line.
type simResponse struct {
	n   int
	sim *simbus.Bus
}

func (g simResponse) Number() int                    { return g.n }
func (g simResponse) ConfigureInput(core.Pull) error { return nil }
func (g simResponse) ConfigureOutput(bool) error     { return nil }
func (g simResponse) Set(bool)                       {}
func (g simResponse) Get() bool                      { return g.sim.Response() }

// NewSim returns a host registry with sim attached to the plan's wire pair.
// The simulator also serves as the clock, so all timing is virtual.
func NewSim(plan setups.ResourcePlan, sim *simbus.Bus) *Registry {
	pins := func(n int) core.GPIOHandle {
		switch n {
		case plan.Wire.Select:
			return simSelect{n: n, sim: sim}
		case plan.Wire.Response:
			return simResponse{n: n, sim: sim}
		}
		return &memGPIO{n: n}
	}
	return newRegistry(plan, pins, sim)
}
