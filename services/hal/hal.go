// Package hal runs the hardware abstraction layer: it builds devices from a
// HALConfig published on config/hal, exposes their capabilities under
// hal/cap/..., and drives periodic reads.
package hal

import (
	"context"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/services/hal/internal/provider"
	"github.com/cpk123/tank-level/services/hal/internal/provider/setups"

	// Device builders register themselves.
	_ "github.com/cpk123/tank-level/services/hal/devices/seelevel"
)

type (
	Resources    = core.Resources
	Registry     = provider.Registry
	ResourcePlan = setups.ResourcePlan
	CapAddr      = core.CapAddr
)

// Board is the default Pico wiring.
var Board = setups.PicoTank

// Run blocks until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, reg *Registry) {
	core.NewHAL(conn, provider.NewResources(reg)).Run(ctx)
}

// Topic helpers for clients.

func TopicConfig() bus.Topic                        { return core.TopicConfigHAL() }
func TopicState() bus.Topic                         { return core.TopicHALState() }
func TopicValue(a CapAddr) bus.Topic                { return core.CapValue(a) }
func TopicStatus(a CapAddr) bus.Topic               { return core.CapStatus(a) }
func TopicAny(a CapAddr) bus.Topic                  { return core.CapAny(a) }
func TopicInfo(a CapAddr) bus.Topic                 { return core.CapInfo(a) }
func TopicControl(a CapAddr, verb string) bus.Topic { return core.CapCtrl(a, verb) }
