//go:build !rp2040

package hal

import (
	"github.com/cpk123/tank-level/drivers/seelevel/simbus"
	"github.com/cpk123/tank-level/services/hal/internal/provider"
)

// NewSimRegistry attaches sim to plan's wire pair.
func NewSimRegistry(plan ResourcePlan, sim *simbus.Bus) *Registry {
	return provider.NewSim(plan, sim)
}
