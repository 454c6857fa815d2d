package provider

import (
	"sync"

	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/services/hal/internal/provider/setups"
)

// Ensure the provider satisfies the contract at compile time.
var _ core.ResourceRegistry = (*Registry)(nil)

// pinSource builds the platform handle for a pin number.
type pinSource func(n int) core.GPIOHandle

// Registry tracks exclusive GPIO ownership for one board.
type Registry struct {
	mu     sync.Mutex
	plan   setups.ResourcePlan
	pins   pinSource
	clk    core.Clock
	owners map[int]string // pin -> devID
	cache  map[int]core.GPIOHandle
}

func newRegistry(plan setups.ResourcePlan, pins pinSource, clk core.Clock) *Registry {
	return &Registry{
		plan:   plan,
		pins:   pins,
		clk:    clk,
		owners: map[int]string{},
		cache:  map[int]core.GPIOHandle{},
	}
}

func (r *Registry) ClaimGPIO(devID string, pin int) (core.GPIOHandle, error) {
	if pin < 0 || pin >= r.plan.GPIOCount || r.reserved(pin) {
		return nil, core.ErrUnknownPin
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.owners[pin]; taken && owner != devID {
		return nil, core.ErrPinInUse
	}
	r.owners[pin] = devID
	h := r.cache[pin]
	if h == nil {
		h = r.pins(pin)
		r.cache[pin] = h
	}
	return h, nil
}

func (r *Registry) ReleaseGPIO(devID string, pin int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[pin] == devID {
		delete(r.owners, pin)
	}
}

func (r *Registry) Clock() core.Clock { return r.clk }

// Owner reports which device holds pin.
func (r *Registry) Owner(pin int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owners[pin]
	return id, ok
}

// reserved reports pins held by the console UART.
func (r *Registry) reserved(pin int) bool {
	c := r.plan.Console
	return c.ID != "" && (pin == c.TX || pin == c.RX)
}

// NewResources wraps the registry for HAL. The event emitter is filled in
// by HAL itself.
func NewResources(reg *Registry) core.Resources {
	return core.Resources{Reg: reg}
}
