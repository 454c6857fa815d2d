//go:build rp2040

package provider

import (
	"context"
	"io"
	"machine"
	"time"

	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/services/hal/internal/provider/setups"
	"github.com/cpk123/tank-level/x/timex"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/delay"
)

// -----------------------------------------------------------------------------
// GPIO handle
// -----------------------------------------------------------------------------

type rp2GPIO struct {
	p machine.Pin
	n int
}

func (r *rp2GPIO) Number() int { return r.n }

func (r *rp2GPIO) ConfigureInput(pull core.Pull) error {
	var mode machine.PinMode
	switch pull {
	case core.PullUp:
		mode = machine.PinInputPullup
	case core.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2GPIO) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2GPIO) Set(b bool) { r.p.Set(b) }
func (r *rp2GPIO) Get() bool  { return r.p.Get() }

// -----------------------------------------------------------------------------
// Clock
// -----------------------------------------------------------------------------

// rp2Clock busy-waits short delays; the scheduler's granularity is too
// coarse for select pulses.
type rp2Clock struct{}

func (rp2Clock) Micros() uint32 { return timex.Micros() }

func (rp2Clock) Sleep(d time.Duration) {
	if d < time.Millisecond {
		delay.Sleep(d)
		return
	}
	time.Sleep(d)
}

// NewRP2 returns the registry backed by machine pins.
func NewRP2(plan setups.ResourcePlan) *Registry {
	pins := func(n int) core.GPIOHandle {
		return &rp2GPIO{p: machine.Pin(n), n: n}
	}
	return newRegistry(plan, pins, rp2Clock{})
}

// -----------------------------------------------------------------------------
// Console UART
// -----------------------------------------------------------------------------

type rp2Console struct{ u *uartx.UART }

func (c rp2Console) Read(b []byte) (int, error) {
	return c.u.RecvSomeContext(context.Background(), b)
}

func (c rp2Console) Write(b []byte) (int, error) { return c.u.Write(b) }

// OpenConsole configures the plan's console UART. Its pins are never
// handed out by the registry.
func OpenConsole(plan setups.ResourcePlan) (io.ReadWriter, bool) {
	var hw *uartx.UART
	switch plan.Console.ID {
	case "uart0":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, false
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: plan.Console.Baud,
		TX:       machine.Pin(plan.Console.TX),
		RX:       machine.Pin(plan.Console.RX),
	}); err != nil {
		return nil, false
	}
	return rp2Console{u: hw}, true
}
