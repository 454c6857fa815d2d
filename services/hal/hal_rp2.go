//go:build rp2040

package hal

import (
	"io"

	"github.com/cpk123/tank-level/services/hal/internal/provider"
)

// NewRP2Registry returns the registry over the board's machine pins.
func NewRP2Registry(plan ResourcePlan) *Registry {
	return provider.NewRP2(plan)
}

// OpenConsole returns the board's console UART, configured from plan.
func OpenConsole(plan ResourcePlan) (io.ReadWriter, bool) {
	return provider.OpenConsole(plan)
}
