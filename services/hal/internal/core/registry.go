package core

import (
	"sync"

	"github.com/cpk123/tank-level/types"
)

var (
	regMu    sync.RWMutex
	builders = map[string]Builder{}
)

// RegisterBuilder makes a device type available to HAL configs. It is
// called from device package init functions.
func RegisterBuilder(typ string, b Builder) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[typ]; exists {
		panic("duplicate device builder: " + typ)
	}
	builders[typ] = b
}

func lookupBuilder(typ string) (Builder, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, ok := builders[typ]
	return b, ok
}

// Public HAL config types live in types.
type HALConfig = types.HALConfig
type HALDevice = types.HALDevice
