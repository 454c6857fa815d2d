package config

import (
	"context"

	"github.com/cpk123/tank-level/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// ConfigService publishes the HAL, heartbeat and bridge sections as retained
// messages under config/.
type ConfigService struct {
	Name string
	cfg  *Config
}

// NewConfigService uses cfg when non-nil; otherwise the embedded config for
// the device named in the context is loaded at Start.
func NewConfigService(cfg *Config) *ConfigService {
	return &ConfigService{Name: serviceName, cfg: cfg}
}

func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	cfg := s.cfg
	if cfg == nil {
		device, _ := ctx.Value(CtxDeviceKey).(string)
		c, err := Embedded(device)
		if err != nil {
			return err
		}
		cfg = c
	}
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "hal"), cfg.HALConfig(), true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "heartbeat"), cfg.Heartbeat, true))
	if cfg.Bridge.Broker != "" {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, "bridge"), cfg.Bridge, true))
	}
	return nil
}

// Start publishes once in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}
