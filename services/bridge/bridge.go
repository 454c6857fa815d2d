// Package bridge forwards tank readings from the local bus to an MQTT broker.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/services/config"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start runs the bridge service. It blocks until ctx is cancelled.
// It listens for config on topic {"config","bridge"} and (re)configures the link.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.T("bridge", "state"),
	}
	s.run(ctx)
}

// Config is the uplink configuration expected on "config/bridge".
type Config = config.BridgeConfig

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T("config", "bridge"))
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision
// -----------------------------------------------------------------------------

// Dial opens a broker client. Tests replace it.
var Dial = dialPaho

func (s *Service) runLink(ctx context.Context, cfg Config) {
	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cl, err := Dial(cfg)
		if err == nil {
			err = cl.Connect(ctx)
			if err != nil {
				cl.Close()
			}
		}
		if err != nil {
			delay := backoff()
			glog.Warningf("bridge: connect %s: %v", cfg.Broker, err)
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		glog.Infof("bridge: connected to %s as %q", cfg.Broker, cfg.ClientID)
		s.publishState("up", "link_established", nil)
		err = s.handleLink(ctx, cl, cfg)
		cl.Close()
		if err != nil {
			delay := backoff()
			glog.Warningf("bridge: link lost: %v", err)
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		return
	}
}

// handleLink forwards capability values and status until the link drops or
// ctx ends. Retained messages replayed on subscribe resync the broker after
// every reconnect.
func (s *Service) handleLink(ctx context.Context, cl Client, cfg Config) error {
	subs := []*bus.Subscription{
		s.conn.Subscribe(bus.T("hal", "cap", "+", "+", "+", "value")),
		s.conn.Subscribe(bus.T("hal", "cap", "+", "+", "+", "status")),
	}
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	for {
		var msg *bus.Message
		select {
		case <-ctx.Done():
			return nil
		case err := <-cl.Lost():
			if err == nil {
				err = errors.New("connection closed")
			}
			return err
		case msg = <-subs[0].Channel():
		case msg = <-subs[1].Channel():
		}
		topic, body, ok := uplink(cfg.Prefix, msg)
		if !ok {
			continue
		}
		if err := cl.Publish(ctx, topic, cfg.QoS, cfg.Retain, body); err != nil {
			return err
		}
		if glog.V(2) {
			glog.Infof("bridge: PUB %s", topic)
		}
	}
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		cfg = v
	case *Config:
		if v == nil {
			return cfg, errors.New("nil config")
		}
		cfg = *v
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	if cfg.Broker == "" {
		return cfg, errors.New("bridge config has no broker")
	}
	if cfg.QoS > 2 {
		return cfg, fmt.Errorf("qos %d outside 0..2", cfg.QoS)
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, payload, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
