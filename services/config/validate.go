package config

import (
	"fmt"

	"github.com/cpk123/tank-level/drivers/seelevel"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if len(cfg.Buses) == 0 {
		return fmt.Errorf("no buses defined")
	}

	busIDs := make(map[string]bool)
	pinOwner := make(map[int]string)
	// key = domain | name
	tankOwner := make(map[string]string)

	for _, b := range cfg.Buses {
		if b.ID == "" {
			return fmt.Errorf("bus with empty id")
		}
		if busIDs[b.ID] {
			return fmt.Errorf("bus %q: duplicate id", b.ID)
		}
		busIDs[b.ID] = true

		for _, pin := range []int{b.SelectPin, b.ResponsePin} {
			if pin < 0 {
				return fmt.Errorf("bus %q: negative pin %d", b.ID, pin)
			}
			if owner, taken := pinOwner[pin]; taken {
				return fmt.Errorf("bus %q: pin %d already used by bus %q", b.ID, pin, owner)
			}
			pinOwner[pin] = b.ID
		}

		p := b.Protocol
		if p.MaxSensors < 0 || p.FrameBytes < 0 || p.ResponseTimeoutMs < 0 || p.PulseTimeoutUs < 0 {
			return fmt.Errorf("bus %q: negative protocol parameter", b.ID)
		}
		if p.FrameBytes != 0 && p.FrameBytes < 3 {
			return fmt.Errorf("bus %q: frame_bytes %d leaves no payload", b.ID, p.FrameBytes)
		}
		maxSensors := p.MaxSensors
		if maxSensors == 0 {
			maxSensors = seelevel.DefaultMaxSensors
		}
		segments := p.FrameBytes
		if segments == 0 {
			segments = seelevel.DefaultFrameBytes
		}
		segments -= 2

		if len(b.Tanks) == 0 {
			return fmt.Errorf("bus %q: no tanks defined", b.ID)
		}
		addrs := make(map[int]string)
		domain := b.Domain
		if domain == "" {
			domain = defaultDomain
		}
		for _, t := range b.Tanks {
			if t.Name == "" {
				return fmt.Errorf("bus %q: tank with empty name", b.ID)
			}
			if t.Addr < 0 || t.Addr >= maxSensors {
				return fmt.Errorf("tank %q: addr %d outside 0..%d", t.Name, t.Addr, maxSensors-1)
			}
			if other, dup := addrs[t.Addr]; dup {
				return fmt.Errorf("tank %q: addr %d already used by tank %q", t.Name, t.Addr, other)
			}
			addrs[t.Addr] = t.Name

			key := domain + "|" + t.Name
			if owner, dup := tankOwner[key]; dup {
				return fmt.Errorf("tank %q: name already used on bus %q", t.Name, owner)
			}
			tankOwner[key] = b.ID

			seen := make(map[int]bool)
			for _, c := range t.Calibration {
				if c.Segment < 0 || c.Segment >= segments {
					return fmt.Errorf("tank %q: calibration segment %d outside 0..%d", t.Name, c.Segment, segments-1)
				}
				if seen[c.Segment] {
					return fmt.Errorf("tank %q: calibration segment %d listed twice", t.Name, c.Segment)
				}
				seen[c.Segment] = true
			}
		}
	}

	if cfg.Poll.IntervalMs != 0 && uint32(cfg.Poll.JitterMs) >= cfg.Poll.IntervalMs {
		return fmt.Errorf("poll: jitter_ms %d must be below interval_ms %d", cfg.Poll.JitterMs, cfg.Poll.IntervalMs)
	}
	if cfg.Heartbeat.IntervalS < 0 {
		return fmt.Errorf("heartbeat: negative interval_s %d", cfg.Heartbeat.IntervalS)
	}
	if cfg.Bridge.QoS > 2 {
		return fmt.Errorf("bridge: qos %d outside 0..2", cfg.Bridge.QoS)
	}
	return nil
}
