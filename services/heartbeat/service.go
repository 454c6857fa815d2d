// Package heartbeat periodically logs the last known level of every tank.
package heartbeat

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/services/config"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicTankAny         = bus.T("hal", "cap", "+", string(types.KindTankLevel), "+", "+")
)

const defaultInterval = 60 * time.Second

type Service struct {
	// Log receives each summary line; default println.
	Log func(line string)

	levels map[string]string // tank name -> "35.7%" or error code
	start  time.Time
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	tankSub := conn.Subscribe(topicTankAny)
	defer conn.Unsubscribe(tankSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log("[heartbeat] stopping")
			return
		case <-tick.C:
			s.log(s.Summary())
		case msg := <-tankSub.Channel():
			s.observe(msg)
		case msg := <-cfgSub.Channel():
			if iv, ok := interval(msg.Payload); ok {
				tick.Reset(iv)
				s.log("[heartbeat] interval " + iv.String())
			}
		}
	}
}

func interval(p any) (time.Duration, bool) {
	switch v := p.(type) {
	case config.HeartbeatConfig:
		if v.IntervalS > 0 {
			return time.Duration(v.IntervalS) * time.Second, true
		}
	case map[string]any:
		if f, ok := v["interval"].(float64); ok && f > 0 {
			return time.Duration(f * float64(time.Second)), true
		}
	}
	return 0, false
}

// observe records a tank value or a degraded status. Values arrive before
// the status that confirms them, so an up status keeps the stored value.
func (s *Service) observe(m *bus.Message) {
	if len(m.Topic) != 6 {
		return
	}
	name := m.Topic[4]
	switch v := m.Payload.(type) {
	case types.TankLevelValue:
		w, f := mathx.SplitDeci(v.DeciPct)
		s.levels[name] = strconv.Itoa(int(w)) + "." + strconv.Itoa(int(f)) + "%"
	case types.CapabilityStatus:
		switch v.Link {
		case types.LinkDegraded:
			s.levels[name] = v.Error
		case types.LinkDown:
			if _, seen := s.levels[name]; !seen {
				s.levels[name] = "-"
			}
		}
	}
}

// Summary formats uptime and every known tank in name order.
func (s *Service) Summary() string {
	var b strings.Builder
	b.WriteString("[heartbeat] up ")
	b.WriteString(time.Since(s.start).Truncate(time.Second).String())
	names := make([]string, 0, len(s.levels))
	for n := range s.levels {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.WriteString(" " + n + "=" + s.levels[n])
	}
	return b.String()
}

func (s *Service) log(line string) {
	if s.Log != nil {
		s.Log(line)
		return
	}
	println(line)
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.levels = make(map[string]string)
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
