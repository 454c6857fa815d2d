package core

import (
	"context"
	"time"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/timex"
)

const (
	eventQueueLen = 16
	pollQueueLen  = 8
)

type HAL struct {
	conn *bus.Connection
	res  Resources

	// Device registry
	dev map[string]Device // devID -> device

	// Capability index: address -> devID
	capIndex map[CapAddr]string

	// Single-threaded publication of device events
	evCh chan Event

	pollCh chan PollReq
	poller *Poller
}

func NewHAL(conn *bus.Connection, res Resources) *HAL {
	h := &HAL{
		conn:     conn,
		res:      res,
		dev:      map[string]Device{},
		capIndex: map[CapAddr]string{},
		evCh:     make(chan Event, eventQueueLen),
		pollCh:   make(chan PollReq, pollQueueLen),
	}
	h.poller = NewPoller(h.pollCh)
	// HAL provides the emitter to devices.
	h.res.Pub = h
	return h
}

func (h *HAL) Run(ctx context.Context) {
	cfgSub := h.conn.Subscribe(TopicConfigHAL())
	ctrlSub := h.conn.Subscribe(ctrlWildcard())
	defer h.conn.Unsubscribe(cfgSub)
	defer h.conn.Unsubscribe(ctrlSub)

	go h.poller.Run(ctx)

	h.pubHALState("idle", "")
	ready := false
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.pubHALState("stopped", "context_cancelled")
			return
		case msg := <-cfgSub.Channel():
			if v, ok := msg.Payload.(types.HALConfig); ok {
				// applyConfig is additive: existing devices are kept.
				h.applyConfig(ctx, v)
				if !ready {
					ready = true
					h.pubHALState("ready", "")
				}
			}
		case m := <-ctrlSub.Channel():
			if !ready {
				h.replyErr(m, errcode.HALNotReady)
				continue
			}
			h.handleControl(m) // strictly non-blocking
		case req := <-h.pollCh:
			h.handlePoll(req)
		case ev := <-h.evCh:
			// All device→HAL telemetry is published from this goroutine.
			h.handleEvent(ev)
		}
	}
}

func (h *HAL) applyConfig(ctx context.Context, cfg types.HALConfig) {
	for i := range cfg.Devices {
		dc := cfg.Devices[i]
		if _, exists := h.dev[dc.ID]; exists {
			continue
		}
		b, ok := lookupBuilder(dc.Type)
		if !ok {
			println("[hal] no builder for type:", dc.Type, "id:", dc.ID)
			continue
		}
		dev, err := b.Build(ctx, BuilderInput{
			ID:     dc.ID,
			Type:   dc.Type,
			Params: dc.Params,
			Res:    h.res,
		})
		if err != nil {
			println("[hal] build failed for:", dc.ID, "err:", err.Error())
			continue
		}
		if err := dev.Init(ctx); err != nil {
			println("[hal] init failed for:", dc.ID, "err:", err.Error())
			_ = dev.Close()
			continue
		}
		h.dev[dev.ID()] = dev

		// Register capabilities, publish retained info + initial status:down
		for _, cs := range dev.Capabilities() {
			a := CapAddr{Domain: cs.Domain, Kind: cs.Kind, Name: cs.Name}
			if a.Name == "" {
				a.Name = dev.ID()
			}
			h.capIndex[a] = dev.ID()

			h.conn.Publish(h.conn.NewMessage(CapInfo(a), cs.Info, true))
			h.conn.Publish(h.conn.NewMessage(
				CapStatus(a),
				types.CapabilityStatus{Link: types.LinkDown, TS: timex.NowMs()},
				true,
			))
		}
	}

	for _, ps := range cfg.Pollers {
		verb := ps.Verb
		if verb == "" {
			verb = "read"
		}
		h.poller.Upsert(
			CapAddr{Domain: ps.Domain, Kind: ps.Kind, Name: ps.Name},
			verb,
			time.Duration(ps.IntervalMs)*time.Millisecond,
			time.Duration(ps.JitterMs)*time.Millisecond,
		)
	}
}

func (h *HAL) lookup(a CapAddr) (Device, errcode.Code) {
	ownerID, ok := h.capIndex[a]
	if !ok {
		return nil, errcode.UnknownCapability
	}
	dev := h.dev[ownerID]
	if dev == nil {
		return nil, errcode.Error
	}
	return dev, ""
}

func (h *HAL) handleControl(msg *bus.Message) {
	a, verb, ok := parseCtrl(msg.Topic)
	if !ok {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	dev, code := h.lookup(a)
	if code != "" {
		h.replyErr(msg, code)
		return
	}

	res, err := dev.Control(a, verb, msg.Payload)
	if err != nil {
		h.replyFromError(msg, err)
		return
	}
	if res.OK {
		h.replyOK(msg)
		return
	}
	code = res.Error
	if code == "" {
		code = errcode.Busy
	}
	h.replyErr(msg, code)
}

func (h *HAL) handlePoll(req PollReq) {
	dev, code := h.lookup(req.Addr)
	if code != "" {
		return
	}
	// A busy worker simply skips this period.
	_, _ = dev.Control(req.Addr, req.Verb, nil)
}

func (h *HAL) handleEvent(ev Event) {
	a := ev.Addr
	ts := ev.TS / int64(time.Millisecond)

	// Error → retained status:degraded; no value published.
	if ev.Err != "" {
		h.conn.Publish(h.conn.NewMessage(
			CapStatus(a),
			types.CapabilityStatus{Link: types.LinkDegraded, TS: ts, Error: ev.Err},
			true,
		))
		return
	}

	h.conn.Publish(h.conn.NewMessage(CapValue(a), ev.Payload, true))
	h.conn.Publish(h.conn.NewMessage(
		CapStatus(a),
		types.CapabilityStatus{Link: types.LinkUp, TS: ts},
		true,
	))
}

func (h *HAL) closeAll() {
	for id, d := range h.dev {
		if err := d.Close(); err != nil {
			println("[hal] close failed for:", id, "err:", err.Error())
		}
	}
}

func (h *HAL) pubHALState(level, status string) {
	h.conn.Publish(h.conn.NewMessage(
		TopicHALState(),
		types.HALState{Level: level, Status: status, TS: timex.NowMs()},
		true,
	))
}

// ---- HAL as EventEmitter (enqueue to single publisher) ----

func (h *HAL) Emit(ev Event) bool {
	select {
	case h.evCh <- ev:
		return true
	default:
		return false
	}
}
