package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/types"
)

// fakeDevice answers controls synchronously through the emitter.
type fakeDevice struct {
	id     string
	pub    EventEmitter
	reads  atomic.Int32
	closed atomic.Bool
}

func (d *fakeDevice) ID() string { return d.id }
func (d *fakeDevice) Capabilities() []CapabilitySpec {
	return []CapabilitySpec{{
		Domain: fresh.Domain, Kind: fresh.Kind, Name: fresh.Name,
		Info: types.Info{SchemaVersion: 1, Driver: "fake"},
	}}
}
func (d *fakeDevice) Init(context.Context) error { return nil }
func (d *fakeDevice) Close() error               { d.closed.Store(true); return nil }

func (d *fakeDevice) Control(a CapAddr, verb string, _ any) (EnqueueResult, error) {
	switch verb {
	case "read":
		n := d.reads.Add(1)
		d.pub.Emit(Event{Addr: a, TS: time.Now().UnixNano(), Payload: types.TankLevelValue{DeciPct: uint16(n)}})
		return EnqueueResult{OK: true}, nil
	case "fail":
		d.pub.Emit(Event{Addr: a, TS: time.Now().UnixNano(), Err: string(errcode.NoResponse)})
		return EnqueueResult{OK: true}, nil
	case "busy":
		return EnqueueResult{}, nil
	}
	return EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
}

var lastFake atomic.Pointer[fakeDevice]

type fakeBuilder struct{}

func (fakeBuilder) Build(_ context.Context, in BuilderInput) (Device, error) {
	d := &fakeDevice{id: in.ID, pub: in.Res.Pub}
	lastFake.Store(d)
	return d, nil
}

func init() { RegisterBuilder("fake", fakeBuilder{}) }

func recv(t *testing.T, ch <-chan *bus.Message) *bus.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func waitState(t *testing.T, sub *bus.Subscription, level string) {
	t.Helper()
	for {
		m := recv(t, sub.Channel())
		if st, ok := m.Payload.(types.HALState); ok && st.Level == level {
			return
		}
	}
}

func request(t *testing.T, c *bus.Connection, verb string) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := c.RequestWait(ctx, c.NewMessage(CapCtrl(fresh, verb), nil, false))
	if err != nil {
		t.Fatalf("request %s: %v", verb, err)
	}
	return m.Payload
}

func TestHAL_ConfigControlAndEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	c := b.NewConnection("test")
	state := c.Subscribe(TopicHALState())

	h := NewHAL(b.NewConnection("hal"), Resources{})
	done := make(chan struct{})
	go func() { h.Run(ctx); close(done) }()
	waitState(t, state, "idle")

	if got := request(t, c, "read"); got != (types.ErrorReply{Error: string(errcode.HALNotReady)}) {
		t.Fatalf("before config: %+v", got)
	}

	c.Publish(c.NewMessage(TopicConfigHAL(), types.HALConfig{Devices: []types.HALDevice{
		{ID: "ghost", Type: "no_such_type"},
		{ID: "tankbus", Type: "fake"},
	}}, true))
	waitState(t, state, "ready")

	info := c.Subscribe(CapInfo(fresh))
	if m := recv(t, info.Channel()); m.Payload.(types.Info).Driver != "fake" {
		t.Fatalf("info: %+v", m.Payload)
	}
	status := c.Subscribe(CapStatus(fresh))
	if st := recv(t, status.Channel()).Payload.(types.CapabilityStatus); st.Link != types.LinkDown {
		t.Fatalf("initial status: %+v", st)
	}
	values := c.Subscribe(CapValue(fresh))

	if got := request(t, c, "read"); got != (types.OKReply{OK: true}) {
		t.Fatalf("read reply: %+v", got)
	}
	if v := recv(t, values.Channel()).Payload.(types.TankLevelValue); v.DeciPct != 1 {
		t.Fatalf("value: %+v", v)
	}
	if st := recv(t, status.Channel()).Payload.(types.CapabilityStatus); st.Link != types.LinkUp {
		t.Fatalf("status after read: %+v", st)
	}

	request(t, c, "fail")
	st := recv(t, status.Channel()).Payload.(types.CapabilityStatus)
	if st.Link != types.LinkDegraded || st.Error != string(errcode.NoResponse) {
		t.Fatalf("status after failure: %+v", st)
	}

	if got := request(t, c, "busy"); got != (types.ErrorReply{Error: string(errcode.Busy)}) {
		t.Fatalf("busy reply: %+v", got)
	}
	if got := request(t, c, "explode"); got != (types.ErrorReply{Error: string(errcode.Unsupported)}) {
		t.Fatalf("unsupported reply: %+v", got)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	other := CapAddr{Domain: "tank", Kind: types.KindTankLevel, Name: "grey"}
	m, err := c.RequestWait(ctx2, c.NewMessage(CapCtrl(other, "read"), nil, false))
	if err != nil || m.Payload != (types.ErrorReply{Error: string(errcode.UnknownCapability)}) {
		t.Fatalf("unknown capability: %+v %v", m, err)
	}

	cancel()
	<-done
	if !lastFake.Load().closed.Load() {
		t.Fatal("device not closed on shutdown")
	}
}

func TestHAL_Pollers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	c := b.NewConnection("test")
	values := c.Subscribe(CapValue(fresh))

	go NewHAL(b.NewConnection("hal"), Resources{}).Run(ctx)

	c.Publish(c.NewMessage(TopicConfigHAL(), types.HALConfig{
		Devices: []types.HALDevice{{ID: "tankbus", Type: "fake"}},
		Pollers: []types.PollSpec{{Domain: fresh.Domain, Kind: fresh.Kind, Name: fresh.Name, IntervalMs: 5}},
	}, true))

	for i := 1; i <= 3; i++ {
		v := recv(t, values.Channel()).Payload.(types.TankLevelValue)
		if v.DeciPct != uint16(i) {
			t.Fatalf("poll %d produced %+v", i, v)
		}
	}
}

func TestRegisterBuilder_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	RegisterBuilder("fake", fakeBuilder{})
}
