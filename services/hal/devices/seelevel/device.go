package seeleveldev

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cpk123/tank-level/drivers/seelevel"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

const reqQueueLen = 4

type tank struct {
	addr   core.CapAddr // <domain>/tank_level/<name>
	sensor int          // select-train position
}

// Device is a single-worker HAL device for one SeeLevel wire pair. Every
// bus transaction happens on the worker goroutine.
type Device struct {
	id     string
	res    core.Resources
	params Params

	sel, resp core.GPIOHandle

	tanks []tank
	stats core.CapAddr

	// Owned by the worker only.
	sess *seelevel.Session

	reqCh    chan request
	done     chan struct{}
	alive    atomic.Bool
	released sync.Once
}

type opCode uint8

const (
	opRead opCode = iota
	opReadAll
	opStats
	opResetStats
	opStop
)

type request struct {
	op   opCode
	tank int // index into tanks for opRead
}

// ---- core.Device interface ----

func (d *Device) ID() string { return d.id }

func (d *Device) Capabilities() []core.CapabilitySpec {
	frame := d.sess.Config().FrameBytes
	caps := make([]core.CapabilitySpec, 0, len(d.tanks)+1)
	for _, t := range d.tanks {
		caps = append(caps, core.CapabilitySpec{
			Domain: t.addr.Domain,
			Kind:   t.addr.Kind,
			Name:   t.addr.Name,
			Info: types.Info{SchemaVersion: 1, Driver: Type, Detail: types.TankLevelInfo{
				Sensor:   Type,
				Addr:     t.sensor,
				Bus:      d.id,
				Segments: frame - 2,
				Cal:      len(d.calibration(t.sensor)) > 0,
			}},
		})
	}
	caps = append(caps, core.CapabilitySpec{
		Domain: d.stats.Domain,
		Kind:   d.stats.Kind,
		Name:   d.stats.Name,
		Info: types.Info{SchemaVersion: 1, Driver: Type, Detail: types.SeeLevelStatsInfo{
			SelectPin:   d.params.SelectPin,
			ResponsePin: d.params.ResponsePin,
			Sensors:     len(d.tanks),
		}},
	})
	return caps
}

func (d *Device) calibration(sensor int) seelevel.CalibrationTable {
	if d.params.Calibration == nil {
		return nil
	}
	return d.params.Calibration.Lookup(sensor)
}

func (d *Device) Init(ctx context.Context) error {
	// Select low keeps the sensors unpowered until the first read.
	if err := d.sel.ConfigureOutput(false); err != nil {
		return err
	}
	if err := d.resp.ConfigureInput(core.PullNone); err != nil {
		return err
	}

	d.reqCh = make(chan request, reqQueueLen)
	d.done = make(chan struct{})
	d.alive.Store(true)
	go d.worker(ctx)
	return nil
}

// Close stops the worker and releases the pins. Queued requests are dropped.
func (d *Device) Close() error {
	if d.alive.Swap(false) {
		select {
		case d.reqCh <- request{op: opStop}:
		default:
		}
		t := time.NewTimer(300 * time.Millisecond)
		select {
		case <-d.done:
		case <-t.C:
			// Worker stuck mid-read: release claims anyway.
			d.release()
		}
		t.Stop()
		return nil
	}
	d.release()
	return nil
}

func (d *Device) Control(a core.CapAddr, verb string, _ any) (core.EnqueueResult, error) {
	send := func(req request) (core.EnqueueResult, error) {
		if !d.alive.Load() {
			return core.EnqueueResult{OK: false, Error: errcode.Unavailable}, nil
		}
		select {
		case d.reqCh <- req:
			return core.EnqueueResult{OK: true}, nil
		default:
			return core.EnqueueResult{OK: false, Error: errcode.Busy}, nil
		}
	}

	switch a.Kind {
	case types.KindTankLevel:
		i := d.tankIndex(a.Name)
		if i < 0 {
			return core.EnqueueResult{OK: false, Error: errcode.UnknownCapability}, nil
		}
		if verb != "read" {
			return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
		}
		return send(request{op: opRead, tank: i})

	case types.KindSeeLevelStats:
		switch verb {
		case "read":
			return send(request{op: opStats})
		case "read_all":
			return send(request{op: opReadAll})
		case "reset":
			return send(request{op: opResetStats})
		}
	}
	return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
}

func (d *Device) tankIndex(name string) int {
	for i, t := range d.tanks {
		if t.addr.Name == name {
			return i
		}
	}
	return -1
}

// ---- Worker ----

func (d *Device) worker(ctx context.Context) {
	defer close(d.done)
	defer d.alive.Store(false)

	for {
		select {
		case <-ctx.Done():
			d.release()
			return
		case req := <-d.reqCh:
			if !d.alive.Load() {
				d.release()
				return
			}
			switch req.op {
			case opRead:
				d.readTanks(d.tanks[req.tank : req.tank+1])
			case opReadAll:
				d.readTanks(d.tanks)
			case opStats:
				d.emitStats()
			case opResetStats:
				d.sess.ResetStats()
				d.emitStats()
			case opStop:
				d.release()
				return
			}
		}
	}
}

func (d *Device) release() {
	d.released.Do(func() {
		d.sel.Set(false)
		d.res.Reg.ReleaseGPIO(d.id, d.params.SelectPin)
		d.res.Reg.ReleaseGPIO(d.id, d.params.ResponsePin)
	})
}

// readTanks runs one power cycle covering ts, then publishes stats.
func (d *Device) readTanks(ts []tank) {
	d.sess.PowerUp()
	for _, t := range ts {
		if !d.alive.Load() {
			break
		}
		r, err := d.sess.Read(t.sensor)
		d.emitLevel(t, r, err)
	}
	d.sess.PowerDown()
	d.emitStats()
}

func (d *Device) emitLevel(t tank, r seelevel.Reading, err error) {
	ts := time.Now().UnixNano()
	if err != nil {
		_ = d.res.Pub.Emit(core.Event{Addr: t.addr, TS: ts, Err: string(errcode.MapDriverErr(err))})
		return
	}
	_ = d.res.Pub.Emit(core.Event{
		Addr: t.addr,
		TS:   ts,
		Payload: types.TankLevelValue{
			DeciPct:  mathx.DeciPercent(r.Percent),
			Segments: r.Segments,
		},
	})
}

func (d *Device) emitStats() {
	st := d.sess.Stats()
	_ = d.res.Pub.Emit(core.Event{
		Addr: d.stats,
		TS:   time.Now().UnixNano(),
		Payload: types.SeeLevelStatsValue{
			Reads:       st.Reads,
			OK:          st.OK,
			NoResponse:  st.NoResponse,
			Preamble:    st.Preamble,
			Checksum:    st.Checksum,
			Unsupported: st.Unsupported,
		},
	})
}
