package seeleveldev

import (
	"context"

	"github.com/cpk123/tank-level/drivers/seelevel"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/services/hal/internal/core"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

// Type is the HAL device type name.
const Type = "seelevel"

// Sensor names one tank on the wire pair.
type Sensor struct {
	Name string // public capability name, e.g. "fresh"
	Addr int    // position in the select train, 0-based
}

// Params defines wiring and behaviour for one select/response pair.
type Params struct {
	SelectPin   int // GPIO driving the select/power line (required)
	ResponsePin int // GPIO reading the response line (required)

	Domain    string // capability domain; default "tank"
	StatsName string // name of the stats capability; default device id

	Sensors []Sensor // at least one

	Protocol    seelevel.Config            // zero fields take driver defaults
	Calibration seelevel.CalibrationSource // nil: uncalibrated estimate
}

func init() { core.RegisterBuilder(Type, builder{}) }

type builder struct{}

func (builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, ok := in.Params.(Params)
	if !ok {
		if pp, ok2 := in.Params.(*Params); ok2 && pp != nil {
			p = *pp
		} else {
			return nil, errcode.InvalidParams
		}
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	if p.Domain == "" {
		p.Domain = "tank"
	}
	if p.StatsName == "" {
		p.StatsName = in.ID
	}

	sel, err := in.Res.Reg.ClaimGPIO(in.ID, p.SelectPin)
	if err != nil {
		return nil, err
	}
	resp, err := in.Res.Reg.ClaimGPIO(in.ID, p.ResponsePin)
	if err != nil {
		in.Res.Reg.ReleaseGPIO(in.ID, p.SelectPin)
		return nil, err
	}

	sess := seelevel.New(wirePins{sel: sel, resp: resp}, in.Res.Reg.Clock())
	if err := sess.Configure(p.Protocol); err != nil {
		in.Res.Reg.ReleaseGPIO(in.ID, p.ResponsePin)
		in.Res.Reg.ReleaseGPIO(in.ID, p.SelectPin)
		return nil, errcode.InvalidParams
	}
	sess.SetCalibration(p.Calibration)

	d := &Device{
		id:     in.ID,
		res:    in.Res,
		params: p,
		sel:    sel,
		resp:   resp,
		sess:   sess,
		stats:  core.CapAddr{Domain: p.Domain, Kind: types.KindSeeLevelStats, Name: p.StatsName},
	}
	for _, s := range p.Sensors {
		d.tanks = append(d.tanks, tank{
			addr:   core.CapAddr{Domain: p.Domain, Kind: types.KindTankLevel, Name: s.Name},
			sensor: s.Addr,
		})
	}
	return d, nil
}

// check performs declarative validation only; nothing is claimed.
func (p Params) check() error {
	if p.SelectPin < 0 || p.ResponsePin < 0 || p.SelectPin == p.ResponsePin {
		return errcode.InvalidParams
	}
	if len(p.Sensors) == 0 {
		return errcode.InvalidParams
	}
	if fb := p.Protocol.FrameBytes; fb > 0 && fb < seelevel.MinFrameBytes {
		return errcode.InvalidParams
	}
	max := p.Protocol.MaxSensors
	if max == 0 {
		max = seelevel.DefaultMaxSensors
	}
	names := map[string]bool{}
	addrs := map[int]bool{}
	for _, s := range p.Sensors {
		if s.Name == "" || names[s.Name] || addrs[s.Addr] {
			return errcode.InvalidParams
		}
		if !mathx.Between(s.Addr, 0, max-1) {
			return errcode.InvalidAddress
		}
		names[s.Name] = true
		addrs[s.Addr] = true
	}
	return nil
}

// wirePins adapts two claimed GPIOs to the driver's line interface.
type wirePins struct {
	sel, resp core.GPIOHandle
}

func (w wirePins) SetSelect(high bool) { w.sel.Set(high) }
func (w wirePins) Response() bool      { return w.resp.Get() }
