package config

import (
	"time"

	"github.com/cpk123/tank-level/drivers/seelevel"
	seeleveldev "github.com/cpk123/tank-level/services/hal/devices/seelevel"
	"github.com/cpk123/tank-level/types"
)

// CalibrationStore maps a sensor address to its calibration table.
type CalibrationStore map[int]seelevel.CalibrationTable

var _ seelevel.CalibrationSource = CalibrationStore(nil)

// Lookup returns the table for addr, or nil when the tank is uncalibrated.
func (s CalibrationStore) Lookup(addr int) seelevel.CalibrationTable { return s[addr] }

// Calibration collects the per-tank tables of a bus.
func (b BusConfig) Calibration() CalibrationStore {
	store := CalibrationStore{}
	for _, t := range b.Tanks {
		if len(t.Calibration) == 0 {
			continue
		}
		tbl := seelevel.CalibrationTable{}
		for _, c := range t.Calibration {
			tbl[c.Segment] = seelevel.SegmentCal{Empty: c.Empty, Full: c.Full}
		}
		store[t.Addr] = tbl
	}
	return store
}

// Driver converts protocol overrides to driver parameters.
func (p ProtocolConfig) Driver() seelevel.Config {
	return seelevel.Config{
		MaxSensors:      p.MaxSensors,
		FrameBytes:      p.FrameBytes,
		BitThreshold:    p.BitThresholdUs,
		ResponseTimeout: time.Duration(p.ResponseTimeoutMs) * time.Millisecond,
		PulseTimeout:    time.Duration(p.PulseTimeoutUs) * time.Microsecond,
	}
}

// HALConfig builds one seelevel device per bus. With polling enabled each
// bus gets a read_all schedule, so all its tanks share one power cycle.
func (c *Config) HALConfig() types.HALConfig {
	var out types.HALConfig
	for _, b := range c.Buses {
		p := seeleveldev.Params{
			SelectPin:   b.SelectPin,
			ResponsePin: b.ResponsePin,
			Domain:      b.Domain,
			StatsName:   b.ID,
			Protocol:    b.Protocol.Driver(),
			Calibration: b.Calibration(),
		}
		for _, t := range b.Tanks {
			p.Sensors = append(p.Sensors, seeleveldev.Sensor{Name: t.Name, Addr: t.Addr})
		}
		out.Devices = append(out.Devices, types.HALDevice{ID: b.ID, Type: seeleveldev.Type, Params: p})

		if c.Poll.IntervalMs > 0 {
			out.Pollers = append(out.Pollers, types.PollSpec{
				Domain:     b.Domain,
				Kind:       types.KindSeeLevelStats,
				Name:       b.ID,
				Verb:       "read_all",
				IntervalMs: c.Poll.IntervalMs,
				JitterMs:   c.Poll.JitterMs,
			})
		}
	}
	return out
}
