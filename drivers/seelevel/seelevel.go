// Package seelevel provides a driver for SeeLevel capacitive-strip tank
// level sensors. Several sensors share one select line and one response
// line; a sensor is addressed by the number of pulses on the select line and
// answers with a pulse-width encoded frame on the response line:
//
//	s := seelevel.New(pins, clock)
//	s.Configure()
//	s.PowerUp()
//	pct, err := s.ReadLevel(0)   // select → capture → decode → validate → estimate
//	s.PowerDown()
//
// The driver talks to hardware only through the Pins and Clock interfaces so
// the protocol can be exercised against a simulated line. It performs no
// retries and no logging; callers decide what to do with the sentinel errors.
//
// Capture is a busy-polling loop. Every wait is bounded, so an absent or
// silent sensor produces ErrNoResponse rather than blocking.
package seelevel

import (
	"errors"
	"time"
)

// Protocol defaults (datasheet values).
const (
	DefaultMaxSensors   = 3
	DefaultFrameBytes   = 12
	MinFrameBytes       = 3  // smallest frame carrying a segment
	DefaultBitThreshold = 26 // µs; a low period shorter than this is a 1

	DefaultSelectHigh      = 85 * time.Microsecond
	DefaultSelectLow       = 215 * time.Microsecond
	DefaultPowerUpSettle   = 2450 * time.Microsecond
	DefaultPowerDownSettle = 100 * time.Millisecond

	// Bounds for the busy-waits in CapturePulses. The first wait covers the
	// sensor's wake-up latency after the select train.
	DefaultResponseTimeout = 25 * time.Millisecond
	DefaultPulseTimeout    = 2 * time.Millisecond

	DefaultPreambleMask  = 0xF0
	DefaultPreambleMatch = 0x90

	bitsPerByte = 8
	fullScale   = 255
)

// Errors returned by the driver.
var (
	ErrNoResponse            = errors.New("seelevel: no response")
	ErrPreamble              = errors.New("seelevel: invalid preamble")
	ErrChecksum              = errors.New("seelevel: checksum mismatch")
	ErrCalibratedUnsupported = errors.New("seelevel: calibrated decode unsupported")
	ErrInvalidAddress        = errors.New("seelevel: invalid sensor address")
	ErrFrameSize             = errors.New("seelevel: frame too short for a payload")
)

// Config holds the protocol parameters. Zero fields take the defaults above.
type Config struct {
	// MaxSensors is the number of physically wired sensors; addresses are
	// 0..MaxSensors-1.
	MaxSensors int
	// FrameBytes is the response frame size; 8 pulses are captured per byte.
	FrameBytes int
	// BitThreshold in µs. Widths strictly below it decode as 1.
	BitThreshold uint32

	SelectHigh      time.Duration
	SelectLow       time.Duration
	PowerUpSettle   time.Duration
	PowerDownSettle time.Duration

	ResponseTimeout time.Duration
	PulseTimeout    time.Duration

	PreambleMask  byte
	PreambleMatch byte
}

// DefaultConfig returns the datasheet parameters.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// Pulses returns the number of pulse widths making up one frame.
func (c Config) Pulses() int { return c.FrameBytes * bitsPerByte }

func (c Config) withDefaults() Config {
	if c.MaxSensors <= 0 {
		c.MaxSensors = DefaultMaxSensors
	}
	if c.FrameBytes <= 0 {
		c.FrameBytes = DefaultFrameBytes
	}
	if c.BitThreshold == 0 {
		c.BitThreshold = DefaultBitThreshold
	}
	if c.SelectHigh <= 0 {
		c.SelectHigh = DefaultSelectHigh
	}
	if c.SelectLow <= 0 {
		c.SelectLow = DefaultSelectLow
	}
	if c.PowerUpSettle <= 0 {
		c.PowerUpSettle = DefaultPowerUpSettle
	}
	if c.PowerDownSettle <= 0 {
		c.PowerDownSettle = DefaultPowerDownSettle
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.PulseTimeout <= 0 {
		c.PulseTimeout = DefaultPulseTimeout
	}
	// A zero mask would accept any first byte, so it is treated as unset.
	if c.PreambleMask == 0 {
		c.PreambleMask = DefaultPreambleMask
		c.PreambleMatch = DefaultPreambleMatch
	}
	return c
}

func (c Config) check() error {
	if c.FrameBytes < MinFrameBytes {
		return ErrFrameSize
	}
	return nil
}

// Pins is the hardware capability set the protocol needs.
type Pins interface {
	// SetSelect drives the shared select line (true = high).
	SetSelect(active bool)
	// Response samples the shared response line (true = high).
	Response() bool
}

// Clock is a monotonic microsecond time source with a precise sleep.
type Clock interface {
	// Micros returns a free-running µs counter. It may wrap.
	Micros() uint32
	// Sleep blocks for d. Short durations should busy-wait.
	Sleep(d time.Duration)
}

// SegmentCal holds the raw readings of one segment at empty and full.
type SegmentCal struct {
	Empty uint8
	Full  uint8
}

// CalibrationTable maps a segment index to its calibration. A nil or empty
// table means the uncalibrated estimate is used.
type CalibrationTable map[int]SegmentCal

// CalibrationSource supplies the calibration table of a sensor.
type CalibrationSource interface {
	Lookup(addr int) CalibrationTable
}

// NoCalibration is a CalibrationSource that never returns a table.
type NoCalibration struct{}

func (NoCalibration) Lookup(int) CalibrationTable { return nil }

func micros(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Microsecond)
}
