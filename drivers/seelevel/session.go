package seelevel

import (
	"sync"

	"tinygo.org/x/drivers"
)

// Stats counts read outcomes over the life of a Session.
type Stats struct {
	Reads       uint32 // read attempts with a valid address
	OK          uint32 // reads that produced a level
	NoResponse  uint32 // no, short or timed-out capture
	Preamble    uint32
	Checksum    uint32
	Unsupported uint32 // calibrated decode requested
}

// Session owns one select/response wire pair and the sensors behind it.
// All methods are safe for concurrent use; a whole read cycle holds the
// session lock because the bus has a single reader.
type Session struct {
	mu sync.Mutex

	pins Pins
	clk  Clock
	cal  CalibrationSource
	cfg  Config

	// Reused per read to avoid allocations on the hot path.
	pulses []uint32
	frame  []byte

	stats  Stats
	levels []float64 // last level per address (Update)
	valid  []bool
}

// Ensure Session satisfies the TinyGo sensor contract at compile time.
var _ drivers.Sensor = (*Session)(nil)

// New creates a Session. It does not touch the pins; call Configure before
// reading.
func New(pins Pins, clk Clock) *Session {
	return &Session{pins: pins, clk: clk, cal: NoCalibration{}}
}

// Configure applies optional protocol parameters and sizes the buffers.
// It may be called with no cfg to use the defaults. A frame size below
// MinFrameBytes yields ErrFrameSize and leaves the session unchanged.
func (s *Session) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	c = c.withDefaults()
	if err := c.check(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = c
	s.pulses = make([]uint32, c.Pulses())
	s.frame = make([]byte, c.FrameBytes)
	s.levels = make([]float64, c.MaxSensors)
	s.valid = make([]bool, c.MaxSensors)
	return nil
}

// Config returns the active parameters.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetCalibration installs the calibration source. nil restores the
// uncalibrated estimate for every sensor.
func (s *Session) SetCalibration(src CalibrationSource) {
	if src == nil {
		src = NoCalibration{}
	}
	s.mu.Lock()
	s.cal = src
	s.mu.Unlock()
}

func (s *Session) ensureConfigured() {
	if s.cfg.FrameBytes == 0 {
		c := DefaultConfig()
		s.cfg = c
		s.pulses = make([]uint32, c.Pulses())
		s.frame = make([]byte, c.FrameBytes)
		s.levels = make([]float64, c.MaxSensors)
		s.valid = make([]bool, c.MaxSensors)
	}
}

// PowerUp raises the select line, which powers the sensor bus, and waits
// for the sensors to settle.
func (s *Session) PowerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	s.pins.SetSelect(true)
	s.clk.Sleep(s.cfg.PowerUpSettle)
}

// PowerDown waits for the bus to go quiet and lowers the select line.
func (s *Session) PowerDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	s.clk.Sleep(s.cfg.PowerDownSettle)
	s.pins.SetSelect(false)
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStats clears the counters.
func (s *Session) ResetStats() {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()
}

// DecodeFrame converts pulse widths using the session parameters.
func (s *Session) DecodeFrame(pulses []uint32) ([]byte, error) {
	s.mu.Lock()
	s.ensureConfigured()
	cfg := s.cfg
	s.mu.Unlock()
	return DecodeFrame(pulses, cfg)
}

// Validate checks a frame with the session parameters and counts any failure.
func (s *Session) Validate(frame []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	return s.validate(frame)
}

func (s *Session) validate(frame []byte) ([]byte, error) {
	payload, err := validate(frame, s.cfg.FrameBytes, s.cfg.PreambleMask, s.cfg.PreambleMatch)
	s.count(err)
	return payload, err
}

func (s *Session) count(err error) {
	switch err {
	case nil:
	case ErrNoResponse:
		s.stats.NoResponse++
	case ErrPreamble:
		s.stats.Preamble++
	case ErrChecksum:
		s.stats.Checksum++
	case ErrCalibratedUnsupported:
		s.stats.Unsupported++
	}
}

// ReadFrame addresses sensor addr and returns its validated raw frame.
func (s *Session) ReadFrame(addr int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	if !s.validAddr(addr) {
		return nil, ErrInvalidAddress
	}
	s.stats.Reads++
	if _, err := s.readPayload(addr); err != nil {
		return nil, err
	}
	s.stats.OK++
	return append([]byte(nil), s.frame...), nil
}

// Reading is the outcome of one successful read.
type Reading struct {
	Percent  float64
	Segments []byte // validated payload, one byte per segment
}

// ReadLevel runs one full cycle against sensor addr and returns the fill
// percentage in [0,100].
func (s *Session) ReadLevel(addr int) (float64, error) {
	r, err := s.Read(addr)
	return r.Percent, err
}

// Read is ReadLevel that also returns the segment readings.
func (s *Session) Read(addr int) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	pct, err := s.readLevel(addr)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Percent: pct, Segments: append([]byte(nil), s.frame[2:]...)}, nil
}

func (s *Session) readLevel(addr int) (float64, error) {
	if !s.validAddr(addr) {
		return 0, ErrInvalidAddress
	}
	s.stats.Reads++
	s.valid[addr] = false
	payload, err := s.readPayload(addr)
	if err != nil {
		return 0, err
	}
	pct, err := Estimate(payload, s.cal.Lookup(addr))
	if err != nil {
		s.count(err)
		return 0, err
	}
	s.stats.OK++
	s.levels[addr] = pct
	s.valid[addr] = true
	return pct, nil
}

// readPayload: select, capture, decode, validate. Caller holds the lock.
func (s *Session) readPayload(addr int) ([]byte, error) {
	if err := s.selectDevice(addr); err != nil {
		return nil, err
	}
	n, err := s.capture(s.pulses)
	if err == nil {
		err = decodeInto(s.frame, s.pulses[:n], s.cfg.BitThreshold)
	}
	if err != nil {
		s.count(ErrNoResponse)
		return nil, ErrNoResponse
	}
	return s.validate(s.frame)
}

// Update implements drivers.Sensor. It powers the bus, reads every wired
// sensor once and caches the levels for Level. The first read error is
// returned after all sensors have been tried.
func (s *Session) Update(which drivers.Measurement) error {
	if which == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()

	s.pins.SetSelect(true)
	s.clk.Sleep(s.cfg.PowerUpSettle)

	var first error
	for addr := 0; addr < s.cfg.MaxSensors; addr++ {
		if _, err := s.readLevel(addr); err != nil {
			if first == nil {
				first = err
			}
		}
	}

	s.clk.Sleep(s.cfg.PowerDownSettle)
	s.pins.SetSelect(false)
	return first
}

// Level returns the level cached by the last successful read of addr. A
// failed read clears it.
func (s *Session) Level(addr int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr < 0 || addr >= len(s.valid) || !s.valid[addr] {
		return 0, false
	}
	return s.levels[addr], true
}
