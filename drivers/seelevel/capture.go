package seelevel

// SelectDevice addresses sensor index by driving index+1 pulses on the select
// line. The addressed sensor only listens for a short window afterwards, so a
// capture must follow immediately. Out-of-range indices are rejected before
// the line is touched.
func (s *Session) SelectDevice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	return s.selectDevice(index)
}

func (s *Session) selectDevice(index int) error {
	if !s.validAddr(index) {
		return ErrInvalidAddress
	}
	for i := 0; i <= index; i++ {
		s.pins.SetSelect(true)
		s.clk.Sleep(s.cfg.SelectHigh)
		s.pins.SetSelect(false)
		s.clk.Sleep(s.cfg.SelectLow)
	}
	return nil
}

func (s *Session) validAddr(index int) bool {
	return index >= 0 && index < s.cfg.MaxSensors
}

// CapturePulses measures count consecutive low periods on the response line
// and returns their widths in µs. If the line stops toggling, the widths
// captured so far are returned with ErrNoResponse.
func (s *Session) CapturePulses(count int) ([]uint32, error) {
	if count <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConfigured()
	out := make([]uint32, count)
	n, err := s.capture(out)
	return out[:n], err
}

// capture fills dst and returns the number of widths stored. Per pulse it
// skips the remainder of the high phase, stamps the falling edge and times
// the low phase. Both waits are bounded; the first one by ResponseTimeout,
// the rest by PulseTimeout.
func (s *Session) capture(dst []uint32) (int, error) {
	read := s.pins.Response // cached for tighter polling
	limit := micros(s.cfg.PulseTimeout)
	wait := micros(s.cfg.ResponseTimeout)
	for i := range dst {
		t0 := s.clk.Micros()
		for read() {
			if s.clk.Micros()-t0 >= wait {
				return i, ErrNoResponse
			}
		}
		wait = limit

		start := s.clk.Micros()
		for !read() {
			if s.clk.Micros()-start >= limit {
				return i, ErrNoResponse
			}
		}
		dst[i] = s.clk.Micros() - start
	}
	return len(dst), nil
}
