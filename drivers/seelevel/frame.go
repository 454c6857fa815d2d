package seelevel

// DecodeFrame converts 8*FrameBytes pulse widths into a frame. Bits arrive
// most significant first; each 8-pulse chunk is read back to front so bit i
// of the byte comes from pulse 7-i of the chunk. Any other pulse count is
// reported as ErrNoResponse and no pulse is indexed.
func DecodeFrame(pulses []uint32, cfg Config) ([]byte, error) {
	cfg = cfg.withDefaults()
	out := make([]byte, cfg.FrameBytes)
	if err := decodeInto(out, pulses, cfg.BitThreshold); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeInto fills dst, one byte per 8 pulses.
func decodeInto(dst []byte, pulses []uint32, threshold uint32) error {
	if len(dst) == 0 || len(pulses) != len(dst)*bitsPerByte {
		return ErrNoResponse
	}
	for b := range dst {
		chunk := pulses[b*bitsPerByte : b*bitsPerByte+bitsPerByte]
		var v byte
		for i := 0; i < bitsPerByte; i++ {
			if Bit(chunk[bitsPerByte-1-i], threshold) {
				v |= 1 << i
			}
		}
		dst[b] = v
	}
	return nil
}

// Bit classifies one pulse width: strictly below threshold is a 1.
func Bit(width, threshold uint32) bool { return width < threshold }

// Validate checks a frame of the expected size and returns its payload
// (frame[2:]). The preamble is the high nibble 1001 of byte 0.
func Validate(frame []byte, frameBytes int) ([]byte, error) {
	return validate(frame, frameBytes, DefaultPreambleMask, DefaultPreambleMatch)
}

func validate(frame []byte, frameBytes int, mask, match byte) ([]byte, error) {
	if frameBytes < MinFrameBytes {
		return nil, ErrFrameSize
	}
	if len(frame) < frameBytes {
		return nil, ErrNoResponse
	}
	frame = frame[:frameBytes]
	if frame[0]&mask != match {
		return nil, ErrPreamble
	}
	if !ChecksumOK(frame[1], frame[2:]) {
		return nil, ErrChecksum
	}
	return frame[2:], nil
}

// ChecksumOK reports whether (sum(payload) - (2 + header)) mod 256 == 0.
func ChecksumOK(header byte, payload []byte) bool {
	var sum byte // mod 256 by overflow
	for _, b := range payload {
		sum += b
	}
	return sum-(2+header) == 0
}
