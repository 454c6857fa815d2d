package seelevel

import "github.com/cpk123/tank-level/x/mathx"

// Estimate converts a validated segment payload into a fill percentage.
//
// Segments read 0 when uncovered or not fitted. The last nonzero segment is
// the base of the strip and the first nonzero segment is the one spanning
// the liquid surface; every segment between them counts as full and the
// surface segment contributes its reading relative to the average filled
// reading. The model assumes a rectangular tank and is an approximation.
//
// An all-zero payload is 0% whatever the calibration. A non-empty
// calibration table yields ErrCalibratedUnsupported.
func Estimate(payload []byte, cal CalibrationTable) (float64, error) {
	base := len(payload) - 1
	for base >= 0 && payload[base] == 0 {
		base--
	}
	if base < 0 {
		return 0, nil
	}
	if len(cal) != 0 {
		return 0, ErrCalibratedUnsupported
	}
	level := 0
	for payload[level] == 0 {
		level++
	}

	contribution := 100.0 / float64(base+1)

	var sum uint32
	for _, v := range payload[level+1:] {
		sum += uint32(v)
	}
	avg := float64(sum) / float64(base+1)
	if avg == 0 {
		// Only the surface segment is populated; compare it with full scale.
		avg = fullScale
	}

	raw := (float64(payload[level])/avg + float64(base-level)) * contribution
	return mathx.Clamp(raw, 0, 100), nil
}
