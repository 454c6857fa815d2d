package mathx

// DeciPercent converts a percentage to tenths of a percent, rounded to
// nearest and clamped to 0..1000.
func DeciPercent(pct float64) uint16 {
	return uint16(Clamp(pct, 0, 100)*10 + 0.5)
}

// SplitDeci returns the whole and tenths parts of a deci value, for
// printing without floating point.
func SplitDeci(d uint16) (whole, tenths uint16) {
	return d / 10, d % 10
}

// DeciToPercent is the inverse of DeciPercent.
func DeciToPercent(d uint16) float64 { return float64(d) / 10 }
