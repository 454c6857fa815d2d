package timex

import "time"

var start = time.Now()

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Micros returns microseconds since process start on the monotonic clock.
// It wraps every ~71.6 minutes; compare values with unsigned subtraction.
func Micros() uint32 { return uint32(time.Since(start) / time.Microsecond) }

// SinceMicros returns the elapsed microseconds from t0, wrap-safe.
func SinceMicros(t0 uint32) uint32 { return Micros() - t0 }
