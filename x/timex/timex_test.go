package timex

import (
	"testing"
	"time"
)

func TestMicrosMonotonic(t *testing.T) {
	t0 := Micros()
	time.Sleep(2 * time.Millisecond)
	if d := SinceMicros(t0); d < 2000 {
		t.Fatalf("elapsed %dµs, want >= 2000", d)
	}
}

func TestSinceMicrosWraps(t *testing.T) {
	// Unsigned subtraction across the 32-bit boundary.
	var before uint32 = 0xFFFF_FFF0
	var after uint32 = 0x10
	if got := after - before; got != 0x20 {
		t.Fatalf("got %d", got)
	}
}

func TestNowMs(t *testing.T) {
	if d := NowMs() - time.Now().UnixMilli(); d > 1 || d < -1 {
		t.Fatalf("skew %dms", d)
	}
}
