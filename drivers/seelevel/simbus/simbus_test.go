package simbus

import (
	"bytes"
	"testing"
)

func TestPayload(t *testing.T) {
	cases := []struct {
		pct  float64
		want []byte
	}{
		{0, []byte{0, 0, 0, 0}},
		{-5, []byte{0, 0, 0, 0}},
		{50, []byte{0, 0, 200, 200}},
		{62.5, []byte{0, 100, 200, 200}},
		{100, []byte{200, 200, 200, 200}},
		{130, []byte{200, 200, 200, 200}},
		{0.01, []byte{0, 0, 0, 0}},
	}
	for _, c := range cases {
		if got := Payload(c.pct, 4, 200); !bytes.Equal(got, c.want) {
			t.Errorf("Payload(%v) = %v, want %v", c.pct, got, c.want)
		}
	}
}

func TestBuildFrame_Checksum(t *testing.T) {
	f := BuildFrame([]byte{1, 2, 3})
	if f[0] != 0x9A || f[1] != 4 || !bytes.Equal(f[2:], []byte{1, 2, 3}) {
		t.Fatalf("frame = % x", f)
	}
}

func TestSelectEdgesOnlyOnChange(t *testing.T) {
	b := New()
	b.SetSelect(true)
	b.SetSelect(true)
	b.Advance(10)
	b.SetSelect(false)
	if n := len(b.Edges()); n != 2 {
		t.Fatalf("edges = %d, want 2", n)
	}
	b.ClearEdges()
	if len(b.Edges()) != 0 {
		t.Fatal("edges not cleared")
	}
}
