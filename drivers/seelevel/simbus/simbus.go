// Package simbus simulates a SeeLevel select/response wire pair in virtual
// time. Bus implements seelevel.Pins and seelevel.Clock: sampling the
// response line costs PollCost µs, Sleep advances the clock, and a sensor
// addressed by a select train answers with a scripted pulse waveform.
package simbus

import (
	"sync"
	"time"
)

// Waveform defaults, in µs.
const (
	DefaultPollCost  = 1
	DefaultOneWidth  = 10
	DefaultZeroWidth = 40
	DefaultHighWidth = 30
	DefaultLead      = 50

	// A rising edge after a low period this long starts a new select train.
	trainGap = 1000
)

// Edge is one transition of the select line.
type Edge struct {
	At    uint32 // µs
	Level bool
}

type segment struct {
	end   uint32 // offset from wave start, exclusive
	level bool
}

// Bus is a simulated sensor bus. The zero value is not usable; use New.
type Bus struct {
	mu sync.Mutex

	PollCost  uint32
	OneWidth  uint32
	ZeroWidth uint32
	HighWidth uint32
	Lead      uint32

	now uint32

	sel      bool
	lastFall uint32
	falls    int
	edges    []Edge

	responses map[int][]uint32
	selected  []int

	wave      []segment
	waveStart uint32
}

// New returns an idle bus with no sensors attached.
func New() *Bus {
	return &Bus{
		PollCost:  DefaultPollCost,
		OneWidth:  DefaultOneWidth,
		ZeroWidth: DefaultZeroWidth,
		HighWidth: DefaultHighWidth,
		Lead:      DefaultLead,
		responses: make(map[int][]uint32),
	}
}

// SetFrame attaches a sensor at addr answering with frame.
func (b *Bus) SetFrame(addr int, frame []byte) {
	b.mu.Lock()
	b.responses[addr] = b.encode(frame)
	b.mu.Unlock()
}

// SetPulses attaches a sensor at addr answering with raw low-period widths.
// A short list models a sensor that stops mid-frame.
func (b *Bus) SetPulses(addr int, widths []uint32) {
	b.mu.Lock()
	b.responses[addr] = append([]uint32(nil), widths...)
	b.mu.Unlock()
}

// Remove detaches the sensor at addr; it will not answer.
func (b *Bus) Remove(addr int) {
	b.mu.Lock()
	delete(b.responses, addr)
	b.mu.Unlock()
}

// Widths encodes frame as the low-period widths a sensor would emit, most
// significant bit first.
func (b *Bus) Widths(frame []byte) []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encode(frame)
}

func (b *Bus) encode(frame []byte) []uint32 {
	out := make([]uint32, 0, len(frame)*8)
	for _, v := range frame {
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				out = append(out, b.OneWidth)
			} else {
				out = append(out, b.ZeroWidth)
			}
		}
	}
	return out
}

// BuildFrame wraps payload in a frame with a valid preamble and checksum.
func BuildFrame(payload []byte) []byte {
	var sum byte
	for _, v := range payload {
		sum += v
	}
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, 0x9A, sum-2)
	return append(frame, payload...)
}

// Payload synthesises the segment readings of a tank filled to pct: covered
// segments read full, the surface segment reads in proportion to its cover
// and the rest read 0. Segment 0 is the top of the strip.
func Payload(pct float64, segments int, full byte) []byte {
	out := make([]byte, segments)
	if pct <= 0 || segments == 0 {
		return out
	}
	if pct > 100 {
		pct = 100
	}
	covered := pct * float64(segments) / 100
	whole := int(covered)
	for i := 0; i < whole; i++ {
		out[segments-1-i] = full
	}
	if whole < segments {
		out[segments-1-whole] = byte((covered-float64(whole))*float64(full) + 0.5)
	}
	return out
}

// Edges returns the recorded select-line transitions.
func (b *Bus) Edges() []Edge {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Edge(nil), b.edges...)
}

// ClearEdges forgets recorded transitions and selections.
func (b *Bus) ClearEdges() {
	b.mu.Lock()
	b.edges = nil
	b.selected = nil
	b.mu.Unlock()
}

// Selected returns the addresses decoded from each select train so far.
func (b *Bus) Selected() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.selected...)
}

// SetSelect implements seelevel.Pins.
func (b *Bus) SetSelect(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active == b.sel {
		return
	}
	b.sel = active
	b.edges = append(b.edges, Edge{At: b.now, Level: active})
	if active {
		if b.falls > 0 && b.now-b.lastFall >= trainGap {
			b.falls = 0
		}
		b.wave = nil
		return
	}
	b.falls++
	b.lastFall = b.now
}

// Response implements seelevel.Pins. The first sample after a completed
// select train latches the address and starts that sensor's waveform.
func (b *Bus) Response() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.falls > 0 && !b.sel {
		addr := b.falls - 1
		b.falls = 0
		b.selected = append(b.selected, addr)
		b.startWave(b.responses[addr])
	}
	lvl := b.levelAt(b.now)
	b.now += b.PollCost
	return lvl
}

func (b *Bus) startWave(widths []uint32) {
	b.wave = b.wave[:0]
	b.waveStart = b.now
	t := b.Lead
	b.wave = append(b.wave, segment{end: t, level: true})
	for _, w := range widths {
		t += w
		b.wave = append(b.wave, segment{end: t, level: false})
		t += b.HighWidth
		b.wave = append(b.wave, segment{end: t, level: true})
	}
}

// levelAt: idle high outside the waveform.
func (b *Bus) levelAt(t uint32) bool {
	off := t - b.waveStart
	for _, s := range b.wave {
		if off < s.end {
			return s.level
		}
	}
	return true
}

// Micros implements seelevel.Clock.
func (b *Bus) Micros() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// Sleep implements seelevel.Clock by advancing virtual time.
func (b *Bus) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	b.now += uint32(d / time.Microsecond)
	b.mu.Unlock()
}

// Advance moves virtual time forward without any line activity.
func (b *Bus) Advance(us uint32) {
	b.mu.Lock()
	b.now += us
	b.mu.Unlock()
}
