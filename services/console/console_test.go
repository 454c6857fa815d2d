package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/drivers/seelevel/simbus"
	"github.com/cpk123/tank-level/services/config"
	"github.com/cpk123/tank-level/services/hal"
	seeleveldev "github.com/cpk123/tank-level/services/hal/devices/seelevel"
	"github.com/cpk123/tank-level/types"
)

func startHAL(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sim := simbus.New()
	sim.SetFrame(0, simbus.BuildFrame([]byte{0, 0, 0, 0, 0, 0, 0, 80, 255, 255}))

	b := bus.NewBus(16)
	go hal.Run(ctx, b.NewConnection("hal"), hal.NewSimRegistry(hal.Board, sim))

	conn := b.NewConnection("console")
	state := conn.Subscribe(hal.TopicState())
	conn.Publish(conn.NewMessage(hal.TopicConfig(), types.HALConfig{Devices: []types.HALDevice{{
		ID: "wire0", Type: seeleveldev.Type, Params: seeleveldev.Params{
			SelectPin: 0, ResponsePin: 1,
			Sensors: []seeleveldev.Sensor{{Name: "fresh", Addr: 0}, {Name: "grey", Addr: 1}},
		},
	}}}, true))
	for ready := false; !ready; {
		select {
		case m := <-state.Channel():
			ready = m.Payload.(types.HALState).Level == "ready"
		case <-time.After(2 * time.Second):
			t.Fatal("HAL not ready")
		}
	}

	var out bytes.Buffer
	c := New(conn,
		[]Tank{{Domain: "tank", Name: "fresh", Addr: 0}, {Domain: "tank", Name: "grey", Addr: 1}},
		[]Wire{{Domain: "tank", Name: "wire0"}},
		&out)
	return c, &out
}

func exec(t *testing.T, c *Console, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	if err := c.Exec(context.Background(), line); err != nil {
		t.Fatalf("%q: %v", line, err)
	}
	return out.String()
}

func TestReadAndStats(t *testing.T) {
	c, out := startHAL(t)

	steps := []struct {
		line string
		want string
	}{
		{"read fresh", "fresh: 35.7%\n"},
		{"read 1", "grey: no_response\n"},
		{"read all", "fresh: 35.7%\ngrey: no_response\n"},
		{"stats", "wire0: reads=4 ok=2 no_response=2 preamble=0 checksum=0 unsupported=0\n"},
		{"reset", "wire0: reads=0 ok=0 no_response=0 preamble=0 checksum=0 unsupported=0\n"},
	}
	for _, s := range steps {
		if got := exec(t, c, out, s.line); got != s.want {
			t.Errorf("%q:\n got %q\nwant %q", s.line, got, s.want)
		}
	}
}

func TestExec_Errors(t *testing.T) {
	c := New(nil, []Tank{{Domain: "tank", Name: "fresh"}}, nil, &bytes.Buffer{})
	cases := []struct {
		line string
		want string
	}{
		{"read", "usage"},
		{"read black", `no tank "black"`},
		{"fill fresh", "unknown command"},
		{`read "fresh`, "EOF"},
	}
	for _, tc := range cases {
		err := c.Exec(context.Background(), tc.line)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%q: err = %v, want containing %q", tc.line, err, tc.want)
		}
	}
	if err := c.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("blank line: %v", err)
	}
}

func TestRun(t *testing.T) {
	c, out := startHAL(t)
	out.Reset()
	in := strings.NewReader("help\nread 'fresh'\nnope\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"commands:", "fresh: 35.7%", `error: unknown command "nope"`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	// Prompts start a line; the help text carries "> " mid-line.
	if n := strings.Count("\n"+got, "\n> "); n != 4 {
		t.Errorf("prompts = %d, want 4:\n%s", n, got)
	}
	if !strings.HasSuffix(got, "\n> ") {
		t.Errorf("output does not end with a fresh prompt:\n%s", got)
	}
}

func TestRun_HelpOnlyPromptsTwice(t *testing.T) {
	c, out := startHAL(t)
	out.Reset()
	if err := c.Run(context.Background(), strings.NewReader("help\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "<name|addr|all>  ") {
		t.Fatalf("help text changed:\n%s", got)
	}
	if n := strings.Count("\n"+got, "\n> "); n != 2 {
		t.Errorf("prompts = %d, want 2:\n%s", n, got)
	}
}

func TestTargets(t *testing.T) {
	cfg, err := config.Embedded("pico")
	if err != nil {
		t.Fatal(err)
	}
	tanks, wires := Targets(cfg)
	want := []Tank{{"tank", "fresh", 0}, {"tank", "grey", 1}, {"tank", "black", 2}}
	if diff := cmp.Diff(want, tanks); diff != "" {
		t.Fatalf("tanks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Wire{{"tank", "wire0"}}, wires); diff != "" {
		t.Fatalf("wires (-want +got):\n%s", diff)
	}
}
