package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/drivers/seelevel"
	seeleveldev "github.com/cpk123/tank-level/services/hal/devices/seelevel"
	"github.com/cpk123/tank-level/types"
)

// helper to build a bus quickly
func wire(id string, sel, resp int, tanks ...TankConfig) BusConfig {
	return BusConfig{ID: id, SelectPin: sel, ResponsePin: resp, Tanks: tanks}
}

func tank(name string, addr int) TankConfig { return TankConfig{Name: name, Addr: addr} }

func TestEmbeddedPico(t *testing.T) {
	cfg, err := Embedded("pico")
	if err != nil {
		t.Fatalf("embedded: %v", err)
	}
	if len(cfg.Buses) != 1 || len(cfg.Buses[0].Tanks) != 3 {
		t.Fatalf("unexpected layout: %+v", cfg)
	}
	b := cfg.Buses[0]
	if b.SelectPin != 0 || b.ResponsePin != 1 || b.Domain != "tank" {
		t.Fatalf("bus: %+v", b)
	}
	if _, err := Embedded("nope"); err == nil {
		t.Fatal("unknown device accepted")
	}
}

func TestParse_StrictAndCalibration(t *testing.T) {
	raw := `
buses:
  - id: aft
    select_pin: 6
    response_pin: 7
    domain: boat
    protocol:
      bit_threshold_us: 30
      response_timeout_ms: 40
    tanks:
      - name: water
        addr: 1
        calibration:
          - {segment: 0, empty: 4, full: 250}
          - {segment: 9, empty: 2, full: 240}
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := CalibrationStore{1: {0: {Empty: 4, Full: 250}, 9: {Empty: 2, Full: 240}}}
	if diff := cmp.Diff(want, cfg.Buses[0].Calibration()); diff != "" {
		t.Fatalf("calibration (-want +got):\n%s", diff)
	}
	if cfg.Buses[0].Calibration().Lookup(0) != nil {
		t.Fatal("uncalibrated address has a table")
	}
	d := cfg.Buses[0].Protocol.Driver()
	if d.BitThreshold != 30 || d.ResponseTimeout != 40*time.Millisecond || d.FrameBytes != 0 {
		t.Fatalf("driver config: %+v", d)
	}

	if _, err := Parse([]byte(raw + "bogus: 1\n")); err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string // substring; "" means valid
	}{
		{"ok", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0))}}, ""},
		{"no buses", Config{}, "no buses"},
		{"empty id", Config{Buses: []BusConfig{wire("", 0, 1, tank("a", 0))}}, "empty id"},
		{"dup bus", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0)), wire("w", 2, 3, tank("b", 0))}}, "duplicate id"},
		{"shared pin", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0)), wire("v", 1, 3, tank("b", 0))}}, "pin 1 already used"},
		{"same pin", Config{Buses: []BusConfig{wire("w", 2, 2, tank("a", 0))}}, "pin 2 already used"},
		{"no tanks", Config{Buses: []BusConfig{wire("w", 0, 1)}}, "no tanks"},
		{"addr range", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 3))}}, "outside 0..2"},
		{"dup addr", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0), tank("b", 0))}}, "already used by tank"},
		{"dup name across buses", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0)), wire("v", 2, 3, tank("a", 0))}}, "name already used"},
		{"jitter", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0))}, Poll: PollConfig{IntervalMs: 10, JitterMs: 10}}, "jitter_ms"},
		{"short frame", Config{Buses: []BusConfig{{ID: "w", SelectPin: 0, ResponsePin: 1, Protocol: ProtocolConfig{FrameBytes: 2}, Tanks: []TankConfig{tank("a", 0)}}}}, "no payload"},
		{"cal segment", Config{Buses: []BusConfig{wire("w", 0, 1, TankConfig{Name: "a", Calibration: []SegmentCalPair{{Segment: 10}}})}}, "outside 0..9"},
		{"cal dup", Config{Buses: []BusConfig{wire("w", 0, 1, TankConfig{Name: "a", Calibration: []SegmentCalPair{{Segment: 1}, {Segment: 1}}})}}, "listed twice"},
		{"heartbeat", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0))}, Heartbeat: HeartbeatConfig{IntervalS: -1}}, "interval_s"},
		{"qos", Config{Buses: []BusConfig{wire("w", 0, 1, tank("a", 0))}, Bridge: BridgeConfig{Broker: "tcp://b:1883", QoS: 3}}, "qos 3"},
		{"wider bus", Config{Buses: []BusConfig{{ID: "w", SelectPin: 0, ResponsePin: 1, Protocol: ProtocolConfig{MaxSensors: 5}, Tanks: []TankConfig{tank("a", 4)}}}}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(&c.cfg)
			if c.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("err = %v, want containing %q", err, c.want)
			}
		})
	}
}

func TestHALConfig(t *testing.T) {
	cfg := &Config{
		Buses: []BusConfig{wire("wire0", 0, 1, tank("fresh", 0), tank("grey", 2))},
		Poll:  PollConfig{IntervalMs: 1000, JitterMs: 50},
	}
	Normalize(cfg)
	hc := cfg.HALConfig()

	if len(hc.Devices) != 1 || hc.Devices[0].Type != "seelevel" || hc.Devices[0].ID != "wire0" {
		t.Fatalf("devices: %+v", hc.Devices)
	}
	p := hc.Devices[0].Params.(seeleveldev.Params)
	want := []seeleveldev.Sensor{{Name: "fresh", Addr: 0}, {Name: "grey", Addr: 2}}
	if diff := cmp.Diff(want, p.Sensors); diff != "" {
		t.Fatalf("sensors (-want +got):\n%s", diff)
	}
	if p.Domain != "tank" || p.StatsName != "wire0" || p.SelectPin != 0 || p.ResponsePin != 1 {
		t.Fatalf("params: %+v", p)
	}
	wantPoll := []types.PollSpec{{
		Domain: "tank", Kind: types.KindSeeLevelStats, Name: "wire0",
		Verb: "read_all", IntervalMs: 1000, JitterMs: 50,
	}}
	if diff := cmp.Diff(wantPoll, hc.Pollers); diff != "" {
		t.Fatalf("pollers (-want +got):\n%s", diff)
	}

	cfg.Poll = PollConfig{}
	if n := len(cfg.HALConfig().Pollers); n != 0 {
		t.Fatalf("polling disabled but %d pollers", n)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tanks.yaml")
	if err := os.WriteFile(path, []byte(cfgPico), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Device != "pico" || cfg.Poll.IntervalMs != 60000 {
		t.Fatalf("loaded: %+v", cfg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestConfigService_PublishesRetainedHAL(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	NewConfigService(nil).Start(ctx, conn)

	sub := conn.Subscribe(bus.T(configPrefix, "hal"))
	select {
	case m := <-sub.Channel():
		hc, ok := m.Payload.(types.HALConfig)
		if !ok || len(hc.Devices) != 1 {
			t.Fatalf("payload: %#v", m.Payload)
		}
		if p := hc.Devices[0].Params.(seeleveldev.Params); len(p.Sensors) != 3 {
			t.Fatalf("sensors: %+v", p.Sensors)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("config/hal not published")
	}
}

func TestNormalize_BridgeDefaults(t *testing.T) {
	cfg := &Config{Device: "pico", Bridge: BridgeConfig{Broker: "tcp://b:1883"}}
	Normalize(cfg)
	want := BridgeConfig{Broker: "tcp://b:1883", ClientID: "tank-level-pico", Prefix: "tanks"}
	if diff := cmp.Diff(want, cfg.Bridge); diff != "" {
		t.Fatalf("bridge (-want +got):\n%s", diff)
	}

	off := &Config{}
	Normalize(off)
	if off.Bridge != (BridgeConfig{}) {
		t.Fatalf("disabled bridge got defaults: %+v", off.Bridge)
	}
}

func TestConfigService_PublishesSections(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")
	cfg := &Config{
		Buses:     []BusConfig{wire("wire0", 0, 1, tank("fresh", 0))},
		Heartbeat: HeartbeatConfig{IntervalS: 30},
		Bridge:    BridgeConfig{Broker: "tcp://b:1883", Prefix: "boat"},
	}
	NewConfigService(cfg).Start(context.Background(), conn)

	hb := conn.Subscribe(bus.T(configPrefix, "heartbeat"))
	br := conn.Subscribe(bus.T(configPrefix, "bridge"))
	for _, sub := range []*bus.Subscription{hb, br} {
		select {
		case m := <-sub.Channel():
			switch p := m.Payload.(type) {
			case HeartbeatConfig:
				if p.IntervalS != 30 {
					t.Fatalf("heartbeat: %+v", p)
				}
			case BridgeConfig:
				if p.Prefix != "boat" {
					t.Fatalf("bridge: %+v", p)
				}
			default:
				t.Fatalf("payload: %#v", m.Payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s not published", sub.Topic())
		}
	}
}

func TestCalibrationStore_DriverContract(t *testing.T) {
	var src seelevel.CalibrationSource = CalibrationStore{2: {0: {Empty: 1, Full: 2}}}
	if len(src.Lookup(2)) != 1 || src.Lookup(1) != nil {
		t.Fatal("lookup")
	}
}
