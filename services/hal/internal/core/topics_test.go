package core

import (
	"testing"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/types"
)

func TestParseCtrl(t *testing.T) {
	a, verb, ok := parseCtrl(CapCtrl(fresh, "read"))
	if !ok || a != fresh || verb != "read" {
		t.Fatalf("round trip: %v %q %v", a, verb, ok)
	}
	if !bus.Match(ctrlWildcard(), CapCtrl(fresh, "read")) {
		t.Fatal("wildcard does not match control topic")
	}

	bad := []bus.Topic{
		bus.T("hal", "cap", "tank", "tank_level", "fresh", "value"),
		bus.T("hal", "cap", "tank", "tank_level", "fresh", "control"),
		bus.T("cfg", "cap", "tank", "tank_level", "fresh", "control", "read"),
	}
	for _, tp := range bad {
		if _, _, ok := parseCtrl(tp); ok {
			t.Errorf("parseCtrl(%v) accepted", tp)
		}
	}
}

func TestCapTopics(t *testing.T) {
	stats := CapAddr{Domain: "tank", Kind: types.KindSeeLevelStats, Name: "wire0"}
	if got := CapValue(stats).String(); got != "hal/cap/tank/seelevel_stats/wire0/value" {
		t.Fatalf("value topic %q", got)
	}
	if got := CapStatus(fresh).String(); got != "hal/cap/tank/tank_level/fresh/status" {
		t.Fatalf("status topic %q", got)
	}
}
