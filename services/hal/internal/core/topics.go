package core

import (
	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/types"
)

func T(levels ...string) bus.Topic { return bus.T(levels...) }

func TopicConfigHAL() bus.Topic { return T("config", "hal") }
func TopicHALState() bus.Topic  { return T("hal", "state") }

// hal/cap/<domain>/<kind>/<name>/...
func capBase(a CapAddr) bus.Topic { return T("hal", "cap", a.Domain, string(a.Kind), a.Name) }

func CapInfo(a CapAddr) bus.Topic   { return capBase(a).Append("info") }
func CapStatus(a CapAddr) bus.Topic { return capBase(a).Append("status") }
func CapValue(a CapAddr) bus.Topic  { return capBase(a).Append("value") }

// CapAny matches info, status and value of one capability.
func CapAny(a CapAddr) bus.Topic { return capBase(a).Append("+") }

// hal/cap/<domain>/<kind>/<name>/control/<verb>
func CapCtrl(a CapAddr, verb string) bus.Topic { return capBase(a).Append("control", verb) }

// hal/cap/+/+/+/control/+
func ctrlWildcard() bus.Topic {
	return T("hal", "cap", "+", "+", "+", "control", "+")
}

// parseCtrl splits a control topic into its capability and verb.
func parseCtrl(t bus.Topic) (CapAddr, string, bool) {
	if len(t) != 7 || t[0] != "hal" || t[1] != "cap" || t[5] != "control" {
		return CapAddr{}, "", false
	}
	return CapAddr{Domain: t[2], Kind: types.Kind(t[3]), Name: t[4]}, t[6], true
}
