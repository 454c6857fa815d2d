package bridge

import (
	"encoding/json"
	"strings"

	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/types"
	"github.com/cpk123/tank-level/x/mathx"
)

// tankLevel is the JSON document published for a tank_level value.
type tankLevel struct {
	Percent  float64 `json:"percent"`
	DeciPct  uint16  `json:"deci_pct"`
	Segments []int   `json:"segments,omitempty"`
}

// uplink maps hal/cap/<domain>/<kind>/<name>/<leaf> to
// <prefix>/<domain>/<kind>/<name>/<leaf> with a JSON body. Kinds other than
// the tank ones are skipped.
func uplink(prefix string, m *bus.Message) (string, []byte, bool) {
	if m == nil || len(m.Topic) != 6 || m.Payload == nil {
		return "", nil, false
	}
	kind := types.Kind(m.Topic[3])
	if kind != types.KindTankLevel && kind != types.KindSeeLevelStats {
		return "", nil, false
	}

	var doc any
	switch v := m.Payload.(type) {
	case types.TankLevelValue:
		tl := tankLevel{Percent: mathx.DeciToPercent(v.DeciPct), DeciPct: v.DeciPct}
		for _, b := range v.Segments {
			tl.Segments = append(tl.Segments, int(b))
		}
		doc = tl
	case types.SeeLevelStatsValue, types.CapabilityStatus:
		doc = v
	default:
		return "", nil, false
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, false
	}
	topic := strings.Join(append([]string{prefix}, m.Topic[2:]...), "/")
	return topic, body, true
}
