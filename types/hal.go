package types

// ------------------------
// Common HAL state (retained)
// ------------------------

type HALState struct {
	Level  string `json:"level"`  // "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"` // machine-readable short code
}

// ------------------------
// Polling (declarative)
// ------------------------

type PollSpec struct {
	Domain     string `json:"domain"`      // e.g. "tank"
	Kind       Kind   `json:"kind"`        // e.g. "tank_level"
	Name       string `json:"name"`        // e.g. "fresh"
	Verb       string `json:"verb"`        // typically "read"
	IntervalMs uint32 `json:"interval_ms"` // >0
	JitterMs   uint16 `json:"jitter_ms"`   // uniform [0..JitterMs]
}

// ------------------------
// HAL configuration
// ------------------------

type HALConfig struct {
	Devices []HALDevice `json:"devices"`
	Pollers []PollSpec  `json:"pollers,omitempty"`
}

type HALDevice struct {
	ID     string `json:"id"`     // logical device id
	Type   string `json:"type"`   // e.g. "seelevel"
	Params any    `json:"params"` // device-specific typed params
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ------------------------
// Info envelope (retained)
// ------------------------

type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}
