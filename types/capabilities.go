package types

// ------------------------
// Capability addressing & kinds
// ------------------------

type Kind string

const (
	KindTankLevel     Kind = "tank_level"
	KindSeeLevelStats Kind = "seelevel_stats"
)

// CapabilityAddress identifies a public capability on the bus.
type CapabilityAddress struct {
	Domain string `json:"domain"` // e.g. "tank"
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
}
