package console

import "github.com/cpk123/tank-level/services/config"

// Targets lists the tanks and wires a normalized config exposes.
func Targets(cfg *config.Config) ([]Tank, []Wire) {
	var tanks []Tank
	var wires []Wire
	for _, b := range cfg.Buses {
		wires = append(wires, Wire{Domain: b.Domain, Name: b.ID})
		for _, t := range b.Tanks {
			tanks = append(tanks, Tank{Domain: b.Domain, Name: t.Name, Addr: t.Addr})
		}
	}
	return tanks, wires
}
