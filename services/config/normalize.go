package config

const (
	defaultDomain       = "tank"
	defaultBridgePrefix = "tanks"
)

// Normalize applies post-validation defaults. It must be called only after
// Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	for i := range cfg.Buses {
		b := &cfg.Buses[i]
		if b.Domain == "" {
			b.Domain = defaultDomain
		}
	}
	if br := &cfg.Bridge; br.Broker != "" {
		if br.Prefix == "" {
			br.Prefix = defaultBridgePrefix
		}
		if br.ClientID == "" {
			br.ClientID = "tank-level"
			if cfg.Device != "" {
				br.ClientID += "-" + cfg.Device
			}
		}
	}
}
