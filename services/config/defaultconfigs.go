package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw YAML for that device
// -----------------------------------------------------------------------------

const cfgPico = `
device: pico
buses:
  - id: wire0
    select_pin: 0
    response_pin: 1
    tanks:
      - name: fresh
        addr: 0
      - name: grey
        addr: 1
      - name: black
        addr: 2
poll:
  interval_ms: 60000
  jitter_ms: 500
heartbeat:
  interval_s: 300
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
