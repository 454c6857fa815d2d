// Package config loads the deployment configuration (YAML), validates it,
// and translates it into the HAL configuration published on config/hal.
package config

type Config struct {
	Device    string          `yaml:"device"` // board id, e.g. "pico"
	Buses     []BusConfig     `yaml:"buses"`
	Poll      PollConfig      `yaml:"poll"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Bridge    BridgeConfig    `yaml:"bridge"`
}

// ---- BUS ----

// BusConfig is one select/response wire pair.
type BusConfig struct {
	ID          string         `yaml:"id"`
	SelectPin   int            `yaml:"select_pin"`
	ResponsePin int            `yaml:"response_pin"`
	Domain      string         `yaml:"domain"` // default "tank"
	Protocol    ProtocolConfig `yaml:"protocol"`
	Tanks       []TankConfig   `yaml:"tanks"`
}

// ProtocolConfig overrides driver defaults; zero keeps the default.
type ProtocolConfig struct {
	MaxSensors        int    `yaml:"max_sensors"`
	FrameBytes        int    `yaml:"frame_bytes"`
	BitThresholdUs    uint32 `yaml:"bit_threshold_us"`
	ResponseTimeoutMs int    `yaml:"response_timeout_ms"`
	PulseTimeoutUs    int    `yaml:"pulse_timeout_us"`
}

// ---- TANK ----

type TankConfig struct {
	Name        string           `yaml:"name"`
	Addr        int              `yaml:"addr"`
	Calibration []SegmentCalPair `yaml:"calibration"` // empty: uncalibrated estimate
}

// SegmentCalPair holds the empty/full readings recorded for one segment.
type SegmentCalPair struct {
	Segment int   `yaml:"segment"`
	Empty   uint8 `yaml:"empty"`
	Full    uint8 `yaml:"full"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs uint32 `yaml:"interval_ms"` // 0 disables periodic reads
	JitterMs   uint16 `yaml:"jitter_ms"`
}

// ---- HEARTBEAT ----

// HeartbeatConfig controls the periodic level summary on the log.
type HeartbeatConfig struct {
	IntervalS int `yaml:"interval_s" json:"interval"` // 0 disables
}

// ---- BRIDGE ----

// BridgeConfig points the MQTT uplink at a broker. An empty Broker leaves
// the bridge unconfigured.
type BridgeConfig struct {
	Broker   string `yaml:"broker" json:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id" json:"client_id"`
	Prefix   string `yaml:"prefix" json:"prefix"` // default "tanks"
	QoS      byte   `yaml:"qos" json:"qos"`
	Retain   bool   `yaml:"retain" json:"retain"`
}
