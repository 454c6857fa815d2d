package types

// ------------------------
// Tank level (SeeLevel)
// ------------------------

type TankLevelInfo struct {
	Sensor   string `json:"sensor"`   // "seelevel"
	Addr     int    `json:"addr"`     // position in the select train
	Bus      string `json:"bus"`      // owning device id
	Segments int    `json:"segments"` // payload bytes per frame
	Cal      bool   `json:"calibrated"`
}

type TankLevelValue struct {
	// Tenths of a percent (0..1000 for 0..100.0%).
	DeciPct uint16 `json:"deci_pct"`
	// Raw segment readings the level was derived from.
	Segments []byte `json:"segments,omitempty"`
}

type SeeLevelStatsInfo struct {
	SelectPin   int `json:"select_pin"`
	ResponsePin int `json:"response_pin"`
	Sensors     int `json:"sensors"`
}

type SeeLevelStatsValue struct {
	Reads       uint32 `json:"reads"`
	OK          uint32 `json:"ok"`
	NoResponse  uint32 `json:"no_response"`
	Preamble    uint32 `json:"preamble"`
	Checksum    uint32 `json:"checksum"`
	Unsupported uint32 `json:"unsupported"`
}
