package tuner

// ChannelNone is the channel value reported by an idle tuner.
const ChannelNone = "none"

// Status is one snapshot of a tuner as reported by the status and debug queries.
//
// Optional fields are pointers: a nil field was absent from the device
// response. An unlocked tuner and a tuner reporting zero signal are therefore
// distinguishable.
type Status struct {
	Channel string `json:"channel"`
	Lock    bool   `json:"lock"`

	SS  *int `json:"ss,omitempty"`  // signal strength, percent
	SNQ *int `json:"snq,omitempty"` // signal-to-noise quality, percent
	SEQ *int `json:"seq,omitempty"` // symbol error quality, percent
	BPS *int `json:"bps,omitempty"` // bits per second on the wire
	PPS *int `json:"pps,omitempty"` // packets per second to the network

	// Estimated from the raw debug counters. See Estimate.
	SSDb     *float64 `json:"ssDb,omitempty"`
	SNRDb    *float64 `json:"snrDb,omitempty"`
	DebugRaw *string  `json:"debugRaw,omitempty"`
}

// Idle reports whether the tuner is not tuned to anything.
func (s *Status) Idle() bool {
	return s == nil || s.Channel == "" || s.Channel == ChannelNone
}

// DebugReading is the raw counter triple found in the debug output.
type DebugReading struct {
	Signal int
	SNR    int
	Third  int
	Raw    string
}

// PlpEntry describes one Physical Layer Pipe of an ATSC 3.0 multiplex.
// Only fields present in the device response are set.
type PlpEntry struct {
	SFI              *int    `json:"sfi,omitempty"`
	Modulation       *string `json:"modulation,omitempty"`
	CodeRate         *string `json:"coderate,omitempty"`
	Layer            *string `json:"layer,omitempty"`
	TimeInterleaving *string `json:"timeInterleaving,omitempty"`
	LLS              *bool   `json:"lls,omitempty"`
	Lock             *bool   `json:"lock,omitempty"`
}

// L1Info is the free-form physical layer detail reported in debug output.
type L1Info map[string]string

// ProgramEntry is one program (ATSC 1.0) or service (ATSC 3.0) in the
// stream currently received by a tuner.
type ProgramEntry struct {
	ProgramNum     int    `json:"programNum"`
	VirtualChannel string `json:"virtualChannel"`
	Name           string `json:"name"`
	Callsign       string `json:"callsign"`
	Status         string `json:"status,omitempty"`
	Encrypted      bool   `json:"encrypted"`
	ATSC3          bool   `json:"atsc3"`
}

// ChannelScanResult is one locked channel found during a scan.
type ChannelScanResult struct {
	Frequency  int64         `json:"frequency"`
	Channel    string        `json:"channel"`
	Modulation string        `json:"modulation"`
	SS         *int          `json:"ss,omitempty"`
	SNQ        *int          `json:"snq,omitempty"`
	SEQ        *int          `json:"seq,omitempty"`
	Programs   []ScanProgram `json:"programs"`
}

// ScanProgram is a program line reported under a scanned channel.
type ScanProgram struct {
	ProgramNum     int    `json:"programNum"`
	VirtualChannel string `json:"virtualChannel"`
	Name           string `json:"name"`
}

// DeviceInfo summarises the capabilities of one device.
type DeviceInfo struct {
	Model        string `json:"model"`
	Tuners       int    `json:"tuners"`
	ATSC3Support bool   `json:"atsc3Support"`
}
