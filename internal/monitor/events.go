package monitor

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// Event types delivered to session sinks.
const (
	EventTunerStatus   = "tuner_status"
	EventAntennaStatus = "antenna_status"
)

// TunerStatusEvent is emitted once per tick in single-tuner mode.
//
// Status is nil when the tuner could not be read. PLP and L1 are only
// fetched while the tuner has a channel.
type TunerStatusEvent struct {
	DeviceID  string                 `json:"device_id"`
	Tuner     int                    `json:"tuner"`
	Status    *tuner.Status          `json:"status"`
	Program   string                 `json:"program,omitempty"`
	Bitrate   string                 `json:"bitrate,omitempty"`
	PLP       map[int]tuner.PlpEntry `json:"plp,omitempty"`
	L1        tuner.L1Info           `json:"l1,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// AntennaStatusEvent is emitted once per tick in antenna mode. Tuners has one
// entry per tuner index; a tuner that could not be read is nil.
type AntennaStatusEvent struct {
	DeviceID  string          `json:"device_id"`
	Tuners    []*tuner.Status `json:"tuners"`
	Timestamp time.Time       `json:"timestamp"`
}

// Sink receives the events of one session.
//
// Send is called from the session goroutine while the session is held live,
// so it must not call back into the Manager.
type Sink interface {
	Send(eventType string, payload any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(eventType string, payload any)

// Send calls f(eventType, payload).
func (f SinkFunc) Send(eventType string, payload any) { f(eventType, payload) }

// StatusObserver is told about every tuner status a live session reads.
// Implementations must not block; they run on the session goroutine.
type StatusObserver interface {
	ObserveStatus(deviceID string, tuner int, status *tuner.Status)
}

// formatBitrate renders a status bit rate as text rounded to one decimal,
// e.g. "19.4 Mbps". humanize truncates, so the value is rounded first.
func formatBitrate(st *tuner.Status) string {
	if st == nil || st.BPS == nil || *st.BPS <= 0 {
		return ""
	}
	value, prefix := humanize.ComputeSI(float64(*st.BPS))
	return humanize.FtoaWithDigits(math.Round(value*10)/10, 1) + " " + prefix + "bps"
}
