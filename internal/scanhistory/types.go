package scanhistory

import (
	"errors"
	"time"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// ErrNotFound is returned when a tuner has no stored scan.
var ErrNotFound = errors.New("scanhistory: no scan recorded")

// Record is one completed channel scan.
type Record struct {
	ID        int64                     `json:"id"`
	DeviceID  string                    `json:"device_id"`
	Tuner     int                       `json:"tuner"`
	ScannedAt time.Time                 `json:"scanned_at"`
	Count     int                       `json:"count"`
	Channels  []tuner.ChannelScanResult `json:"channels"`
}

// Summary is a Record without its channel list.
type Summary struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Tuner     int       `json:"tuner"`
	ScannedAt time.Time `json:"scanned_at"`
	Count     int       `json:"count"`
}
