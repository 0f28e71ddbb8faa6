package device

import "time"

// Source records how a device was found.
type Source string

// Discovery sources.
const (
	SourceBroadcast Source = "broadcast"
	SourceCloud     Source = "cloud"
	SourceManual    Source = "manual"
)

// namePrefix starts every generated device name.
const namePrefix = "HDHomeRun"

// Device is one tuner unit as seen by the last discovery pass.
//
// ID is the vendor hardware id for broadcast and cloud discovered units and
// the configured host string for manual units. The two are never reconciled,
// so the same physical unit may appear under both ids if it is configured
// manually and also answers broadcast discovery.
type Device struct {
	ID     string `json:"id"`
	IP     string `json:"ip"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Source Source `json:"source"`
}

// cacheEntry is a manual host lookup and when it was made.
type cacheEntry struct {
	device    Device
	timestamp time.Time
}

// fresh reports whether the entry is younger than ttl at now.
func (e cacheEntry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.timestamp) < ttl
}

// deviceName builds the display name from an id and an optional model.
func deviceName(id, model string) string {
	if model == "" {
		return namePrefix + " " + id
	}
	return namePrefix + " " + id + " (" + model + ")"
}
