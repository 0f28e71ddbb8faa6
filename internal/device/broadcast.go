package device

import (
	"regexp"
	"strings"
)

// discoverPattern matches one line of the tool's discover output:
//
//	hdhomerun device 1084A2B3 found at 192.168.1.50
var discoverPattern = regexp.MustCompile(`(?i)device\s+([0-9a-f]{8})\s+found\s+at\s+(\S+)`)

// parseDiscoverOutput extracts devices from discover output. Lines such as
// "no devices found" yield nothing. Duplicate ids keep the first address.
func parseDiscoverOutput(out string) []Device {
	var (
		devices []Device
		seen    = make(map[string]bool)
	)
	for _, line := range strings.Split(out, "\n") {
		m := discoverPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id := strings.ToUpper(m[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		devices = append(devices, Device{
			ID:     id,
			IP:     m[2],
			Online: true,
			Source: SourceBroadcast,
		})
	}
	return devices
}
