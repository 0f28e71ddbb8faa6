// Package device discovers tuner units on the network.
//
// Three sources feed one list:
//
//	┌──────────────────┐   ┌──────────────────┐   ┌──────────────────┐
//	│    Broadcast     │   │   Cloud (HTTP)   │   │   Manual hosts   │
//	│  (broadcast.go)  │   │    (cloud.go)    │   │  (config list)   │
//	└────────┬─────────┘   └────────┬─────────┘   └────────┬─────────┘
//	         │  empty? ────────────▶│                      │
//	         ▼                      ▼                      ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     Discovery (discovery.go)                     │
//	│  • broadcast first, cloud fallback cached until forced refresh   │
//	│  • manual host lookups cached for HostCacheTTL                   │
//	│  • de-duplicated by id, first seen wins                          │
//	└─────────────────────────────────────────────────────────────────┘
//
// Unreachable manual hosts are reported with Online=false rather than
// dropped, so the UI keeps showing them.
//
// # Usage
//
//	d := device.NewDiscovery(runner, device.NewCloudClient("", 10*time.Second), device.Options{
//	    AutoDiscovery: true,
//	    ManualHosts:   []string{"192.168.1.60"},
//	})
//	devices := d.Discover(ctx, false)
package device
