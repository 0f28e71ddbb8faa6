package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/tunerwatch/internal/monitor"
	"github.com/nerrad567/tunerwatch/internal/process"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          BackendMetrics `json:"mqtt"`
	InfluxDB      BackendMetrics `json:"influxdb"`
	ScanHistory   BackendMetrics `json:"scan_history"`
	Sessions      SessionMetrics `json:"sessions"`
	Runner        *process.Stats `json:"runner,omitempty"`
	Devices       DeviceMetrics  `json:"devices"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// BackendMetrics reports an optional publishing backend.
type BackendMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// SessionMetrics lists the active monitoring sessions.
type SessionMetrics struct {
	Active int                   `json:"active"`
	List   []monitor.SessionInfo `json:"list"`
}

// DeviceMetrics summarises the last discovered device list.
type DeviceMetrics struct {
	Total  int `json:"total"`
	Online int `json:"online"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	// Collect runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sessions := s.sessions.Sessions()
	if sessions == nil {
		sessions = []monitor.SessionInfo{}
	}

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Sessions: SessionMetrics{
			Active: len(sessions),
			List:   sessions,
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = BackendMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = BackendMetrics{Enabled: true, Connected: s.influx.IsConnected()}
	}

	if s.scans != nil {
		metrics.ScanHistory = BackendMetrics{Enabled: true, Connected: true}
	}

	if s.runner != nil {
		stats := s.runner.Stats()
		metrics.Runner = &stats
	}

	devices := s.devices.Devices()
	metrics.Devices.Total = len(devices)
	for _, d := range devices {
		if d.Online {
			metrics.Devices.Online++
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
