// Package api provides the HTTP REST API and WebSocket server for tunerwatch.
//
// It exposes device discovery, tuner reads and commands, and per-client
// monitoring sessions to browser and script clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/tunerwatch/internal/device"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/config"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/logging"
	"github.com/nerrad567/tunerwatch/internal/monitor"
	"github.com/nerrad567/tunerwatch/internal/process"
	"github.com/nerrad567/tunerwatch/internal/scanhistory"
	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceDirectory is what the API needs from device discovery.
// *device.Discovery satisfies it.
type DeviceDirectory interface {
	Discover(ctx context.Context, forceRefresh bool) []device.Device
	Devices() []device.Device
	Device(id string) (device.Device, error)
}

// TunerControl is what the API needs from the tuner probe.
// *tuner.Probe satisfies it.
type TunerControl interface {
	GetDeviceInfo(ctx context.Context, deviceID string) (tuner.DeviceInfo, error)
	GetTunerStatus(ctx context.Context, deviceID string, idx int) *tuner.Status
	GetProgramsWithRetry(ctx context.Context, deviceID string, idx, maxRetries int) []tuner.ProgramEntry
	GetPlpInfo(ctx context.Context, deviceID string, idx int) map[int]tuner.PlpEntry
	GetL1Info(ctx context.Context, deviceID string, idx int) tuner.L1Info
	SetChannel(ctx context.Context, deviceID string, idx, channel int) error
	SetAtsc3Channel(ctx context.Context, deviceID string, idx, channel int) error
	IncrementChannel(ctx context.Context, deviceID string, idx int) (int, error)
	DecrementChannel(ctx context.Context, deviceID string, idx int) (int, error)
	ClearTuner(ctx context.Context, deviceID string, idx int) error
	SetProgram(ctx context.Context, deviceID string, idx, program int) error
	ScanChannels(ctx context.Context, deviceID string, idx int) ([]tuner.ChannelScanResult, error)
}

// SessionManager is what WebSocket clients need to run monitoring sessions.
// *monitor.Manager satisfies it.
type SessionManager interface {
	StartMonitoring(clientID, deviceID string, idx int, sink monitor.Sink) error
	StartAntennaMode(clientID, deviceID string, tunerCount int, sink monitor.Sink) error
	StopMonitoring(clientID string)
	Sessions() []monitor.SessionInfo
}

// ScanStore keeps completed channel scans.
// *scanhistory.SQLiteRepository satisfies it.
type ScanStore interface {
	Save(ctx context.Context, deviceID string, idx int, scannedAt time.Time, channels []tuner.ChannelScanResult) (scanhistory.Record, error)
	Latest(ctx context.Context, deviceID string, idx int) (scanhistory.Record, error)
	List(ctx context.Context, deviceID string, limit int) ([]scanhistory.Summary, error)
}

// ConnectionStatus reports whether an optional backend is connected.
// *mqtt.Client and *influxdb.Client satisfy it.
type ConnectionStatus interface {
	IsConnected() bool
}

// RunnerStats exposes command runner counters. *process.Runner satisfies it.
type RunnerStats interface {
	Stats() process.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config         config.APIConfig
	WS             config.WebSocketConfig
	Logger         *logging.Logger
	Devices        DeviceDirectory
	Tuners         TunerControl
	Sessions       SessionManager
	Scans          ScanStore        // optional, scan history
	Runner         RunnerStats      // optional, for metrics
	MQTT           ConnectionStatus // optional, for metrics
	InfluxDB       ConnectionStatus // optional, for metrics
	ProgramRetries int
	Version        string
}

// Server is the HTTP API server for tunerwatch.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	logger         *logging.Logger
	devices        DeviceDirectory
	tuners         TunerControl
	sessions       SessionManager
	scans          ScanStore
	runner         RunnerStats
	mqtt           ConnectionStatus
	influx         ConnectionStatus
	programRetries int
	version        string
	startTime      time.Time
	server         *http.Server
	hub            *Hub
	cancel         context.CancelFunc // stops the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns an error if a required dependency is missing.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device directory is required")
	}
	if deps.Tuners == nil {
		return nil, fmt.Errorf("tuner control is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	return &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		logger:         deps.Logger,
		devices:        deps.Devices,
		tuners:         deps.Tuners,
		sessions:       deps.Sessions,
		scans:          deps.Scans,
		runner:         deps.Runner,
		mqtt:           deps.MQTT,
		influx:         deps.InfluxDB,
		programRetries: deps.ProgramRetries,
		version:        deps.Version,
		startTime:      time.Now(),
		hub:            NewHub(deps.WS, deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
