package monitor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// DefaultInterval is the polling cadence of every session.
const DefaultInterval = time.Second

// MaxAntennaTuners bounds the tuner count of an antenna session. Each tuner
// costs two tool invocations per tick.
const MaxAntennaTuners = 16

// Mode is the kind of session a client is running.
type Mode string

// Session modes.
const (
	ModeSingle  Mode = "single"
	ModeAntenna Mode = "antenna"
)

// Prober is the subset of *tuner.Probe the manager polls with.
type Prober interface {
	GetTunerStatus(ctx context.Context, deviceID string, tuner int) *tuner.Status
	GetCurrentProgram(ctx context.Context, deviceID string, tuner int) string
	GetPlpInfo(ctx context.Context, deviceID string, tuner int) map[int]tuner.PlpEntry
	GetL1Info(ctx context.Context, deviceID string, tuner int) tuner.L1Info
}

// Logger defines the logging interface for the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SessionInfo describes a running session.
type SessionInfo struct {
	ClientID string    `json:"client_id"`
	Mode     Mode      `json:"mode"`
	DeviceID string    `json:"device_id"`
	Tuner    int       `json:"tuner,omitempty"`
	Tuners   int       `json:"tuners,omitempty"`
	Started  time.Time `json:"started"`
}

// session is one client's polling loop.
type session struct {
	info   SessionInfo
	gen    uint64
	sink   Sink
	cancel context.CancelFunc

	// mu is held while emitting; live is cleared by stop under the same lock
	// so nothing reaches the sink once stop has returned.
	mu   sync.Mutex
	live bool
}

func (s *session) stop() {
	s.cancel()
	s.mu.Lock()
	s.live = false
	s.mu.Unlock()
}

// Manager runs one polling session per client.
//
// Starting a session for a client that already has one always stops the old
// session first. Ticks inside a session run sequentially, so a slow tick
// delays the next one rather than overlapping it.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	probe    Prober
	interval time.Duration
	logger   Logger
	now      func() time.Time

	mu        sync.Mutex
	sessions  map[string]*session
	observers []StatusObserver
	gen       uint64
	closed    bool

	wg sync.WaitGroup
}

// NewManager creates a session manager polling through probe every interval.
// A zero interval uses DefaultInterval.
func NewManager(probe Prober, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		probe:    probe,
		interval: interval,
		logger:   noopLogger{},
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// AddObserver registers an observer for every status read by live sessions.
func (m *Manager) AddObserver(o StatusObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// StartMonitoring polls one tuner for clientID and sends a tuner_status event
// to sink every interval, starting immediately.
func (m *Manager) StartMonitoring(clientID, deviceID string, tunerIdx int, sink Sink) error {
	if tunerIdx < 0 {
		return ErrInvalidTuner
	}
	info := SessionInfo{ClientID: clientID, Mode: ModeSingle, DeviceID: deviceID, Tuner: tunerIdx}
	return m.start(info, sink, func(ctx context.Context, s *session) {
		m.tickSingle(ctx, s)
	})
}

// StartAntennaMode polls tuners 0..tunerCount-1 concurrently for clientID
// and sends one antenna_status event per interval. tunerCount must be
// between 1 and MaxAntennaTuners.
func (m *Manager) StartAntennaMode(clientID, deviceID string, tunerCount int, sink Sink) error {
	if tunerCount < 1 || tunerCount > MaxAntennaTuners {
		return ErrInvalidTunerCount
	}
	info := SessionInfo{ClientID: clientID, Mode: ModeAntenna, DeviceID: deviceID, Tuners: tunerCount}
	return m.start(info, sink, func(ctx context.Context, s *session) {
		m.tickAntenna(ctx, s)
	})
}

// StopMonitoring stops the client's session. It is a no-op when the client
// has none. Once it returns, the old session sends nothing more.
func (m *Manager) StopMonitoring(clientID string) {
	m.mu.Lock()
	s, ok := m.sessions[clientID]
	if ok {
		delete(m.sessions, clientID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.stop()
	m.logger.Info("monitoring stopped", "client", clientID, "mode", s.info.Mode, "device", s.info.DeviceID)
}

// Sessions returns the running sessions.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info)
	}
	return out
}

// Close stops every session and waits for their goroutines to exit.
// Sessions cannot be started afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	m.wg.Wait()
}

func (m *Manager) start(info SessionInfo, sink Sink, tick func(context.Context, *session)) error {
	if sink == nil {
		return ErrMissingSink
	}

	ctx, cancel := context.WithCancel(context.Background())
	info.Started = m.now().UTC()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return ErrClosed
	}
	old := m.sessions[info.ClientID]
	m.gen++
	s := &session{info: info, gen: m.gen, sink: sink, cancel: cancel, live: true}
	m.sessions[info.ClientID] = s
	m.wg.Add(1)
	m.mu.Unlock()

	if old != nil {
		old.stop()
	}

	m.logger.Info("monitoring started",
		"client", info.ClientID,
		"mode", info.Mode,
		"device", info.DeviceID,
		"generation", s.gen,
	)

	go m.run(ctx, s, tick)
	return nil
}

// run drives one session until its context is cancelled.
func (m *Manager) run(ctx context.Context, s *session, tick func(context.Context, *session)) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.safeTick(ctx, s, tick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.safeTick(ctx, s, tick)
		}
	}
}

// safeTick runs one tick, logging and absorbing any panic so the loop continues.
func (m *Manager) safeTick(ctx context.Context, s *session, tick func(context.Context, *session)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor tick panic recovered",
				"client", s.info.ClientID,
				"device", s.info.DeviceID,
				"panic", r,
			)
		}
	}()

	if ctx.Err() != nil {
		return
	}
	tick(ctx, s)
}

func (m *Manager) tickSingle(ctx context.Context, s *session) {
	deviceID, idx := s.info.DeviceID, s.info.Tuner

	var (
		g       errgroup.Group
		status  *tuner.Status
		program string
	)
	m.goSafe(&g, s, func() { status = m.probe.GetTunerStatus(ctx, deviceID, idx) })
	m.goSafe(&g, s, func() { program = m.probe.GetCurrentProgram(ctx, deviceID, idx) })
	_ = g.Wait() //nolint:errcheck // goroutines never fail

	event := TunerStatusEvent{
		DeviceID: deviceID,
		Tuner:    idx,
		Status:   status,
		Program:  program,
		Bitrate:  formatBitrate(status),
	}

	// Idle tuners skip the ATSC 3.0 detail queries
	if status != nil && !status.Idle() {
		var detail errgroup.Group
		m.goSafe(&detail, s, func() { event.PLP = m.probe.GetPlpInfo(ctx, deviceID, idx) })
		m.goSafe(&detail, s, func() { event.L1 = m.probe.GetL1Info(ctx, deviceID, idx) })
		_ = detail.Wait() //nolint:errcheck // goroutines never fail
	}

	if status == nil {
		m.logger.Debug("tuner status unavailable", "client", s.info.ClientID, "device", deviceID, "tuner", idx)
	}

	event.Timestamp = m.now().UTC()
	if m.emit(ctx, s, EventTunerStatus, event) && status != nil {
		m.notify(deviceID, idx, status)
	}
}

func (m *Manager) tickAntenna(ctx context.Context, s *session) {
	deviceID, count := s.info.DeviceID, s.info.Tuners

	statuses := make([]*tuner.Status, count)
	var g errgroup.Group
	for i := range count {
		m.goSafe(&g, s, func() { statuses[i] = m.probe.GetTunerStatus(ctx, deviceID, i) })
	}
	_ = g.Wait() //nolint:errcheck // goroutines never fail

	event := AntennaStatusEvent{
		DeviceID:  deviceID,
		Tuners:    statuses,
		Timestamp: m.now().UTC(),
	}
	if !m.emit(ctx, s, EventAntennaStatus, event) {
		return
	}
	for i, st := range statuses {
		if st != nil {
			m.notify(deviceID, i, st)
		}
	}
}

// goSafe runs fn on g. A panic in fn is logged and leaves its result unset,
// so one bad read cannot take down the rest of the fan-out.
func (m *Manager) goSafe(g *errgroup.Group, s *session, fn func()) {
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("monitor query panic recovered",
					"client", s.info.ClientID,
					"device", s.info.DeviceID,
					"panic", r,
				)
			}
		}()
		fn()
		return nil
	})
}

// emit sends to the session sink if the session is still live and reports
// whether it did.
func (m *Manager) emit(ctx context.Context, s *session, eventType string, payload any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live || ctx.Err() != nil {
		m.logger.Debug("discarding late tick", "client", s.info.ClientID, "generation", s.gen)
		return false
	}
	s.sink.Send(eventType, payload)
	return true
}

func (m *Manager) notify(deviceID string, idx int, st *tuner.Status) {
	m.mu.Lock()
	observers := m.observers
	m.mu.Unlock()

	for _, o := range observers {
		o.ObserveStatus(deviceID, idx, st)
	}
}
