package tuner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Channel bounds for relative changes and direct tuning (US broadcast RF channels).
const (
	MinChannel = 2
	MaxChannel = 69
)

// maxProbedTuners is the highest tuner count GetDeviceInfo will look for.
const maxProbedTuners = 8

// Default timeouts used when Options leaves a field zero.
const (
	DefaultQueryTimeout   = 700 * time.Millisecond
	DefaultCommandTimeout = 5 * time.Second
	DefaultScanTimeout    = 90 * time.Second
)

// Backoff between program list attempts. A fresh lock needs a moment before
// the stream tables populate.
var (
	firstRetryDelay = 1500 * time.Millisecond
	laterRetryDelay = 2 * time.Second
)

// CommandRunner executes one invocation of the device configuration tool.
// *process.Runner satisfies this interface.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Logger defines the logging interface for the probe.
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

// Options configures a Probe.
type Options struct {
	QueryTimeout   time.Duration // per read query
	CommandTimeout time.Duration // per set command
	ScanTimeout    time.Duration // whole channel scan
}

// Probe issues queries and commands against tuners through the
// configuration tool and returns parsed results.
//
// Reads degrade: a failed status read yields nil, failed program, PLP or L1
// reads yield empty values. Commands return errors wrapping ErrCommandFailed.
//
// Thread Safety: all methods are safe for concurrent use.
type Probe struct {
	runner CommandRunner
	opts   Options
	logger Logger

	// sleep waits between program list attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProbe creates a probe that runs commands through runner.
func NewProbe(runner CommandRunner, opts Options) *Probe {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	return &Probe{
		runner: runner,
		opts:   opts,
		logger: noopLogger{},
		sleep:  sleepContext,
	}
}

// SetLogger sets the logger for the probe.
func (p *Probe) SetLogger(logger Logger) {
	p.logger = logger
}

// GetTunerStatus reads the status and debug paths of one tuner concurrently
// and combines them.
//
// It returns nil when the status query fails; nil means "unknown", not idle.
// When only the debug query fails the dB estimate fields are left unset.
func (p *Probe) GetTunerStatus(ctx context.Context, deviceID string, tuner int) *Status {
	if tuner < 0 {
		return nil
	}

	var (
		g                   errgroup.Group
		statusOut, debugOut string
	)
	g.Go(func() error {
		out, err := p.get(ctx, deviceID, tunerPath(tuner, "status"))
		statusOut = out
		return err
	})
	g.Go(func() error {
		out, err := p.get(ctx, deviceID, tunerPath(tuner, "debug"))
		if err != nil {
			p.logger.Debug("debug query failed", "device", deviceID, "tuner", tuner, "error", err)
			return nil
		}
		debugOut = out
		return nil
	})

	if err := g.Wait(); err != nil {
		p.logger.Debug("status query failed", "device", deviceID, "tuner", tuner, "error", err)
		return nil
	}

	st := ParseStatusLine(statusOut)
	if reading, ok := ParseDebug(debugOut); ok {
		est := Estimate(reading.Signal, reading.SNR)
		st.SSDb = &est.SSDb
		st.SNRDb = &est.SNRDb
		st.DebugRaw = &reading.Raw
	}
	return &st
}

// GetCurrentProgram returns the program number the tuner is filtering on,
// or "" when it cannot be read.
func (p *Probe) GetCurrentProgram(ctx context.Context, deviceID string, tuner int) string {
	out, err := p.get(ctx, deviceID, tunerPath(tuner, "program"))
	if err != nil {
		p.logger.Debug("program query failed", "device", deviceID, "tuner", tuner, "error", err)
		return ""
	}
	return firstLine(out)
}

// GetPlpInfo returns the PLP table of an ATSC 3.0 tuner. Empty on failure.
func (p *Probe) GetPlpInfo(ctx context.Context, deviceID string, tuner int) map[int]PlpEntry {
	out, err := p.get(ctx, deviceID, tunerPath(tuner, "plpinfo"))
	if err != nil {
		p.logger.Debug("plpinfo query failed", "device", deviceID, "tuner", tuner, "error", err)
		return map[int]PlpEntry{}
	}
	return ParsePlpTable(out)
}

// GetL1Info returns every key=value token of the tuner's debug output.
// Empty on failure.
func (p *Probe) GetL1Info(ctx context.Context, deviceID string, tuner int) L1Info {
	out, err := p.get(ctx, deviceID, tunerPath(tuner, "debug"))
	if err != nil {
		p.logger.Debug("l1 query failed", "device", deviceID, "tuner", tuner, "error", err)
		return L1Info{}
	}
	return ParseL1Table(out)
}

// GetPrograms returns the programs in the stream the tuner is receiving.
// Empty on failure.
func (p *Probe) GetPrograms(ctx context.Context, deviceID string, tuner int) []ProgramEntry {
	out, err := p.get(ctx, deviceID, tunerPath(tuner, "streaminfo"))
	if err != nil {
		p.logger.Debug("streaminfo query failed", "device", deviceID, "tuner", tuner, "error", err)
		return []ProgramEntry{}
	}
	return ParsePrograms(out)
}

// GetProgramsWithRetry lists programs once the tuner is locked.
//
// An unlocked or idle tuner returns an empty list without querying programs.
// Otherwise an empty list is retried up to maxRetries times, waiting 1.5s
// before the first retry and 2s before each later one. Running out of
// retries returns an empty list.
func (p *Probe) GetProgramsWithRetry(ctx context.Context, deviceID string, tuner, maxRetries int) []ProgramEntry {
	st := p.GetTunerStatus(ctx, deviceID, tuner)
	if st == nil || !st.Lock || st.Idle() {
		return []ProgramEntry{}
	}

	for attempt := 0; ; attempt++ {
		programs := p.GetPrograms(ctx, deviceID, tuner)
		if len(programs) > 0 {
			return programs
		}
		if attempt >= maxRetries {
			break
		}

		delay := laterRetryDelay
		if attempt == 0 {
			delay = firstRetryDelay
		}
		if err := p.sleep(ctx, delay); err != nil {
			break
		}
	}

	p.logger.Debug("no programs after retries", "device", deviceID, "tuner", tuner, "retries", maxRetries)
	return []ProgramEntry{}
}

// SetChannel tunes to an RF channel with automatic modulation detection.
func (p *Probe) SetChannel(ctx context.Context, deviceID string, tuner, channel int) error {
	return p.tune(ctx, deviceID, tuner, "auto", channel)
}

// SetAtsc3Channel tunes to an RF channel as an ATSC 3.0 multiplex.
func (p *Probe) SetAtsc3Channel(ctx context.Context, deviceID string, tuner, channel int) error {
	return p.tune(ctx, deviceID, tuner, "atsc3", channel)
}

// IncrementChannel moves the tuner one channel up and returns the new channel.
func (p *Probe) IncrementChannel(ctx context.Context, deviceID string, tuner int) (int, error) {
	return p.step(ctx, deviceID, tuner, 1)
}

// DecrementChannel moves the tuner one channel down and returns the new channel.
func (p *Probe) DecrementChannel(ctx context.Context, deviceID string, tuner int) (int, error) {
	return p.step(ctx, deviceID, tuner, -1)
}

// ClearTuner releases the tuner.
func (p *Probe) ClearTuner(ctx context.Context, deviceID string, tuner int) error {
	if tuner < 0 {
		return ErrInvalidTuner
	}
	return p.set(ctx, deviceID, tunerPath(tuner, "channel"), ChannelNone)
}

// SetProgram selects a program within the current stream.
func (p *Probe) SetProgram(ctx context.Context, deviceID string, tuner, program int) error {
	if tuner < 0 {
		return ErrInvalidTuner
	}
	if program < 0 {
		return fmt.Errorf("%w: program %d", ErrInvalidChannel, program)
	}
	return p.set(ctx, deviceID, tunerPath(tuner, "program"), strconv.Itoa(program))
}

// GetDeviceInfo reports model, tuner count and ATSC 3.0 support.
//
// Tuners are counted by probing status paths 0..7 concurrently and counting
// consecutive successes from tuner 0.
func (p *Probe) GetDeviceInfo(ctx context.Context, deviceID string) (DeviceInfo, error) {
	model, err := p.get(ctx, deviceID, "/sys/model")
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("%w: %s: %w", ErrDeviceUnreachable, deviceID, err)
	}
	info := DeviceInfo{Model: firstLine(model)}

	var (
		g        errgroup.Group
		present  [maxProbedTuners]bool
		features string
	)
	for i := range maxProbedTuners {
		g.Go(func() error {
			if _, err := p.get(ctx, deviceID, tunerPath(i, "status")); err == nil {
				present[i] = true
			}
			return nil
		})
	}
	g.Go(func() error {
		out, err := p.get(ctx, deviceID, "/sys/features")
		if err == nil {
			features = out
		}
		return nil
	})
	_ = g.Wait() //nolint:errcheck // goroutines never fail

	for _, ok := range present {
		if !ok {
			break
		}
		info.Tuners++
	}
	info.ATSC3Support = strings.Contains(strings.ToLower(info.Model), "atsc3") ||
		strings.Contains(strings.ToLower(features), "atsc3")

	return info, nil
}

// ScanChannels runs a full channel scan on one tuner. This takes minutes;
// the tuner is unusable while it runs.
func (p *Probe) ScanChannels(ctx context.Context, deviceID string, tuner int) ([]ChannelScanResult, error) {
	if tuner < 0 {
		return nil, ErrInvalidTuner
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ScanTimeout)
	defer cancel()

	out, err := p.runner.Run(ctx, deviceID, "scan", fmt.Sprintf("/tuner%d", tuner))
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s tuner %d: %w", ErrCommandFailed, deviceID, tuner, err)
	}

	results := ParseScanOutput(out)
	p.logger.Info("channel scan complete", "device", deviceID, "tuner", tuner, "channels", len(results))
	return results, nil
}

func (p *Probe) tune(ctx context.Context, deviceID string, tuner int, mode string, channel int) error {
	if tuner < 0 {
		return ErrInvalidTuner
	}
	if channel < MinChannel || channel > MaxChannel {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return p.set(ctx, deviceID, tunerPath(tuner, "channel"), fmt.Sprintf("%s:%d", mode, channel))
}

// step reads the current channel and tunes delta channels away from it,
// staying within MinChannel..MaxChannel and keeping the current mode.
func (p *Probe) step(ctx context.Context, deviceID string, tuner, delta int) (int, error) {
	if tuner < 0 {
		return 0, ErrInvalidTuner
	}

	st := p.GetTunerStatus(ctx, deviceID, tuner)
	if st == nil {
		return 0, fmt.Errorf("%w: cannot read status of %s tuner %d", ErrCommandFailed, deviceID, tuner)
	}

	mode, current, ok := splitChannel(st.Channel)
	if !ok {
		return 0, ErrNotTuned
	}

	next := min(max(current+delta, MinChannel), MaxChannel)
	if mode != "atsc3" {
		mode = "auto"
	}
	if err := p.tune(ctx, deviceID, tuner, mode, next); err != nil {
		return 0, err
	}
	return next, nil
}

// get runs one read query bounded by the query timeout.
func (p *Probe) get(ctx context.Context, deviceID, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()
	return p.runner.Run(ctx, deviceID, "get", path)
}

// set runs one command bounded by the command timeout.
func (p *Probe) set(ctx context.Context, deviceID, path, value string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.CommandTimeout)
	defer cancel()

	if _, err := p.runner.Run(ctx, deviceID, "set", path, value); err != nil {
		return fmt.Errorf("%w: set %s %s on %s: %w", ErrCommandFailed, path, value, deviceID, err)
	}
	p.logger.Info("tuner command applied", "device", deviceID, "path", path, "value", value)
	return nil
}

// splitChannel splits "auto:8", "atsc3:14" or "8" into mode and number.
func splitChannel(ch string) (mode string, num int, ok bool) {
	if ch == "" || ch == ChannelNone {
		return "", 0, false
	}
	numStr := ch
	if i := strings.LastIndexByte(ch, ':'); i >= 0 {
		mode, numStr = ch[:i], ch[i+1:]
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return "", 0, false
	}
	return mode, n, true
}

func tunerPath(tuner int, leaf string) string {
	return fmt.Sprintf("/tuner%d/%s", tuner, leaf)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
