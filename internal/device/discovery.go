package device

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default timings used when Options leaves a field zero.
const (
	DefaultHostCacheTTL     = 5 * time.Minute
	DefaultQueryTimeout     = 700 * time.Millisecond
	DefaultDiscoveryTimeout = 10 * time.Second
)

// CommandRunner executes one invocation of the device configuration tool.
// *process.Runner satisfies this interface.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// CloudSource lists devices from a remote discovery service.
// *CloudClient satisfies this interface.
type CloudSource interface {
	Discover(ctx context.Context) ([]Device, error)
}

// Logger defines the logging interface used by Discovery.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures Discovery.
type Options struct {
	// AutoDiscovery enables broadcast discovery with the cloud fallback.
	AutoDiscovery bool

	// ManualHosts are addresses to resolve directly, in order.
	ManualHosts []string

	// HostCacheTTL is how long a manual host lookup is reused.
	HostCacheTTL time.Duration

	// QueryTimeout bounds each model query.
	QueryTimeout time.Duration

	// DiscoveryTimeout bounds the broadcast discover command and the cloud request.
	DiscoveryTimeout time.Duration
}

// Discovery merges broadcast, cloud and manually configured devices into one
// de-duplicated list.
//
// It owns two caches:
//   - manual host lookups, each reused for HostCacheTTL and cleared in bulk
//     by a forced refresh;
//   - the cloud fallback result, which has no TTL and is only replaced by a
//     forced refresh or by the first fallback when nothing is cached yet.
//     An empty cached result still counts as cached.
//
// All public methods are thread-safe. Caches are swapped under the lock;
// network I/O happens outside it.
type Discovery struct {
	runner CommandRunner
	cloud  CloudSource
	opts   Options
	logger Logger
	now    func() time.Time

	mu          sync.RWMutex
	hostCache   map[string]cacheEntry
	cloudCache  []Device
	cloudCached bool
	devices     []Device
}

// NewDiscovery creates a discovery service. cloud may be nil to disable the
// cloud fallback.
func NewDiscovery(runner CommandRunner, cloud CloudSource, opts Options) *Discovery {
	if opts.HostCacheTTL <= 0 {
		opts.HostCacheTTL = DefaultHostCacheTTL
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	return &Discovery{
		runner:    runner,
		cloud:     cloud,
		opts:      opts,
		logger:    noopLogger{},
		now:       time.Now,
		hostCache: make(map[string]cacheEntry),
		devices:   []Device{},
	}
}

// SetLogger sets the logger for the discovery service.
func (d *Discovery) SetLogger(logger Logger) {
	d.logger = logger
}

// Discover runs a discovery pass and returns the merged device list.
//
// A forced refresh first clears the manual host cache and makes the cloud
// fallback query again. Auto-discovered devices come first, then manual
// hosts; a device id seen twice keeps its first entry. The result replaces
// the list returned by Devices.
func (d *Discovery) Discover(ctx context.Context, forceRefresh bool) []Device {
	if forceRefresh {
		d.mu.Lock()
		d.hostCache = make(map[string]cacheEntry)
		d.mu.Unlock()
	}

	var found []Device
	if d.opts.AutoDiscovery {
		found = d.autoDiscover(ctx, forceRefresh)
	}

	merged := make([]Device, 0, len(found)+len(d.opts.ManualHosts))
	seen := make(map[string]bool, cap(merged))
	add := func(dev Device) {
		if seen[dev.ID] {
			return
		}
		seen[dev.ID] = true
		merged = append(merged, dev)
	}

	for _, dev := range found {
		add(dev)
	}
	for _, host := range d.opts.ManualHosts {
		add(d.DeviceByHost(ctx, host))
	}

	d.mu.Lock()
	d.devices = merged
	d.mu.Unlock()

	d.logger.Info("discovery complete",
		"devices", len(merged),
		"auto", len(found),
		"manual", len(d.opts.ManualHosts),
		"force", forceRefresh,
	)
	return slices.Clone(merged)
}

// Devices returns the list produced by the last Discover call.
func (d *Discovery) Devices() []Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.devices)
}

// Device looks up a device from the last Discover call by id. Ids compare
// exactly, as in the Discover merge; vendor ids are upper case.
// Returns ErrDeviceNotFound if it is not in the list.
func (d *Discovery) Device(id string) (Device, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, dev := range d.devices {
		if dev.ID == id {
			return dev, nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

// DeviceByHost resolves a manually configured host.
//
// A fresh cached lookup is returned as is. Otherwise the host's model is
// queried; if that fails an offline placeholder is cached and returned so the
// host stays visible. The id of a manual device is always the host string;
// the vendor id, when recoverable, only appears in the name.
func (d *Discovery) DeviceByHost(ctx context.Context, host string) Device {
	now := d.now()

	d.mu.RLock()
	entry, ok := d.hostCache[host]
	d.mu.RUnlock()
	if ok && entry.fresh(now, d.opts.HostCacheTTL) {
		return entry.device
	}

	dev := Device{ID: host, IP: host, Source: SourceManual}

	model, err := d.query(ctx, host, "/sys/model")
	if err != nil {
		d.logger.Warn("manual host unreachable", "host", host, "error", err)
		dev.Name = deviceName(host, "")
		dev.Online = false
	} else {
		label := host
		if vendor, ok := d.vendorID(ctx, host); ok {
			label = vendor.ID
			if vendor.IP != "" {
				dev.IP = vendor.IP
			}
		}
		dev.Name = deviceName(label, model)
		dev.Online = true
	}

	d.mu.Lock()
	d.hostCache[host] = cacheEntry{device: dev, timestamp: now}
	d.mu.Unlock()

	return dev
}

// autoDiscover returns broadcast results when there are any, otherwise the
// cloud fallback (cached unless forced).
func (d *Discovery) autoDiscover(ctx context.Context, forceRefresh bool) []Device {
	if devices := d.broadcast(ctx); len(devices) > 0 {
		d.nameDevices(ctx, devices)
		return devices
	}

	if !forceRefresh {
		d.mu.RLock()
		cached, ok := slices.Clone(d.cloudCache), d.cloudCached
		d.mu.RUnlock()
		if ok {
			d.logger.Debug("using cached cloud discovery", "devices", len(cached))
			return cached
		}
	}

	if d.cloud == nil {
		return nil
	}

	cloudCtx, cancel := context.WithTimeout(ctx, d.opts.DiscoveryTimeout)
	devices, err := d.cloud.Discover(cloudCtx)
	cancel()
	if err != nil {
		d.logger.Warn("cloud discovery failed", "error", err)
		devices = []Device{}
	}
	d.nameDevices(ctx, devices)

	d.mu.Lock()
	d.cloudCache = slices.Clone(devices)
	d.cloudCached = true
	d.mu.Unlock()

	return devices
}

// broadcast runs the tool's discover command.
func (d *Discovery) broadcast(ctx context.Context) []Device {
	ctx, cancel := context.WithTimeout(ctx, d.opts.DiscoveryTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, "discover")
	if err != nil {
		d.logger.Debug("broadcast discovery failed", "error", err)
		return nil
	}
	return parseDiscoverOutput(out)
}

// nameDevices fills in each device name from a concurrent model query.
// A failed query leaves the name without a model.
func (d *Discovery) nameDevices(ctx context.Context, devices []Device) {
	var g errgroup.Group
	for i := range devices {
		g.Go(func() error {
			target := devices[i].IP
			if target == "" {
				target = devices[i].ID
			}
			model, err := d.query(ctx, target, "/sys/model")
			if err != nil {
				d.logger.Debug("model query failed", "device", devices[i].ID, "error", err)
				model = ""
			}
			devices[i].Name = deviceName(devices[i].ID, model)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never fail
}

// vendorID asks the tool to discover a single host to learn its hardware id.
func (d *Discovery) vendorID(ctx context.Context, host string) (Device, bool) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.QueryTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, "discover", host)
	if err != nil {
		return Device{}, false
	}
	found := parseDiscoverOutput(out)
	if len(found) == 0 {
		return Device{}, false
	}
	return found[0], true
}

func (d *Discovery) query(ctx context.Context, target, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.QueryTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, target, "get", path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
