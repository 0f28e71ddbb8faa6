package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockRunner struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{responses: make(map[string]string)}
}

func (m *mockRunner) Run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, key)

	if out, ok := m.responses[key]; ok {
		return out, nil
	}
	return "", errors.New("unable to connect to device")
}

func (m *mockRunner) set(key, out string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = out
}

func (m *mockRunner) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == key {
			n++
		}
	}
	return n
}

type mockCloud struct {
	mu      sync.Mutex
	devices []Device
	err     error
	calls   int
}

func (m *mockCloud) Discover(context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *mockCloud) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDiscovery(r *mockRunner, cloud CloudSource, opts Options) (*Discovery, *fakeClock) {
	d := NewDiscovery(r, cloud, opts)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	d.now = clock.Now
	return d, clock
}

func TestDiscover_Broadcast(t *testing.T) {
	r := newMockRunner()
	r.set("discover", "hdhomerun device 1084A2B3 found at 192.168.1.50\nhdhomerun device 10A1B2C3 found at 192.168.1.51")
	r.set("192.168.1.50 get /sys/model", "hdhomerun5_atsc3")
	cloud := &mockCloud{}
	d, _ := newTestDiscovery(r, cloud, Options{AutoDiscovery: true})

	devices := d.Discover(context.Background(), false)

	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	if devices[0].Name != "HDHomeRun 1084A2B3 (hdhomerun5_atsc3)" {
		t.Errorf("devices[0].Name = %q", devices[0].Name)
	}
	if devices[1].Name != "HDHomeRun 10A1B2C3" {
		t.Errorf("devices[1].Name = %q, want name without model", devices[1].Name)
	}
	if !devices[0].Online || devices[0].Source != SourceBroadcast {
		t.Errorf("devices[0] = %+v", devices[0])
	}
	if cloud.callCount() != 0 {
		t.Error("cloud must not be queried when broadcast finds devices")
	}
}

func TestDiscover_CloudFallbackCached(t *testing.T) {
	r := newMockRunner()
	r.set("discover", "no devices found")
	cloud := &mockCloud{devices: []Device{{ID: "1084A2B3", IP: "10.0.0.5", Online: true, Source: SourceCloud}}}
	d, _ := newTestDiscovery(r, cloud, Options{AutoDiscovery: true})
	ctx := context.Background()

	first := d.Discover(ctx, false)
	if len(first) != 1 || first[0].ID != "1084A2B3" {
		t.Fatalf("first = %+v", first)
	}

	cloud.mu.Lock()
	cloud.devices = nil
	cloud.mu.Unlock()

	second := d.Discover(ctx, false)
	if len(second) != 1 {
		t.Errorf("second = %+v, want cached cloud result", second)
	}
	if cloud.callCount() != 1 {
		t.Errorf("cloud calls = %d, want 1", cloud.callCount())
	}

	forced := d.Discover(ctx, true)
	if len(forced) != 0 {
		t.Errorf("forced = %+v, want fresh empty cloud result", forced)
	}
	if cloud.callCount() != 2 {
		t.Errorf("cloud calls = %d, want 2 after force", cloud.callCount())
	}
}

func TestDiscover_EmptyCloudResultIsCached(t *testing.T) {
	r := newMockRunner()
	cloud := &mockCloud{}
	d, _ := newTestDiscovery(r, cloud, Options{AutoDiscovery: true})
	ctx := context.Background()

	d.Discover(ctx, false)
	d.Discover(ctx, false)
	d.Discover(ctx, false)

	if cloud.callCount() != 1 {
		t.Errorf("cloud calls = %d, want 1 (empty result still cached)", cloud.callCount())
	}
}

func TestDiscover_CloudErrorDegrades(t *testing.T) {
	r := newMockRunner()
	cloud := &mockCloud{err: ErrCloudUnavailable}
	d, _ := newTestDiscovery(r, cloud, Options{AutoDiscovery: true})

	devices := d.Discover(context.Background(), false)
	if devices == nil || len(devices) != 0 {
		t.Errorf("devices = %v, want empty non-nil list", devices)
	}
}

func TestDiscover_ManualHosts(t *testing.T) {
	r := newMockRunner()
	r.set("192.168.1.60 get /sys/model", "hdhomerun4_atsc")
	r.set("discover 192.168.1.60", "hdhomerun device 1084A2B3 found at 192.168.1.60")
	d, _ := newTestDiscovery(r, nil, Options{
		AutoDiscovery: false,
		ManualHosts:   []string{"192.168.1.60", "tuner.lan", "192.168.1.60"},
	})

	devices := d.Discover(context.Background(), false)

	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2 after de-duplication", len(devices))
	}

	online := devices[0]
	if online.ID != "192.168.1.60" {
		t.Errorf("manual id = %q, want host string", online.ID)
	}
	if online.Name != "HDHomeRun 1084A2B3 (hdhomerun4_atsc)" || !online.Online {
		t.Errorf("online = %+v", online)
	}

	offline := devices[1]
	want := Device{ID: "tuner.lan", IP: "tuner.lan", Name: "HDHomeRun tuner.lan", Online: false, Source: SourceManual}
	if offline != want {
		t.Errorf("offline = %+v, want %+v", offline, want)
	}

	if r.count("discover") != 0 {
		t.Error("broadcast must not run when auto discovery is disabled")
	}
}

func TestDiscover_ManualWithoutVendorID(t *testing.T) {
	r := newMockRunner()
	r.set("10.1.1.9 get /sys/model", "hdhomerun3_atsc")
	d, _ := newTestDiscovery(r, nil, Options{ManualHosts: []string{"10.1.1.9"}})

	devices := d.Discover(context.Background(), false)
	if len(devices) != 1 || devices[0].Name != "HDHomeRun 10.1.1.9 (hdhomerun3_atsc)" {
		t.Errorf("devices = %+v", devices)
	}
}

func TestDiscover_FirstSeenWins(t *testing.T) {
	r := newMockRunner()
	r.set("discover", "hdhomerun device 1084A2B3 found at 192.168.1.50")
	// A manual host string equal to a broadcast id collides by id.
	d, _ := newTestDiscovery(r, nil, Options{AutoDiscovery: true, ManualHosts: []string{"1084A2B3"}})

	devices := d.Discover(context.Background(), false)
	if len(devices) != 1 {
		t.Fatalf("len(devices) = %d, want 1", len(devices))
	}
	if devices[0].Source != SourceBroadcast {
		t.Errorf("Source = %q, want the broadcast entry to win", devices[0].Source)
	}
}

func TestDeviceByHost_Cache(t *testing.T) {
	r := newMockRunner()
	r.set("192.168.1.60 get /sys/model", "hdhomerun5_atsc3")
	d, clock := newTestDiscovery(r, nil, Options{ManualHosts: []string{"192.168.1.60"}})
	ctx := context.Background()

	d.DeviceByHost(ctx, "192.168.1.60")
	d.DeviceByHost(ctx, "192.168.1.60")
	if n := r.count("192.168.1.60 get /sys/model"); n != 1 {
		t.Fatalf("model queried %d times, want 1 within TTL", n)
	}

	clock.Advance(4 * time.Minute)
	d.DeviceByHost(ctx, "192.168.1.60")
	if n := r.count("192.168.1.60 get /sys/model"); n != 1 {
		t.Errorf("model queried %d times, want 1 at 4 minutes", n)
	}

	clock.Advance(2 * time.Minute)
	d.DeviceByHost(ctx, "192.168.1.60")
	if n := r.count("192.168.1.60 get /sys/model"); n != 2 {
		t.Errorf("model queried %d times, want 2 after TTL", n)
	}
}

func TestDeviceByHost_OfflineIsCached(t *testing.T) {
	r := newMockRunner()
	d, _ := newTestDiscovery(r, nil, Options{})
	ctx := context.Background()

	first := d.DeviceByHost(ctx, "10.9.9.9")
	second := d.DeviceByHost(ctx, "10.9.9.9")
	if first.Online || second.Online {
		t.Error("unreachable host should be offline")
	}
	if n := r.count("10.9.9.9 get /sys/model"); n != 1 {
		t.Errorf("model queried %d times, want 1 (offline placeholder cached)", n)
	}
}

func TestDiscover_ForceClearsHostCache(t *testing.T) {
	r := newMockRunner()
	d, _ := newTestDiscovery(r, nil, Options{ManualHosts: []string{"10.9.9.9"}})
	ctx := context.Background()

	devices := d.Discover(ctx, false)
	if devices[0].Online {
		t.Fatal("host should start offline")
	}

	// The unit comes up; only a forced refresh notices before the TTL.
	r.set("10.9.9.9 get /sys/model", "hdhomerun5_atsc3")

	if got := d.Discover(ctx, false); got[0].Online {
		t.Error("unforced discover should reuse the cached offline entry")
	}
	if got := d.Discover(ctx, true); !got[0].Online {
		t.Error("forced discover should re-query the host")
	}
}

func TestDevicesAndDevice(t *testing.T) {
	r := newMockRunner()
	r.set("discover", "hdhomerun device 1084A2B3 found at 192.168.1.50")
	d, _ := newTestDiscovery(r, nil, Options{AutoDiscovery: true})

	if got := d.Devices(); len(got) != 0 {
		t.Errorf("Devices() before discovery = %v, want empty", got)
	}

	d.Discover(context.Background(), false)

	list := d.Devices()
	if len(list) != 1 {
		t.Fatalf("Devices() = %v", list)
	}
	list[0].Name = "mutated"

	dev, err := d.Device("1084A2B3")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if dev.Name == "mutated" {
		t.Error("Devices() must return a copy")
	}

	if _, err := d.Device("FFFFFFFF"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Device() error = %v, want ErrDeviceNotFound", err)
	}
	// Same comparison as the merge, which treats ids case-sensitively
	if _, err := d.Device("1084a2b3"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Device(lower case) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestParseDiscoverOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []Device
	}{
		{name: "none", out: "no devices found", want: nil},
		{
			name: "two devices with duplicate",
			out: "hdhomerun device 1084a2b3 found at 192.168.1.50\n" +
				"hdhomerun device 10A1B2C3 found at 192.168.1.51\n" +
				"hdhomerun device 1084A2B3 found at 192.168.1.99\n",
			want: []Device{
				{ID: "1084A2B3", IP: "192.168.1.50", Online: true, Source: SourceBroadcast},
				{ID: "10A1B2C3", IP: "192.168.1.51", Online: true, Source: SourceBroadcast},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDiscoverOutput(tt.out)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
