package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// DefaultCloudURL is the vendor's cloud discovery endpoint. It lists the
// units that share the caller's public address.
const DefaultCloudURL = "https://api.hdhomerun.com/discover"

// maxCloudBody bounds how much of a cloud response is read.
const maxCloudBody = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cloudDevice is one element of the cloud discovery response. Storage units
// (DVRs) appear with a StorageID and no DeviceID and are skipped.
type cloudDevice struct {
	DeviceID string `json:"DeviceID"`
	LocalIP  string `json:"LocalIP"`
}

// CloudClient queries the vendor's HTTP discovery endpoint.
//
// Thread Safety: safe for concurrent use.
type CloudClient struct {
	url        string
	httpClient *http.Client
}

// NewCloudClient creates a client for the given endpoint. An empty url uses
// DefaultCloudURL.
func NewCloudClient(url string, timeout time.Duration) *CloudClient {
	if url == "" {
		url = DefaultCloudURL
	}
	return &CloudClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Discover fetches the device list from the cloud endpoint.
func (c *CloudClient) Discover(ctx context.Context) ([]Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCloudUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCloudUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrCloudUnavailable, resp.StatusCode)
	}

	var entries []cloudDevice
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCloudBody)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCloudResponse, err)
	}

	devices := make([]Device, 0, len(entries))
	for _, e := range entries {
		if e.DeviceID == "" || e.LocalIP == "" {
			continue
		}
		devices = append(devices, Device{
			ID:     strings.ToUpper(e.DeviceID),
			IP:     e.LocalIP,
			Online: true,
			Source: SourceCloud,
		})
	}
	return devices, nil
}
