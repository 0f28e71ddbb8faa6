package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// StateMessage is the retained payload on tunerwatch/state/{device}/{tuner}.
type StateMessage struct {
	DeviceID  string        `json:"device_id"`
	Tuner     int           `json:"tuner"`
	Status    *tuner.Status `json:"status"`
	Timestamp string        `json:"timestamp"`
}

// StatePublisher publishes every changed tuner status as a retained message.
// It implements monitor.StatusObserver.
//
// Identical consecutive statuses for a tuner are published once, so a stable
// tuner does not flood the broker at the poll rate.
type StatePublisher struct {
	client *Client
	now    func() time.Time

	mu   sync.Mutex
	last map[string]string
}

// NewStatePublisher creates a publisher on top of a connected client.
func NewStatePublisher(client *Client) *StatePublisher {
	return &StatePublisher{
		client: client,
		now:    time.Now,
		last:   make(map[string]string),
	}
}

// ObserveStatus publishes st unless it equals the last status sent for the
// tuner. It never blocks on the broker.
func (p *StatePublisher) ObserveStatus(deviceID string, idx int, st *tuner.Status) {
	if st == nil {
		return
	}

	key, err := json.Marshal(st)
	if err != nil {
		return
	}
	topic := Topics{}.TunerState(deviceID, idx)

	p.mu.Lock()
	if p.last[topic] == string(key) {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	payload, err := json.Marshal(StateMessage{
		DeviceID:  deviceID,
		Tuner:     idx,
		Status:    st,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	if err := p.client.publishAsync(topic, payload, true); err != nil {
		// Not remembered, so the next tick retries.
		return
	}

	p.mu.Lock()
	p.last[topic] = string(key)
	p.mu.Unlock()
}
