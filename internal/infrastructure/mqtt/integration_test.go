//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectAndClose(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "tunerwatch-int-connect"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

// TestIntegration_RetainedState verifies a late subscriber sees the last
// published tuner state.
func TestIntegration_RetainedState(t *testing.T) {
	cfg := testConfig()

	cfg.Broker.ClientID = "tunerwatch-int-pub"
	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	v := 77
	NewStatePublisher(pubClient).ObserveStatus("INTTEST1", 0, &tuner.Status{Channel: "auto:9", Lock: true, SS: &v})
	time.Sleep(200 * time.Millisecond)

	cfg.Broker.ClientID = "tunerwatch-int-sub"
	subClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	received := make(chan StateMessage, 1)
	var once sync.Once
	err = subClient.Subscribe(Topics{}.TunerState("INTTEST1", 0), 1, func(_ string, p []byte) error {
		var m StateMessage
		if err := json.Unmarshal(p, &m); err != nil {
			return err
		}
		once.Do(func() { received <- m })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case m := <-received:
		if m.Status == nil || m.Status.Channel != "auto:9" {
			t.Errorf("retained state = %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for retained state")
	}

	// Clear the retained message.
	_ = pubClient.Publish(Topics{}.TunerState("INTTEST1", 0), nil, 1, true)
}

// TestIntegration_CommandRoundtrip sends a command through the broker and
// waits for its ack.
func TestIntegration_CommandRoundtrip(t *testing.T) {
	cfg := testConfig()

	cfg.Broker.ClientID = "tunerwatch-int-cmd"
	server, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer server.Close()

	cmd := &mockCommander{}
	if err := server.ServeCommands(context.Background(), cmd, time.Second); err != nil {
		t.Fatalf("ServeCommands() error = %v", err)
	}

	cfg.Broker.ClientID = "tunerwatch-int-remote"
	remote, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() remote error = %v", err)
	}
	defer remote.Close()

	acks := make(chan AckMessage, 1)
	if err := remote.Subscribe(Topics{}.TunerAck("INTTEST1", 1), 1, func(_ string, p []byte) error {
		var ack AckMessage
		if err := json.Unmarshal(p, &ack); err != nil {
			return err
		}
		acks <- ack
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := remote.Publish(Topics{}.TunerCommand("INTTEST1", 1), []byte(`{"id":"i1","action":"clear"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case ack := <-acks:
		if !ack.Success || ack.ID != "i1" {
			t.Errorf("ack = %+v", ack)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for ack")
	}
}
