package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Command actions accepted on tunerwatch/command/{device}/{tuner}.
const (
	ActionSetChannel = "set_channel"
	ActionUp         = "channel_up"
	ActionDown       = "channel_down"
	ActionClear      = "clear"
	ActionSetProgram = "set_program"
)

// defaultCommandTimeout bounds one command when none is configured.
const defaultCommandTimeout = 5 * time.Second

// deviceIDPattern matches the ids the HTTP API accepts. A leading dash would
// reach the vendor tool as a flag.
var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]{0,252}$`)

// Commander is the tuner control surface commands are applied to.
// *tuner.Probe satisfies it.
type Commander interface {
	SetChannel(ctx context.Context, deviceID string, tuner, channel int) error
	SetAtsc3Channel(ctx context.Context, deviceID string, tuner, channel int) error
	IncrementChannel(ctx context.Context, deviceID string, tuner int) (int, error)
	DecrementChannel(ctx context.Context, deviceID string, tuner int) (int, error)
	ClearTuner(ctx context.Context, deviceID string, tuner int) error
	SetProgram(ctx context.Context, deviceID string, tuner, program int) error
}

// CommandMessage is the JSON body of a command.
//
//	{"id":"c1","action":"set_channel","channel":8,"atsc3":false}
type CommandMessage struct {
	ID      string `json:"id,omitempty"`
	Action  string `json:"action"`
	Channel int    `json:"channel,omitempty"`
	ATSC3   bool   `json:"atsc3,omitempty"`
	Program *int   `json:"program,omitempty"`
}

// AckMessage is published on the ack topic after every command.
type AckMessage struct {
	ID        string `json:"id,omitempty"`
	Action    string `json:"action"`
	Success   bool   `json:"success"`
	Channel   *int   `json:"channel,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ServeCommands subscribes to every tuner command topic and applies the
// commands through cmd. Each command runs under its own timeout derived from
// ctx, and its result is published (not retained) on the matching ack topic.
func (c *Client) ServeCommands(ctx context.Context, cmd Commander, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return c.Subscribe(Topics{}.AllTunerCommands(), byte(c.cfg.QoS), func(topic string, payload []byte) error {
		kind, deviceID, idx, ok := ParseTunerTopic(topic)
		if !ok || kind != KindCommand {
			return fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
		}

		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ack := applyCommand(cmdCtx, cmd, deviceID, idx, payload)
		ack.Timestamp = time.Now().UTC().Format(time.RFC3339)

		c.getLogger().Info("MQTT tuner command",
			"device", deviceID,
			"tuner", idx,
			"action", ack.Action,
			"success", ack.Success,
		)

		data, err := json.Marshal(ack)
		if err != nil {
			return err
		}
		return c.Publish(Topics{}.TunerAck(deviceID, idx), data, byte(c.cfg.QoS), false)
	})
}

// applyCommand decodes and runs one command. Failures are reported in the
// returned ack, never as an error.
func applyCommand(ctx context.Context, cmd Commander, deviceID string, idx int, payload []byte) AckMessage {
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return AckMessage{Error: fmt.Sprintf("%v: %v", ErrInvalidCommand, err)}
	}
	ack := AckMessage{ID: msg.ID, Action: msg.Action}

	if !deviceIDPattern.MatchString(deviceID) {
		ack.Error = fmt.Sprintf("%v: device id %q", ErrInvalidCommand, deviceID)
		return ack
	}

	var err error
	switch msg.Action {
	case ActionSetChannel:
		if msg.ATSC3 {
			err = cmd.SetAtsc3Channel(ctx, deviceID, idx, msg.Channel)
		} else {
			err = cmd.SetChannel(ctx, deviceID, idx, msg.Channel)
		}
		if err == nil {
			ch := msg.Channel
			ack.Channel = &ch
		}
	case ActionUp, ActionDown:
		step := cmd.IncrementChannel
		if msg.Action == ActionDown {
			step = cmd.DecrementChannel
		}
		var ch int
		ch, err = step(ctx, deviceID, idx)
		if err == nil {
			ack.Channel = &ch
		}
	case ActionClear:
		err = cmd.ClearTuner(ctx, deviceID, idx)
	case ActionSetProgram:
		if msg.Program == nil {
			err = fmt.Errorf("%w: program is required", ErrInvalidCommand)
			break
		}
		err = cmd.SetProgram(ctx, deviceID, idx, *msg.Program)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, msg.Action)
	}

	if err != nil {
		ack.Error = err.Error()
		return ack
	}
	ack.Success = true
	return ack
}
