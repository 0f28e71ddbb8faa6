package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicPrefix is the root of every tunerwatch topic.
//
//	tunerwatch/state/{device}/{tuner}    retained tuner status
//	tunerwatch/command/{device}/{tuner}  inbound tuner commands
//	tunerwatch/ack/{device}/{tuner}      command results
//	tunerwatch/system/status             online/offline (LWT)
const TopicPrefix = "tunerwatch"

// Topic kinds used in the second level of a tuner topic.
const (
	KindState   = "state"
	KindCommand = "command"
	KindAck     = "ack"
)

// Topics provides builders for tunerwatch MQTT topics.
//
//	topic := mqtt.Topics{}.TunerState("1040ABCD", 0)
//	// Returns: "tunerwatch/state/1040ABCD/0"
type Topics struct{}

// TunerState returns the retained status topic of one tuner.
func (Topics) TunerState(deviceID string, tuner int) string {
	return tunerTopic(KindState, deviceID, tuner)
}

// TunerCommand returns the command topic of one tuner.
func (Topics) TunerCommand(deviceID string, tuner int) string {
	return tunerTopic(KindCommand, deviceID, tuner)
}

// TunerAck returns the topic command results are published on.
func (Topics) TunerAck(deviceID string, tuner int) string {
	return tunerTopic(KindAck, deviceID, tuner)
}

// SystemStatus returns the service online/offline topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllTunerStates matches the state topic of every tuner.
func (Topics) AllTunerStates() string {
	return TopicPrefix + "/" + KindState + "/+/+"
}

// AllTunerCommands matches the command topic of every tuner.
func (Topics) AllTunerCommands() string {
	return TopicPrefix + "/" + KindCommand + "/+/+"
}

// AllTopics matches everything under the prefix.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

func tunerTopic(kind, deviceID string, tuner int) string {
	return fmt.Sprintf("%s/%s/%s/%d", TopicPrefix, kind, deviceID, tuner)
}

// ParseTunerTopic splits tunerwatch/{kind}/{device}/{tuner}. It reports false
// for any other shape or a non-numeric tuner.
func ParseTunerTopic(topic string) (kind, deviceID string, tuner int, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[2] == "" {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 0 {
		return "", "", 0, false
	}
	return parts[1], parts[2], n, true
}
