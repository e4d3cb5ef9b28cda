package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when mqtt.topic_prefix is empty.
const DefaultTopicPrefix = "solarpower"

// Topics builds the topic names used by the service.
// Using these helpers keeps publishers and subscribers in agreement.
//
//	topics := mqtt.NewTopics("solarpower")
//	topics.State(0, "c0") // "solarpower/state/0/c0"
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder for prefix. Surrounding slashes are
// ignored and an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	return t.root()
}

func (t Topics) root() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// State returns the retained state topic of one property.
//
// Example: solarpower/state/0/c0
func (t Topics) State(device int, code string) string {
	return fmt.Sprintf("%s/state/%d/%s", t.root(), device, code)
}

// Command returns the command topic of one property.
//
// Example: solarpower/command/0/y
func (t Topics) Command(device int, code string) string {
	return fmt.Sprintf("%s/command/%d/%s", t.root(), device, code)
}

// AllCommands returns the wildcard matching every command topic of a device.
//
// Example: solarpower/command/0/+
func (t Topics) AllCommands(device int) string {
	return fmt.Sprintf("%s/command/%d/+", t.root(), device)
}

// SystemStatus returns the online/offline status topic (also the LWT).
//
// Example: solarpower/system/status
func (t Topics) SystemStatus() string {
	return t.root() + "/system/status"
}

// ParseCommand extracts the device index and property code from a command
// topic. ok is false for any topic not built by Command.
func (t Topics) ParseCommand(topic string) (device int, code string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.root()+"/command/")
	if !found {
		return 0, "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", false
	}
	device, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	return device, parts[1], true
}
