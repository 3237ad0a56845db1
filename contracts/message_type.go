package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType identifies the semantic kind of a notification message.
// The ordinal values are part of the wire contract: producers may tag a
// message with either the name or the number.
type MessageType int

const (
	TypeBookingConfirmation MessageType = iota
	TypeBookingCancelled
	TypeCancellationRequested
	TypeCancellationDecision
	TypeAdminNotification
)

var typeNames = map[MessageType]string{
	TypeBookingConfirmation:   "BookingConfirmation",
	TypeBookingCancelled:      "BookingCancelled",
	TypeCancellationRequested: "CancellationRequested",
	TypeCancellationDecision:  "CancellationDecision",
	TypeAdminNotification:     "AdminNotification",
}

// String returns the canonical wire name of the type.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseMessageType parses a wire name case-insensitively.
func ParseMessageType(s string) (MessageType, bool) {
	for t, name := range typeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return t, true
		}
	}
	return 0, false
}

// MessageTypeFromOrdinal accepts a numeric type tag only when it maps to a
// defined type.
func MessageTypeFromOrdinal(n int) (MessageType, bool) {
	t := MessageType(n)
	return t, t.Known()
}

// MarshalJSON emits the canonical name.
func (t MessageType) MarshalJSON() ([]byte, error) {
	if !t.Known() {
		return nil, fmt.Errorf("contracts: cannot marshal unknown message type %d", int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the string name (case-insensitive) and the
// numeric ordinal, matching what the platform's producers emit.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, ok := ParseMessageType(name)
		if !ok {
			return fmt.Errorf("contracts: unknown message type %q", name)
		}
		*t = parsed
		return nil
	}

	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return fmt.Errorf("contracts: message type must be a string or number: %w", err)
	}
	parsed, ok := MessageTypeFromOrdinal(ordinal)
	if !ok {
		return fmt.Errorf("contracts: unknown message type ordinal %d", ordinal)
	}
	*t = parsed
	return nil
}
