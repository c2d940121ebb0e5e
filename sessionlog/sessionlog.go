// Package sessionlog reads and writes recorded protocol sessions. A log
// file opens with a two-line header (a flat configuration summary, then
// the prompt) followed by one direction-tagged entry per wire message,
// so the tail of the file is the event stream as it happened.
package sessionlog

import (
	"encoding/json"
	"errors"
	"time"
)

// Direction says which way a recorded message flowed.
type Direction string

const (
	// DirectionReceived marks backend→frontend lines: events.
	DirectionReceived Direction = "received"
	// DirectionSent marks frontend→backend lines: submissions.
	DirectionSent Direction = "sent"
)

// Sentinel errors for session log handling.
var (
	ErrRecorderClosed = errors.New("recorder is closed")
	ErrEmptyLog       = errors.New("session log is empty")
)

// Entry is one recorded wire message. Header lines carry no direction,
// which is how readers tell them apart.
type Entry struct {
	Direction Direction       `json:"direction"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

// Time parses the entry timestamp; zero when absent or malformed.
func (e Entry) Time() time.Time {
	if e.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Header is the two-line preamble of a recorded session.
type Header struct {
	Config map[string]string
	Prompt string
}
