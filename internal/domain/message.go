package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawMessage is an undecoded message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// MessageKind discriminates source messages.
type MessageKind string

const (
	// KindSession updates a session's farms, filter or weather selection.
	KindSession MessageKind = "session"
	// KindClose ends a session.
	KindClose MessageKind = "close"
	// KindWeather is a live sensor reading shared by all sessions.
	KindWeather MessageKind = "weather"
)

// ErrMalformedMessage marks a message that cannot be decoded into its expected shape.
var ErrMalformedMessage = errors.New("malformed message")

// SessionUpdate changes part of a session's state. Nil fields are left as they are.
type SessionUpdate struct {
	Farms         []FarmRecord `json:"farms,omitempty"`
	Filter        *FarmFilter  `json:"filter,omitempty"`
	Scenario      *string      `json:"scenario,omitempty"`
	ForecastIndex *int         `json:"forecastIndex,omitempty"`
	Stability     *string      `json:"stability,omitempty"`
	// Complaints replaces the session's complaint set and re-clusters it.
	Complaints []ComplaintPoint `json:"complaints,omitempty"`
}

// SourceMessage is the envelope carried on the source topic.
type SourceMessage struct {
	Kind      MessageKind      `json:"kind"`
	SessionID string           `json:"session_id,omitempty"`
	Update    *SessionUpdate   `json:"update,omitempty"`
	Weather   *WeatherSnapshot `json:"weather,omitempty"`
}

// ParseSourceMessage decodes and validates a raw source message.
func ParseSourceMessage(raw RawMessage) (SourceMessage, error) {
	var msg SourceMessage
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return SourceMessage{}, fmt.Errorf("parse source message: %w: %w", ErrMalformedMessage, err)
	}
	if msg.SessionID == "" && len(raw.Key) > 0 {
		msg.SessionID = string(raw.Key)
	}

	switch msg.Kind {
	case KindSession:
		if msg.SessionID == "" {
			return SourceMessage{}, fmt.Errorf("session message without session_id: %w", ErrMalformedMessage)
		}
		if msg.Update == nil {
			msg.Update = &SessionUpdate{}
		}
	case KindClose:
		if msg.SessionID == "" {
			return SourceMessage{}, fmt.Errorf("close message without session_id: %w", ErrMalformedMessage)
		}
	case KindWeather:
		if msg.Weather == nil {
			return SourceMessage{}, fmt.Errorf("weather message without reading: %w", ErrMalformedMessage)
		}
	default:
		return SourceMessage{}, fmt.Errorf("unknown message kind %q: %w", msg.Kind, ErrMalformedMessage)
	}
	return msg, nil
}
