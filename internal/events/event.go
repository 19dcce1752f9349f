package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Event         string    `json:"event"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
	TraceID       string    `json:"traceId"`
	CorrelationID string    `json:"correlationId"`
}

type Headers struct {
	TraceID       string
	CorrelationID string
	Service       string
}

// Publisher ships events to whatever sink the process was configured with.
type Publisher interface {
	Publish(ctx context.Context, exchange string, event *Event, headers Headers) error
	Close() error
}

func NewEvent(name, version string, payload any, headers Headers) *Event {
	return &Event{
		Event:         name,
		Version:       version,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		TraceID:       headers.TraceID,
		CorrelationID: headers.CorrelationID,
	}
}

// NewHeaders returns fresh trace and correlation ids for one sync run.
func NewHeaders(service string) Headers {
	return Headers{
		TraceID:       uuid.New().String(),
		CorrelationID: uuid.New().String(),
		Service:       service,
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Event) RoutingKey() string {
	return e.Event + "." + e.Version
}
