package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the logger instead of a broker. Used when no
// RABBITMQ_URL is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, exchange string, event *Event, headers Headers) error {
	p.log.Info("event",
		zap.String("exchange", exchange),
		zap.String("routingKey", event.RoutingKey()),
		zap.String("event", event.Event),
		zap.Any("payload", event.Payload),
		zap.String("traceId", headers.TraceID),
		zap.String("correlationId", headers.CorrelationID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
