package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQPublisher publishes events to a topic exchange with publisher confirms.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	service string
	log     *zap.Logger
}

func NewRabbitMQPublisher(url, service string, log *zap.Logger) (*RabbitMQPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn("rabbitmq dial failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	log.Info("rabbitmq publisher connected")
	return &RabbitMQPublisher{conn: conn, channel: channel, service: service, log: log}, nil
}

func (p *RabbitMQPublisher) declareExchange(exchange string) error {
	return p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, exchange string, event *Event, headers Headers) error {
	if err := p.declareExchange(exchange); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	// One channel per publish keeps confirmations from different callers apart.
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Headers: amqp.Table{
			"x-trace-id":       headers.TraceID,
			"x-correlation-id": headers.CorrelationID,
			"x-service":        p.service,
		},
	}
	if err := ch.PublishWithContext(pubCtx, exchange, event.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case c := <-confirms:
		if !c.Ack {
			return errors.New("message was not acknowledged by broker")
		}
	case <-pubCtx.Done():
		return fmt.Errorf("publish confirmation: %w", pubCtx.Err())
	}
	p.log.Info("event published",
		zap.String("exchange", exchange),
		zap.String("routingKey", event.RoutingKey()),
		zap.String("traceId", headers.TraceID),
	)
	return nil
}

func (p *RabbitMQPublisher) IsHealthy() bool {
	if p == nil || p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed() && !p.channel.IsClosed()
}

func (p *RabbitMQPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
