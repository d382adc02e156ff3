package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	ExchangeName = "activity"
	RoutingKey   = "user.activity"
)

// publisher is the slice of *amqp.Channel the sink needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes activity records to a topic exchange.
type AMQPSink struct {
	conn    *amqp.Connection
	channel publisher
	closer  func() error
}

// DialAMQP connects with a few retries and declares the activity exchange.
func DialAMQP(url string, logger *zap.SugaredLogger) (*AMQPSink, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warnw("rabbitmq connect failed, retrying", "attempt", i+1, "err", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSink{conn: conn, channel: ch, closer: func() error {
		_ = ch.Close()
		return conn.Close()
	}}, nil
}

func (s *AMQPSink) Send(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.channel.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    rec.ID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.OccurredAt,
	})
}

func (s *AMQPSink) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
