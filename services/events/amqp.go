package eventsvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trezcool/masomo/core"
)

// channel is the subset of *amqp.Channel used to publish events.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher broadcasts catalog events to a topic exchange; the routing key is the event kind.
type AMQPPublisher struct {
	exchange    string
	openChannel func() (channel, error)
}

var _ core.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher declares conf.AMQP.Exchange on conn.
func NewAMQPPublisher(conn *amqp.Connection, conf *core.Config) (*AMQPPublisher, error) {
	pub := &AMQPPublisher{
		exchange:    conf.AMQP.Exchange,
		openChannel: func() (channel, error) { return conn.Channel() },
	}
	if err := pub.defineExchange(); err != nil {
		return nil, err
	}
	return pub, nil
}

func (pub *AMQPPublisher) defineExchange() error {
	ch, err := pub.openChannel()
	if err != nil {
		return errors.Wrap(err, "opening channel")
	}
	defer func() { _ = ch.Close() }()

	if err = ch.ExchangeDeclare(
		pub.exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // noWait
		nil,          // arguments
	); err != nil {
		return errors.Wrapf(err, "declaring exchange %q", pub.exchange)
	}
	return nil
}

func newPublishing(evt core.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "marshalling event")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Kind,
		Body:         body,
	}, nil
}

func (pub *AMQPPublisher) Publish(ctx context.Context, events ...core.Event) error {
	if len(events) == 0 {
		return nil
	}
	ch, err := pub.openChannel()
	if err != nil {
		return errors.Wrap(err, "opening channel")
	}
	defer func() { _ = ch.Close() }()

	for _, evt := range events {
		msg, err := newPublishing(evt)
		if err != nil {
			return err
		}
		if err = ch.PublishWithContext(ctx, pub.exchange, evt.Kind, false, false, msg); err != nil {
			return errors.Wrapf(err, "publishing %s", evt.Kind)
		}
	}
	return nil
}
