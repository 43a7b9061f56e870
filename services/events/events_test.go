package eventsvc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/services/logger"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     int
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	ch.declared = append(ch.declared, name+":"+kind)
	return nil
}

func (ch *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if ch.publishErr != nil {
		return ch.publishErr
	}
	ch.published = append(ch.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (ch *fakeChannel) Close() error {
	ch.closed++
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	pub := &AMQPPublisher{exchange: "records", openChannel: func() (channel, error) { return ch, nil }}
	require.NoError(t, pub.defineExchange())
	assert.Equal(t, []string{"records:topic"}, ch.declared)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []core.Event{
		{Kind: core.EventFolderCreated, FolderID: "f1", OccurredAt: now},
		{Kind: core.EventRecordUpdated, FolderID: "f1", RecordID: "r1", OccurredAt: now},
	}
	require.NoError(t, pub.Publish(context.Background(), events...))

	require.Len(t, ch.published, 2)
	for i, p := range ch.published {
		assert.Equal(t, "records", p.exchange)
		assert.Equal(t, events[i].Kind, p.key)
		assert.Equal(t, "application/json", p.msg.ContentType)
		assert.Equal(t, now, p.msg.Timestamp)

		var got core.Event
		require.NoError(t, json.Unmarshal(p.msg.Body, &got))
		assert.Equal(t, events[i], got)
	}
	assert.Equal(t, 2, ch.closed)

	t.Run("nothing to publish", func(t *testing.T) {
		require.NoError(t, pub.Publish(context.Background()))
		assert.Equal(t, 2, ch.closed)
	})

	t.Run("publish error", func(t *testing.T) {
		ch.publishErr = errors.New("connection lost")
		err := pub.Publish(context.Background(), events[0])
		assert.EqualError(t, err, "publishing folder.created: connection lost")
	})

	t.Run("channel error", func(t *testing.T) {
		pub := &AMQPPublisher{openChannel: func() (channel, error) { return nil, errors.New("closed") }}
		assert.EqualError(t, pub.Publish(context.Background(), events[0]), "opening channel: closed")
	})
}

func TestPublisherMock(t *testing.T) {
	pub := NewPublisherMock()
	require.NoError(t, pub.Publish(context.Background(), core.Event{Kind: core.EventFolderCreated}, core.Event{Kind: core.EventFolderDeleted}))
	assert.Equal(t, []string{core.EventFolderCreated, core.EventFolderDeleted}, pub.Kinds())

	pub.Reset()
	assert.Empty(t, pub.Kinds())

	pub.Err = errors.New("down")
	assert.Error(t, pub.Publish(context.Background(), core.Event{}))
}

func TestConsolePublisher(t *testing.T) {
	pub := NewConsolePublisher(logsvc.NewRollbarLoggerMock())
	assert.NoError(t, pub.Publish(context.Background(), core.Event{Kind: core.EventRecordDeleted, RecordID: "r1"}))
}
