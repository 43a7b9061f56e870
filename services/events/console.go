package eventsvc

import (
	"context"
	"sync"

	"github.com/trezcool/masomo/core"
)

// ConsolePublisher logs catalog events instead of broadcasting them.
type ConsolePublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*ConsolePublisher)(nil)

func NewConsolePublisher(logger core.Logger) *ConsolePublisher {
	return &ConsolePublisher{logger: logger}
}

func (pub *ConsolePublisher) Publish(_ context.Context, events ...core.Event) error {
	for _, evt := range events {
		pub.logger.Info("event "+evt.Kind, map[string]interface{}{
			"folder_id":   evt.FolderID,
			"record_id":   evt.RecordID,
			"occurred_at": evt.OccurredAt,
		})
	}
	return nil
}

// PublisherMock records published events.
type PublisherMock struct {
	mu     sync.Mutex
	events []core.Event
	Err    error // returned by Publish when set
}

var _ core.EventPublisher = (*PublisherMock)(nil)

func NewPublisherMock() *PublisherMock {
	return &PublisherMock{}
}

func (pub *PublisherMock) Publish(_ context.Context, events ...core.Event) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.Err != nil {
		return pub.Err
	}
	pub.events = append(pub.events, events...)
	return nil
}

// Kinds returns the kinds of the published events, in order.
func (pub *PublisherMock) Kinds() []string {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	kinds := make([]string, 0, len(pub.events))
	for _, evt := range pub.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

func (pub *PublisherMock) Events() []core.Event {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return append([]core.Event(nil), pub.events...)
}

func (pub *PublisherMock) Reset() {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.events = nil
}
