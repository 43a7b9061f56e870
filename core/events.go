package core

import (
	"context"
	"time"
)

// Event kinds
const (
	EventFolderCreated = "folder.created"
	EventFolderUpdated = "folder.updated"
	EventFolderDeleted = "folder.deleted"
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

type (
	// Event describes a change made to the records catalog.
	Event struct {
		Kind       string    `json:"kind"`
		FolderID   string    `json:"folder_id,omitempty"`
		RecordID   string    `json:"record_id,omitempty"`
		OccurredAt time.Time `json:"occurred_at"` // UTC
	}

	// EventPublisher is any service that can broadcast catalog Events.
	EventPublisher interface {
		Publish(ctx context.Context, events ...Event) error
	}
)
