package messaging

import (
	"context"
	"time"
)

// Store persists conversation threads and consent state.
type Store interface {
	// SaveMessage inserts msg. Returns ErrDuplicateMessage when another
	// message already has the same non-empty provider id.
	SaveMessage(ctx context.Context, msg *Message) error

	// FindMessageByProviderID returns ErrMessageNotFound when no message matches.
	FindMessageByProviderID(ctx context.Context, providerID string) (*Message, error)

	// UpdateMessageStatus sets status and error description on the message
	// with providerID. Returns ErrMessageNotFound when no message matches.
	UpdateMessageStatus(ctx context.Context, providerID string, status DeliveryStatus, errorDescription *string, at time.Time) error

	// RecordOptOut upserts the opt-out time for phone.
	RecordOptOut(ctx context.Context, phone string, at time.Time) error

	// RecordOptIn upserts the opt-in time for phone.
	RecordOptIn(ctx context.Context, phone string, at time.Time) error

	// GetOptOut returns ErrOptOutNotFound for numbers that never sent a
	// consent keyword.
	GetOptOut(ctx context.Context, phone string) (*OptOutRecord, error)

	// ListConversation returns up to limit of the most recent messages for
	// phone, oldest first.
	ListConversation(ctx context.Context, phone string, limit int) ([]Message, error)
}
