package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Direction tells whether a message was sent by us or received from a subscriber.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DeliveryStatus is the carrier-reported lifecycle state of a message.
// Values the carrier adds later are stored verbatim.
type DeliveryStatus string

const (
	StatusAccepted    DeliveryStatus = "accepted"
	StatusQueued      DeliveryStatus = "queued"
	StatusSending     DeliveryStatus = "sending"
	StatusSent        DeliveryStatus = "sent"
	StatusDelivered   DeliveryStatus = "delivered"
	StatusFailed      DeliveryStatus = "failed"
	StatusUndelivered DeliveryStatus = "undelivered"
	StatusReceiving   DeliveryStatus = "receiving"
	StatusReceived    DeliveryStatus = "received"
	StatusRead        DeliveryStatus = "read"
	StatusCanceled    DeliveryStatus = "canceled"
)

// Message is one SMS in a conversation thread, keyed by the subscriber's
// normalized phone number.
type Message struct {
	ID                uuid.UUID
	Direction         Direction
	ConversationPhone string // normalized subscriber number, the thread key
	From              string
	To                string
	Body              string
	ProviderMessageID string // carrier id; empty when the carrier never accepted the message
	Segments          int
	Status            DeliveryStatus
	ErrorDescription  *string // "<code>: <message>" from the carrier
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OptOutRecord holds the latest opt-out and opt-in times for a number.
type OptOutRecord struct {
	PhoneNumber string
	OptedOutAt  *time.Time
	OptedInAt   *time.Time
}

// IsOptedOut applies most-recent-wins: the number is opted out when it has
// an opt-out newer than any opt-in.
func (r *OptOutRecord) IsOptedOut() bool {
	if r == nil || r.OptedOutAt == nil {
		return false
	}
	return r.OptedInAt == nil || r.OptedOutAt.After(*r.OptedInAt)
}
