package messaging

import "errors"

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrOptOutNotFound    = errors.New("opt-out record not found")
	ErrDuplicateMessage  = errors.New("message with this provider id already exists")
	ErrMalformedCallback = errors.New("malformed provider callback")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrRecipientOptedOut = errors.New("recipient has opted out")
	ErrDeliveryFailed    = errors.New("message delivery failed")
	ErrNoSendPermit      = errors.New("no send permit")
)
