package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/clock"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/phone"
)

// Sender submits a message to the carrier. Satisfied by *carrier.Client.
type Sender interface {
	Send(ctx context.Context, to, body string) (carrier.SendResult, error)
	From() string
}

// OutboundRequest asks for one message to be sent.
type OutboundRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// DefaultConversationLimit caps thread listings when no limit is given.
const DefaultConversationLimit = 50

// Service sends outbound messages and reads conversation threads.
type Service struct {
	store    Store
	pipeline *Pipeline
	sender   Sender
	clock    clock.Clock
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock sets the time source for message timestamps.
func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithServiceLogger sets the logger. Defaults to a discarding logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates the outbound messaging service.
func NewService(store Store, pipeline *Pipeline, sender Sender, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		sender:   sender,
		clock:    clock.Real(),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage checks consent, sends through the pipeline and stores the
// outbound message. A send that fails terminally is stored with status
// failed and returned as ErrDeliveryFailed wrapping the carrier error.
func (s *Service) SendMessage(ctx context.Context, req OutboundRequest) (*Message, error) {
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("%w: recipient and body are required", ErrInvalidMessage)
	}

	to := phone.Normalize(req.To)

	consent, err := s.store.GetOptOut(ctx, to)
	switch {
	case err == nil && consent.IsOptedOut():
		return nil, ErrRecipientOptedOut
	case err != nil && !errors.Is(err, ErrOptOutNotFound):
		return nil, fmt.Errorf("check opt-out: %w", err)
	}

	res, sendErr := s.pipeline.Send(ctx, func(ctx context.Context) (carrier.SendResult, error) {
		return s.sender.Send(ctx, to, req.Body)
	})
	if errors.Is(sendErr, ErrNoSendPermit) {
		return nil, sendErr
	}

	now := s.clock.Now()
	msg := &Message{
		ID:                uuid.New(),
		Direction:         DirectionOutbound,
		ConversationPhone: to,
		From:              s.sender.From(),
		To:                to,
		Body:              req.Body,
		ProviderMessageID: res.SID,
		Segments:          max(res.Segments, 1),
		Status:            DeliveryStatus(res.Status),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if msg.Status == "" {
		msg.Status = StatusQueued
	}

	if sendErr != nil {
		msg.Status = StatusFailed
		msg.ErrorDescription = describeSendError(sendErr)
		s.log.ErrorContext(ctx, "outbound message failed", logger.Phone(to), logger.Error(sendErr))
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		// Carrier already accepted it; the provider id in the log is all that is left.
		s.log.ErrorContext(ctx, "failed to store outbound message",
			logger.ProviderMessageID(msg.ProviderMessageID),
			logger.Error(err),
		)
		if sendErr == nil {
			return nil, fmt.Errorf("save outbound message: %w", err)
		}
	}

	if sendErr != nil {
		return msg, fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr)
	}

	s.log.InfoContext(ctx, "outbound message accepted",
		logger.Phone(to),
		logger.ProviderMessageID(msg.ProviderMessageID),
		logger.Status(string(msg.Status)),
	)
	return msg, nil
}

// Conversation returns the latest messages exchanged with a number.
func (s *Service) Conversation(ctx context.Context, number string, limit int) ([]Message, error) {
	if strings.TrimSpace(number) == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrInvalidMessage)
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultConversationLimit
	}
	return s.store.ListConversation(ctx, phone.Normalize(number), limit)
}

func describeSendError(err error) *string {
	var desc string
	if pe, ok := carrier.AsProviderError(err); ok {
		desc = *errorDescription(fmt.Sprint(pe.Code), pe.Message)
	} else {
		desc = err.Error()
	}
	return &desc
}
