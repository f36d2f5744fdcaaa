package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/smsgate/pkg/clock"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/phone"
)

// InboundRequest is the form payload of an incoming-message callback.
type InboundRequest struct {
	MessageSid  string `form:"MessageSid"`
	From        string `form:"From"`
	To          string `form:"To"`
	Body        string `form:"Body"`
	NumSegments string `form:"NumSegments"`
}

// StatusRequest is the form payload of a delivery-status callback.
type StatusRequest struct {
	MessageSid    string `form:"MessageSid"`
	MessageStatus string `form:"MessageStatus"`
	ErrorCode     string `form:"ErrorCode"`
	ErrorMessage  string `form:"ErrorMessage"`
}

// Reply is the outcome of an inbound callback: the keyword that matched and
// the auto-reply text, empty when nothing is sent back.
type Reply struct {
	Keyword Keyword
	Text    string
}

// Processor handles provider callbacks after their signature is verified.
type Processor struct {
	store Store
	clock clock.Clock
	log   *slog.Logger
	newID func() uuid.UUID
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorClock sets the time source for message and consent timestamps.
func WithProcessorClock(c clock.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

// WithProcessorLogger sets the logger. Defaults to a discarding logger.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.log = l }
}

// NewProcessor creates a callback processor over store.
func NewProcessor(store Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store: store,
		clock: clock.Real(),
		log:   logger.Discard(),
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleInbound applies consent keywords and persists the message. The
// message is stored whatever its content; consent changes are written
// before it. A redelivered MessageSid is answered with the same reply but
// does not touch consent again, so a retried STOP or START never overrides
// a keyword received after it.
func (p *Processor) HandleInbound(ctx context.Context, req InboundRequest) (Reply, error) {
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.MessageSid) == "" {
		return Reply{}, fmt.Errorf("%w: From and MessageSid are required", ErrMalformedCallback)
	}

	from := phone.Normalize(req.From)
	now := p.clock.Now()
	kw := ClassifyKeyword(req.Body)

	switch _, err := p.store.FindMessageByProviderID(ctx, req.MessageSid); {
	case err == nil:
		p.log.InfoContext(ctx, "inbound message already stored, provider redelivered callback",
			logger.ProviderMessageID(req.MessageSid),
		)
		return Reply{Keyword: kw, Text: kw.Reply()}, nil
	case !errors.Is(err, ErrMessageNotFound):
		return Reply{}, fmt.Errorf("find inbound message: %w", err)
	}

	switch kw {
	case KeywordOptOut:
		if err := p.store.RecordOptOut(ctx, from, now); err != nil {
			return Reply{}, fmt.Errorf("record opt-out: %w", err)
		}
		p.log.InfoContext(ctx, "subscriber opted out", logger.Phone(from))
	case KeywordOptIn:
		if err := p.store.RecordOptIn(ctx, from, now); err != nil {
			return Reply{}, fmt.Errorf("record opt-in: %w", err)
		}
		p.log.InfoContext(ctx, "subscriber opted in", logger.Phone(from))
	}

	to := req.To
	if to != "" {
		to = phone.Normalize(to)
	}

	msg := &Message{
		ID:                p.newID(),
		Direction:         DirectionInbound,
		ConversationPhone: from,
		From:              from,
		To:                to,
		Body:              req.Body,
		ProviderMessageID: req.MessageSid,
		Segments:          parseSegments(req.NumSegments),
		Status:            StatusReceived,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := p.store.SaveMessage(ctx, msg); err != nil {
		if !errors.Is(err, ErrDuplicateMessage) {
			return Reply{}, fmt.Errorf("save inbound message: %w", err)
		}
		p.log.InfoContext(ctx, "inbound message already stored, provider redelivered callback",
			logger.ProviderMessageID(req.MessageSid),
		)
	}

	p.log.DebugContext(ctx, "inbound message processed",
		logger.Phone(from),
		logger.ProviderMessageID(req.MessageSid),
		slog.String("keyword", kw.String()),
	)

	return Reply{Keyword: kw, Text: kw.Reply()}, nil
}

// HandleStatus records a delivery status update. Callbacks for unknown
// messages are logged and acknowledged so the provider does not retry them.
func (p *Processor) HandleStatus(ctx context.Context, req StatusRequest) error {
	if strings.TrimSpace(req.MessageSid) == "" || strings.TrimSpace(req.MessageStatus) == "" {
		return fmt.Errorf("%w: MessageSid and MessageStatus are required", ErrMalformedCallback)
	}

	if _, err := p.store.FindMessageByProviderID(ctx, req.MessageSid); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			p.log.WarnContext(ctx, "status callback for unknown message",
				logger.ProviderMessageID(req.MessageSid),
				logger.Status(req.MessageStatus),
			)
			return nil
		}
		return fmt.Errorf("find message: %w", err)
	}

	status := DeliveryStatus(req.MessageStatus)
	// nil leaves a previously stored description in place.
	errDesc := errorDescription(req.ErrorCode, req.ErrorMessage)

	err := p.store.UpdateMessageStatus(ctx, req.MessageSid, status, errDesc, p.clock.Now())
	switch {
	case errors.Is(err, ErrMessageNotFound):
		p.log.WarnContext(ctx, "message disappeared before status update", logger.ProviderMessageID(req.MessageSid))
		return nil
	case err != nil:
		return fmt.Errorf("update message status: %w", err)
	}

	p.log.InfoContext(ctx, "message status updated",
		logger.ProviderMessageID(req.MessageSid),
		logger.Status(req.MessageStatus),
	)
	return nil
}

// errorDescription formats "<code>: <message>" or nil when no code is set.
func errorDescription(code, message string) *string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if strings.TrimSpace(message) == "" {
		message = "Unknown error"
	}
	desc := code + ": " + message
	return &desc
}

func parseSegments(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
