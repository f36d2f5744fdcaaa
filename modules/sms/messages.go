package sms

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/smsgate/handler"
	"github.com/dmitrymomot/smsgate/pkg/binder"
	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

var (
	errRecipientOptedOut = handler.HTTPError{
		Code:    http.StatusForbidden,
		Key:     "recipient_opted_out",
		Message: "recipient has opted out of messages",
	}
	errDeliveryFailed = handler.HTTPError{
		Code:    http.StatusBadGateway,
		Key:     "delivery_failed",
		Message: "carrier rejected the message",
	}
	errSendThrottled   = handler.ErrServiceUnavailable.WithMessage("outbound capacity exhausted, try again later")
	errCarrierDegraded = handler.ErrServiceUnavailable.WithMessage("carrier temporarily unavailable, try again later")
)

// ConversationRequest selects a thread and how many of its latest messages
// to return.
type ConversationRequest struct {
	Phone string `path:"phone"`
	Limit int    `query:"limit"`
}

// MessagesService is the outbound API: send a message and read threads.
type MessagesService struct {
	service *messaging.Service
	log     *slog.Logger
}

// MessagesOption configures a MessagesService.
type MessagesOption func(*MessagesService)

// WithMessagesLogger sets the logger used for failed API requests.
func WithMessagesLogger(l *slog.Logger) MessagesOption {
	return func(s *MessagesService) { s.log = l }
}

// NewMessagesService creates the outbound API over service.
func NewMessagesService(service *messaging.Service, opts ...MessagesOption) *MessagesService {
	s := &MessagesService{service: service, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the API routes, relative to their mount point.
func (s *MessagesService) Handle() http.Handler {
	r := chi.NewRouter()
	errorHandler := handler.NewErrorHandler(s.log)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, req)
	})

	r.Post("/messages", handler.Wrap(s.send,
		handler.WithBinders[messaging.OutboundRequest](binder.JSON()),
		handler.WithErrorHandler[messaging.OutboundRequest](errorHandler),
	))
	r.Get("/conversations/{phone}/messages", handler.Wrap(s.conversation,
		handler.WithBinders[ConversationRequest](binder.Path(urlParam), binder.Query()),
		handler.WithErrorHandler[ConversationRequest](errorHandler),
	))

	return r
}

func (s *MessagesService) send(ctx handler.Context, req messaging.OutboundRequest) handler.Response {
	msg, err := s.service.SendMessage(ctx, req)
	switch {
	case err == nil:
		return handler.JSON(newMessageView(msg), handler.WithStatus(http.StatusAccepted))
	case errors.Is(err, messaging.ErrInvalidMessage):
		return handler.Error(handler.ErrUnprocessableEntity.WithMessage(err.Error()))
	case errors.Is(err, messaging.ErrRecipientOptedOut):
		return handler.Error(errRecipientOptedOut)
	case errors.Is(err, messaging.ErrNoSendPermit):
		return handler.Error(errSendThrottled)
	case errors.Is(err, carrier.ErrCircuitOpen):
		return handler.Error(errCarrierDegraded)
	case errors.Is(err, messaging.ErrDeliveryFailed):
		e := errDeliveryFailed
		if pe, ok := carrier.AsProviderError(err); ok && pe.Message != "" {
			e = e.WithMessage(pe.Message)
		}
		return handler.Error(e)
	default:
		return handler.Error(err)
	}
}

func (s *MessagesService) conversation(ctx handler.Context, req ConversationRequest) handler.Response {
	msgs, err := s.service.Conversation(ctx, req.Phone, req.Limit)
	if err != nil {
		if errors.Is(err, messaging.ErrInvalidMessage) {
			return handler.Error(handler.ErrBadRequest.WithMessage(err.Error()))
		}
		return handler.Error(err)
	}

	views := make([]messageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, newMessageView(&msgs[i]))
	}
	return handler.JSON(views, handler.WithMeta(map[string]any{"count": len(views)}))
}

// urlParam returns a decoded chi route parameter; chi matches on the raw
// path, so "%2B1555..." arrives still escaped.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
