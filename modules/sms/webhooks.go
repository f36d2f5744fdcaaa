package sms

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/smsgate/handler"
	"github.com/dmitrymomot/smsgate/pkg/binder"
	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/ratelimiter"
	"github.com/dmitrymomot/smsgate/pkg/webhook"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

// WebhookService serves the inbound-message and delivery-status callbacks.
// Every request is rate limited per caller (when a limiter is set) and then
// signature checked before it reaches the processor.
type WebhookService struct {
	processor *messaging.Processor
	validator *webhook.Validator
	limiter   ratelimiter.RateLimiter
	keyFunc   ratelimiter.KeyFunc
	log       *slog.Logger
}

// WebhookOption configures a WebhookService.
type WebhookOption func(*WebhookService)

// WithIngressLimiter limits callbacks per key, e.g. clientip.Resolver.Key.
func WithIngressLimiter(l ratelimiter.RateLimiter, key ratelimiter.KeyFunc) WebhookOption {
	return func(s *WebhookService) {
		s.limiter = l
		s.keyFunc = key
	}
}

// WithWebhookLogger sets the logger used for rejected and failed callbacks.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(s *WebhookService) { s.log = l }
}

// NewWebhookService creates the callback endpoints. Signature checks use
// validator; callbacks are handled by processor.
func NewWebhookService(processor *messaging.Processor, validator *webhook.Validator, opts ...WebhookOption) *WebhookService {
	s := &WebhookService{
		processor: processor,
		validator: validator,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the callback routes, relative to their mount point.
func (s *WebhookService) Handle() http.Handler {
	r := chi.NewRouter()

	if s.limiter != nil && s.keyFunc != nil {
		r.Use(ratelimiter.Middleware(s.limiter, s.keyFunc))
	}
	r.Use(webhook.Middleware(s.validator))

	r.Post("/inbound", handler.Wrap(s.inbound,
		handler.WithBinders[messaging.InboundRequest](binder.Form()),
		handler.WithErrorHandler[messaging.InboundRequest](s.handleError),
	))
	r.Post("/status", handler.Wrap(s.status,
		handler.WithBinders[messaging.StatusRequest](binder.Form()),
		handler.WithErrorHandler[messaging.StatusRequest](s.handleError),
	))

	return r
}

func (s *WebhookService) inbound(ctx handler.Context, req messaging.InboundRequest) handler.Response {
	reply, err := s.processor.HandleInbound(ctx, req)
	if err != nil {
		return handler.Error(err)
	}

	body, err := carrier.NewMessagingResponse(reply.Text).Marshal()
	if err != nil {
		return handler.Error(err)
	}
	return handler.XML(body)
}

func (s *WebhookService) status(ctx handler.Context, req messaging.StatusRequest) handler.Response {
	if err := s.processor.HandleStatus(ctx, req); err != nil {
		return handler.Error(err)
	}
	return handler.EmptyWithStatus(http.StatusOK)
}

// handleError answers in plain text. Only malformed payloads are reported
// as client errors; everything else is a generic 500 and the cause stays in
// the log.
func (s *WebhookService) handleError(ctx handler.Context, err error) {
	r := ctx.Request()

	code := http.StatusInternalServerError
	if errors.Is(err, messaging.ErrMalformedCallback) {
		code = http.StatusBadRequest
	} else if info := handler.Classify(err); info.Code < http.StatusInternalServerError {
		code = info.Code
	}

	level := slog.LevelError
	if code < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.log.LogAttrs(r.Context(), level, "webhook request failed",
		logger.Error(err),
		slog.Int("status_code", code),
		slog.String("path", r.URL.Path),
		logger.Component("webhook"),
	)

	http.Error(ctx.ResponseWriter(), http.StatusText(code), code)
}
