package sms

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/smsgate/pkg/clientip"
	"github.com/dmitrymomot/smsgate/pkg/httpserver"
	"github.com/dmitrymomot/smsgate/pkg/requestid"
)

// Mountable is a group of routes that can be mounted under a prefix.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures what the SMS gateway router mounts. Nil services
// are skipped.
type RouterOptions struct {
	// Webhooks serves provider callbacks under /webhooks/sms.
	Webhooks Mountable
	// Messages serves the outbound API under /v1.
	Messages Mountable

	// ClientIP stores the caller address in the request context for
	// logging and rate limiting. Optional.
	ClientIP *clientip.Resolver

	// ReadinessChecks back /health/ready.
	ReadinessChecks []httpserver.Check
	Logger          *slog.Logger
}

// Router creates the gateway router.
//
// Example:
//
//	r := sms.Router(sms.RouterOptions{
//	    Webhooks: sms.NewWebhookService(processor, validator),
//	    Messages: sms.NewMessagesService(service),
//	})
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	if opts.ClientIP != nil {
		r.Use(opts.ClientIP.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(opts.Logger, opts.ReadinessChecks...))

	if opts.Webhooks != nil {
		r.Mount("/webhooks/sms", opts.Webhooks.Handle())
	}
	if opts.Messages != nil {
		r.Mount("/v1", opts.Messages.Handle())
	}

	return r
}
