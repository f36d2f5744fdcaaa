package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dmitrymomot/smsgate/pkg/logger"
)

const (
	Header = "X-Request-ID"

	// ProviderHeader carries the carrier's per-delivery token on webhook
	// calls. It is reused as request id when X-Request-ID is absent so a
	// redelivered callback logs under the same id.
	ProviderHeader = "I-Twilio-Idempotency-Token"

	maxIDLength = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type contextKey struct{}

// WithContext stores id in ctx.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request id or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Middleware takes the id from X-Request-ID or the provider token, or
// generates one, then echoes it in the response and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := pick(r.Header.Get(Header), r.Header.Get(ProviderHeader))
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

// LoggerExtractor adds request_id to records logged with a request context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}

func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && len(c) <= maxIDLength && validID.MatchString(c) {
			return c
		}
	}
	return uuid.NewString()
}
