package webhook

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/smsgate/pkg/logger"
)

// Config holds webhook validation settings.
type Config struct {
	// AuthToken is the provider auth token used as the HMAC key.
	AuthToken string `env:"WEBHOOK_AUTH_TOKEN"`
	// AuthTokenParam names an SSM parameter to read the token from when
	// AuthToken is empty.
	AuthTokenParam string `env:"WEBHOOK_AUTH_TOKEN_PARAM"`
	// PublicURL is the externally visible base URL the provider calls, e.g.
	// https://sms.example.com. Required behind proxies or tunnels that
	// rewrite the host or scheme.
	PublicURL string `env:"WEBHOOK_PUBLIC_URL"`
	// SkipValidation disables signature checks. Local development only.
	SkipValidation bool `env:"WEBHOOK_SKIP_SIGNATURE" envDefault:"false"`
}

// Validator authenticates provider callbacks.
type Validator struct {
	secret    string
	publicURL string
	skip      bool
	log       *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithPublicURL sets the base URL used to rebuild the signed URL.
func WithPublicURL(base string) ValidatorOption {
	return func(v *Validator) {
		v.publicURL = strings.TrimRight(base, "/")
	}
}

// WithSkipValidation turns validation off. Every skipped request is logged
// at warn level.
func WithSkipValidation(skip bool) ValidatorOption {
	return func(v *Validator) {
		v.skip = skip
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.log = l
	}
}

// NewValidator creates a validator for secret. An empty secret is accepted
// here and reported per request as ErrMissingSecret, so a misconfigured
// deployment answers 500 instead of failing open.
func NewValidator(secret string, opts ...ValidatorOption) *Validator {
	v := &Validator{secret: secret, log: logger.Discard()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewValidatorFromConfig creates a validator from Config and a resolved secret.
func NewValidatorFromConfig(cfg Config, secret string, opts ...ValidatorOption) *Validator {
	base := []ValidatorOption{WithPublicURL(cfg.PublicURL), WithSkipValidation(cfg.SkipValidation)}
	return NewValidator(secret, append(base, opts...)...)
}

// Validate checks the request signature. It parses the form body, so
// handlers can read r.PostForm afterwards.
func (v *Validator) Validate(r *http.Request) error {
	if v.skip {
		v.log.WarnContext(r.Context(), "webhook signature validation is DISABLED, accepting unauthenticated request",
			slog.String("path", r.URL.Path),
		)
		return nil
	}
	if v.secret == "" {
		return ErrMissingSecret
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return ErrMissingSignature
	}

	if err := r.ParseForm(); err != nil {
		return errors.Join(ErrInvalidForm, err)
	}

	var params url.Values
	if r.Method == http.MethodPost {
		params = r.PostForm
	}

	return VerifySignature(v.SignedURL(r), params, v.secret, signature)
}

// SignedURL returns the URL the provider signed for r.
func (v *Validator) SignedURL(r *http.Request) string {
	if v.publicURL != "" {
		return v.publicURL + r.URL.RequestURI()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())
}

// Middleware rejects callbacks that fail validation before they reach the
// handler: 500 when no secret is configured, 403 for a missing or wrong
// signature.
func Middleware(v *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Validate(r); err != nil {
				code := StatusCode(err)
				if code >= http.StatusInternalServerError {
					v.log.ErrorContext(r.Context(), "webhook validation misconfigured", logger.Error(err))
				} else {
					v.log.WarnContext(r.Context(), "rejected webhook request",
						slog.String("path", r.URL.Path),
						logger.Error(err),
					)
				}
				http.Error(w, http.StatusText(code), code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
