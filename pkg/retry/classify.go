package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ProviderCoder is implemented by carrier errors that carry a numeric code.
type ProviderCoder interface {
	ProviderCode() int
}

// transientCodes lists carrier error codes that describe a temporary
// condition on the provider side.
var transientCodes = map[int]struct{}{
	20429: {}, // too many requests
	20500: {}, // internal server error
	20503: {}, // service unavailable
	30001: {}, // queue overflow
	30008: {}, // unknown error, usually resolves on retry
}

// networkMarkers are substrings of error messages produced by dropped or
// refused connections and socket timeouts.
var networkMarkers = []string{
	"timeout",
	"timed out",
	"etimedout",
	"econnreset",
	"connection reset",
	"econnrefused",
	"connection refused",
	"socket hang up",
	"broken pipe",
	"unexpected eof",
	"server closed idle connection",
}

// IsTransientCode reports whether a carrier error code is on the retry
// allow-list.
func IsTransientCode(code int) bool {
	_, ok := transientCodes[code]
	return ok
}

// DefaultIsRetryable classifies an error as transient when its carrier code
// is allow-listed or its message looks like a network failure. Context
// cancellation is never retried.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var coder ProviderCoder
	if errors.As(err, &coder) && IsTransientCode(coder.ProviderCode()) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
