package carrier

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig   = errors.New("invalid carrier configuration")
	ErrInvalidRequest  = errors.New("invalid send request")
	ErrTransport       = errors.New("carrier request failed")
	ErrInvalidResponse = errors.New("unexpected carrier response")
	ErrCircuitOpen     = errors.New("carrier circuit breaker is open")
)

// ProviderError is an error response returned by the carrier API.
type ProviderError struct {
	HTTPStatus int
	Code       int
	Message    string
	MoreInfo   string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("carrier error %d (http %d)", e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("carrier error %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// ProviderCode returns the carrier error code used for retry classification.
func (e *ProviderError) ProviderCode() int {
	return e.Code
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
