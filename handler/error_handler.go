package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/smsgate/pkg/binder"
	"github.com/dmitrymomot/smsgate/pkg/logger"
)

// Classify maps err to the HTTPError sent to the client. Bind errors become
// 400 or 415; anything unknown becomes a bare 500 without the raw message.
func Classify(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return ErrUnsupportedMediaType.WithMessage(err.Error())
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidForm),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, binder.ErrInvalidPath):
		return ErrBadRequest.WithMessage(err.Error())
	default:
		return ErrInternalServerError
	}
}

// DefaultErrorHandler renders Classify(err) as JSON without logging.
func DefaultErrorHandler(ctx Context, err error) {
	writeError(ctx, Classify(err))
}

// NewErrorHandler renders errors as JSON and logs them: client errors at
// warn, server errors at error level.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx Context, err error) {
		info := Classify(err)
		r := ctx.Request()

		level := slog.LevelError
		if info.Code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Error(err),
			slog.Int("status_code", info.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		writeError(ctx, info)
	}
}

func writeError(ctx Context, e HTTPError) {
	if err := JSONError(e).Render(ctx.ResponseWriter(), ctx.Request()); err != nil {
		http.Error(ctx.ResponseWriter(), http.StatusText(e.Code), e.Code)
	}
}
