package binder

import (
	"fmt"
	"net/http"
)

// Query binds URL query parameters into `query` tagged fields.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindValues(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}

// Path binds route parameters into `path` tagged fields. param looks up a
// parameter by name, for example chi.URLParam.
func Path(param func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if param == nil {
			return fmt.Errorf("%w: no parameter lookup", ErrInvalidPath)
		}
		return bindLookup(v, "path", func(name string) []string {
			if s := param(r, name); s != "" {
				return []string{s}
			}
			return nil
		}, ErrInvalidPath)
	}
}
