package binder

import (
	"fmt"
	"net/http"
)

// DefaultMaxMemory bounds multipart parsing.
const DefaultMaxMemory = 1 << 20

// Form binds url-encoded or multipart body fields into `form` tagged struct
// fields. Query string values are ignored.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			return fmt.Errorf("%w: expected application/x-www-form-urlencoded or multipart/form-data", ErrMissingContentType)
		}

		switch mt := mediaType(ct); mt {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindValues(v, "form", r.PostForm, ErrInvalidForm)
		case "multipart/form-data":
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindValues(v, "form", r.MultipartForm.Value, ErrInvalidForm)
		default:
			return fmt.Errorf("%w: got %s", ErrUnsupportedMediaType, mt)
		}
	}
}
