package handler

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Meta  any          `json:"meta,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed API call.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption adjusts a JSON response.
type JSONOption func(*jsonResponse)

func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithMeta(meta any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// JSON responds with {"data": v}, 200 unless WithStatus says otherwise.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: Envelope{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError responds with {"error": {...}} and e's status code.
func JSONError(e HTTPError) Response {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return &jsonResponse{
		status: e.Code,
		body:   Envelope{Error: &ErrorDetail{Code: e.Key, Message: msg}},
	}
}

// Error defers rendering to the error handler.
func Error(err error) Response {
	return errorResponse{err: err}
}

type errorResponse struct{ err error }

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

type rawResponse struct {
	status      int
	contentType string
	body        []byte
}

func (r rawResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	if r.contentType != "" {
		w.Header().Set("Content-Type", r.contentType)
	}
	w.WriteHeader(r.status)
	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)
	return err
}

// XML writes an already encoded XML document with status 200.
func XML(body []byte) Response {
	return rawResponse{status: http.StatusOK, contentType: "text/xml; charset=utf-8", body: body}
}

// Empty responds 204 No Content.
func Empty() Response {
	return rawResponse{status: http.StatusNoContent}
}

// EmptyWithStatus responds with status and no body.
func EmptyWithStatus(status int) Response {
	return rawResponse{status: status}
}
