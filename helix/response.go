package helix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is the normalized outcome of one API call. Every path through the
// pipeline (success, API-reported error, transport failure) produces one, so
// callers branch on Status instead of catching transport errors.
//
// Body is always a JSON object: upstream non-JSON bodies are rewritten into
// the {"status":N,"message":...} envelope, and transport failures become a
// status-0 envelope.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("helix: decoding response body: %w", err)
	}
	return nil
}

// ErrorMessage returns the envelope's message field, if any.
func (r *Response) ErrorMessage() string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return ""
	}
	return env.Message
}

// normalizeBody rewrites a non-JSON upstream body into the standard error
// envelope. JSON responses, and bodies that already look like a JSON object,
// pass through untouched.
func normalizeBody(status int, contentType string, body []byte) []byte {
	if strings.Contains(contentType, "application/json") {
		return body
	}
	if looksLikeJSONObject(body) {
		return body
	}
	wrapped, err := json.Marshal(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{Status: status, Message: string(body)})
	if err != nil {
		return body
	}
	return wrapped
}

func looksLikeJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// failureResponse converts a transport-level failure into a status-0
// envelope carrying the error's type name as a diagnostic reason. Callers
// always receive a Response, never a raw transport error.
func failureResponse(err error) *Response {
	body, merr := json.Marshal(struct {
		Status  int    `json:"status"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Status: 0, Error: fmt.Sprintf("%T", err), Message: err.Error()})
	if merr != nil {
		body = []byte(`{"status":0,"error":"unknown","message":"transport failure"}`)
	}
	return &Response{
		Status: 0,
		Header: make(http.Header),
		Body:   body,
	}
}
