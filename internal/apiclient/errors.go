package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound matches a 404 from the API via errors.Is.
var ErrNotFound = errors.New("apiclient: not found")

// StatusError is returned for responses outside 200–299.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("edge api error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("edge api error (%d): %s", e.StatusCode, e.Message)
}

// Is lets callers test a 404 with errors.Is(err, ErrNotFound).
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// DecodeError wraps a payload that did not match the expected schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if detail := detailString(apiErr.Detail); detail != "" {
			return &StatusError{StatusCode: status, Message: detail}
		}
		if apiErr.Message != "" {
			return &StatusError{StatusCode: status, Message: apiErr.Message}
		}
		if apiErr.Error != "" {
			return &StatusError{StatusCode: status, Message: apiErr.Error}
		}
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &StatusError{StatusCode: status, Message: msg}
}

// detailString flattens FastAPI's detail, which is either a string or a list
// of validation objects.
func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
