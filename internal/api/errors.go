package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"RedisVSCode-Webview/internal/connection"
)

// DefaultErrorMessage is shown when an error carries no usable text
const DefaultErrorMessage = "出错了！"

// Error is a non-2xx answer of the API
type Error struct {
	StatusCode int
	Body       connection.APIError
}

func (e *Error) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// ErrorMessage maps err to the text shown to the user
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultErrorMessage
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Body.Message) != "" {
		return apiErr.Body.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

// IsCancel reports whether err comes from a cancelled or timed out request.
// Both are expected when a newer request supersedes an older one.
func IsCancel(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeError builds an *Error from a response body. The message may be a
// string or a list of validation messages.
func decodeError(status int, body []byte) *Error {
	out := &Error{StatusCode: status, Body: connection.APIError{StatusCode: status}}

	var raw struct {
		StatusCode int             `json:"statusCode"`
		Message    json.RawMessage `json:"message"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		out.Body.Message = strings.TrimSpace(string(body))
		return out
	}
	if raw.StatusCode != 0 {
		out.Body.StatusCode = raw.StatusCode
	}
	out.Body.Error = raw.Error

	var msg string
	var msgs []string
	switch {
	case json.Unmarshal(raw.Message, &msg) == nil:
		out.Body.Message = msg
	case json.Unmarshal(raw.Message, &msgs) == nil:
		out.Body.Message = strings.Join(msgs, "; ")
	}
	if out.Body.Message == "" {
		out.Body.Message = raw.Error
	}
	return out
}
