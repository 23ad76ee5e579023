// Package apierrors turns non-2xx dashboard API responses into typed errors.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MinErrorStatusCode is the lowest status treated as an error.
const MinErrorStatusCode = 400

// maxBodyBytes caps how much of an error body is kept.
const maxBodyBytes = 64 << 10

// HTTPError is a terminal API error carrying the status and server-provided detail.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	target := strings.TrimSpace(e.Method + " " + e.Path)
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", target, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d %s", target, e.StatusCode, http.StatusText(e.StatusCode))
}

// errorBody covers the shapes the API handlers return:
// {"error": "..."}, {"message": "..."}, {"error": "...", "details": [...]}
// and JSON:API style {"errors": [{"title": "...", "detail": "..."}]}.
type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details"`
	Errors  []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// HTTPStatus exposes the status for retry classification.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// FromBody builds an HTTPError from an already-read response body.
func FromBody(method, path string, statusCode int, body []byte) *HTTPError {
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	e := &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       string(body),
	}

	var parsed errorBody
	if json.Unmarshal(body, &parsed) != nil {
		e.Message = strings.TrimSpace(string(body))
		return e
	}

	switch {
	case parsed.Error != "" || parsed.Message != "":
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Message
		}
		if len(parsed.Details) > 0 {
			msg += ": " + strings.Join(parsed.Details, "; ")
		}
		e.Message = msg
	case len(parsed.Errors) > 0:
		parts := make([]string, 0, len(parsed.Errors))
		for _, item := range parsed.Errors {
			if item.Detail != "" {
				parts = append(parts, item.Title+": "+item.Detail)
			} else {
				parts = append(parts, item.Title)
			}
		}
		e.Message = strings.Join(parts, "; ")
	}
	return e
}

// ParseHTTPError reads resp and returns an *HTTPError, or nil for non-error statuses.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	path := ""
	method := ""
	if resp.Request != nil {
		method = resp.Request.Method
		if resp.Request.URL != nil {
			path = resp.Request.URL.Path
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    fmt.Sprintf("read error response body: %v", err),
		}
	}
	return FromBody(method, path, resp.StatusCode, body)
}

// StatusCode extracts the HTTP status from anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}
