package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is an API failure decoded from an RFC 7807 problem+json
// response, or synthesized from the status line when the server sent
// something else.
type Error struct {
	Status int    `json:"status"`
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Title)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsForbidden reports whether err is a 403 API error. A 403 is a local
// denial for the caller to surface; unlike a 401 it never invalidates
// the session.
func IsForbidden(err error) bool { return IsStatus(err, http.StatusForbidden) }

// IsValidation reports whether err is a 422 API error, carrying
// server-side form validation detail for display.
func IsValidation(err error) bool { return IsStatus(err, http.StatusUnprocessableEntity) }

// decodeError builds an *Error from a non-2xx response body.
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{
		Status: resp.StatusCode,
		Title:  http.StatusText(resp.StatusCode),
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	// Best effort: a non-problem body leaves the synthesized error.
	_ = json.Unmarshal(body, apiErr)
	if apiErr.Status == 0 {
		apiErr.Status = resp.StatusCode
	}
	return apiErr
}
