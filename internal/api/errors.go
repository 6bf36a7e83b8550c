package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/caseworker/internal/common"
)

// Error is a non-success response from the backend.
type Error struct {
	Method     string
	Path       string
	Detail     string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		return common.ErrBackend
	}
}

// parseDetail pulls the structured detail message out of an error body.
// The backend sends either {"detail": "text"} or a validation list
// {"detail": [{"loc": [...], "msg": "text"}]}.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if len(item.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
			} else {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return strings.TrimSpace(string(envelope.Detail))
}
