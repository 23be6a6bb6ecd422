package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"docflow/internal/model"
)

// APIError is a non-2xx answer from the store.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("document store status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("document store status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is lets callers match store rejections against the model error kinds.
func (e *APIError) Is(target error) bool {
	switch target {
	case model.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case model.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case model.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case model.ErrInvalidTransition:
		return e.Code == "INVALID_TRANSITION"
	}
	return false
}

type errorPayload struct {
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var p errorPayload
	if json.Unmarshal(body, &p) == nil && p.Error.Code != "" {
		apiErr.Code = p.Error.Code
		apiErr.Message = p.Error.Message
		apiErr.RequestID = p.RequestID
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
