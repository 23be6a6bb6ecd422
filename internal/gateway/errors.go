package gateway

import (
	"fmt"

	"docflow/internal/model"
)

// CommandError is a mutation the store rejected or never answered.
// It matches model.ErrCommandFailed and the underlying cause.
type CommandError struct {
	Op         string
	DocumentID string
	Err        error
}

func (e *CommandError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, model.ErrCommandFailed, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.DocumentID, model.ErrCommandFailed, e.Err)
}

func (e *CommandError) Unwrap() []error {
	return []error{model.ErrCommandFailed, e.Err}
}
