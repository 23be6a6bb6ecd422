package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCommandFailed     = errors.New("command failed")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrInvalidName       = errors.New("invalid name")
	ErrSubmitting        = errors.New("submission already in progress")
	ErrNotFound          = errors.New("document not found")
	ErrConflict          = errors.New("document changed concurrently")
)

// WrapError keeps the error kind visible to errors.Is while recording the operation.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
