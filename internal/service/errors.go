package service

import (
	"errors"

	"docflow/internal/model"
)

var (
	ErrIDRequired  = errors.New("id is required")
	ErrReaderNil   = errors.New("reader is nil")
	ErrInvalidFile = errors.New("file must be a valid PDF")
	// ErrInitialStatus rejects creation in any status but DRAFT.
	ErrInitialStatus = errors.New("documents are created as DRAFT")
	ErrInvalidStatus = errors.New("unknown status")
	ErrInvalidSort   = errors.New("invalid sort")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidAccount     = errors.New("invalid account details")
	ErrInvalidToken       = errors.New("invalid access token")

	// Kinds shared with the client.
	ErrNotFound          = model.ErrNotFound
	ErrForbidden         = model.ErrUnauthorized
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrConflict          = model.ErrConflict
	ErrInvalidName       = model.ErrInvalidName
)
