package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	NameMinLength = 3
	NameMaxLength = 100
)

// Creator identifies the user who created a document.
// It is only populated when the caller's role may see it.
type Creator struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// Document is the unit managed by the workflow.
// Status must only change through workflow transitions.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Creator   *Creator  `json:"creator,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	FileURL   string    `json:"fileUrl,omitempty"`
}

// ValidateName trims the name and checks its length bounds.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	case n < NameMinLength:
		return "", fmt.Errorf("%w: minimum length is %d characters", ErrInvalidName, NameMinLength)
	case n > NameMaxLength:
		return "", fmt.Errorf("%w: maximum length is %d characters", ErrInvalidName, NameMaxLength)
	}
	return name, nil
}
