package model

import (
	"fmt"
	"strings"
)

// Status is the workflow state of a document.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusReadyForReview Status = "READY_FOR_REVIEW"
	StatusUnderReview    Status = "UNDER_REVIEW"
	StatusApproved       Status = "APPROVED"
	StatusDeclined       Status = "DECLINED"
	StatusRevoke         Status = "REVOKE"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusDraft,
	StatusReadyForReview,
	StatusUnderReview,
	StatusApproved,
	StatusDeclined,
	StatusRevoke,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label renders the status for humans, e.g. "Ready for review".
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	l := strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
	return strings.ToUpper(l[:1]) + l[1:]
}

// Class renders the status as a style token, e.g. "status-ready-for-review".
func (s Status) Class() string {
	return "status-" + strings.ToLower(strings.ReplaceAll(string(s), "_", "-"))
}

// ParseStatus accepts the wire form of a status, case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown document status %q", v)
	}
	return s, nil
}
