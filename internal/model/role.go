package model

import (
	"fmt"
	"strings"
)

// Role is the capability class of the acting user.
type Role string

const (
	RoleUser     Role = "USER"
	RoleReviewer Role = "REVIEWER"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleReviewer
}

func ParseRole(v string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(v)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", v)
	}
	return r, nil
}
