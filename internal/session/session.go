// Package session resolves the acting user's role and carries the access
// token. A Session is created at the application boundary and passed
// explicitly to the components that need it.
package session

import (
	"errors"
	"sync"
	"time"

	"docflow/internal/model"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type Session struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time

	state State
	user  *User
	exp   time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads persisted state. An undecodable token is dropped rather than
// failing the session.
func Open(store Store, opts ...Option) (*Session, error) {
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	s.state = st
	if st.Token != "" {
		if u, exp, err := DecodeToken(st.Token); err == nil {
			s.user = &u
			s.exp = exp
		} else {
			s.state.Token = ""
		}
	}
	return s, nil
}

// SignIn installs a fresh access token and persists it.
func (s *Session) SignIn(token string) error {
	u, exp, err := DecodeToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The fallback flag belongs to the previous account.
	s.state = State{Token: token, Role: u.Role}
	s.user = &u
	s.exp = exp
	return s.store.Save(s.state)
}

// Close signs out, forgetting the token and the persisted role flag.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.user = nil
	s.exp = time.Time{}
	return s.store.Clear()
}

// Authenticated reports whether an unexpired token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Token returns the access token, or "" when absent or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Token == "" {
		return ""
	}
	if !s.exp.IsZero() && !s.now().Before(s.exp) {
		return ""
	}
	return s.state.Token
}

// User returns the identity decoded from the token.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Role resolves the acting role: token claim, then persisted flag, then USER.
func (s *Session) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.user.Role.Valid() {
		return s.user.Role
	}
	if s.state.Role.Valid() {
		return s.state.Role
	}
	return model.RoleUser
}

// IsReviewer is shorthand for Role() == REVIEWER.
func (s *Session) IsReviewer() bool {
	return s.Role() == model.RoleReviewer
}

// SetRole persists the fallback role flag.
func (s *Session) SetRole(role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Role = role
	return s.store.Save(s.state)
}

// InferRole derives the role from role-gated visibility: only reviewers
// receive creator details. An empty page tells nothing.
func (s *Session) InferRole(page model.Page) (model.Role, bool) {
	if len(page.Results) == 0 {
		return "", false
	}
	role := model.RoleUser
	if page.Results[0].Creator != nil {
		role = model.RoleReviewer
	}
	if err := s.SetRole(role); err != nil {
		return role, false
	}
	return role, true
}
