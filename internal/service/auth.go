package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docflow/internal/model"
	"docflow/internal/repository"
)

const MinPasswordLength = 8

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
}

// AuthService manages accounts and the HS256 access tokens of the store.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	// Verify checks a bearer token and returns its actor.
	Verify(token string) (Actor, error)
}

type AuthOption func(*authService)

// WithBcryptCost overrides the hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *authService) { s.cost = cost }
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(s *authService) {
		if l != nil {
			s.logger = l
		}
	}
}

type authService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

type tokenClaims struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration, opts ...AuthOption) (AuthService, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &authService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return "", fmt.Errorf("%w: email: %v", ErrInvalidAccount, err)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return "", fmt.Errorf("%w: full name is required", ErrInvalidAccount)
	}
	if len(in.Password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, MinPasswordLength)
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidAccount, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, &repository.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(addr.Address),
		FullName:     fullName,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	s.logger.InfoContext(ctx, "user_registered", "user_id", u.ID, "role", string(u.Role))
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *authService) issue(u *repository.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *authService) Verify(token string) (Actor, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Actor{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return Actor{ID: claims.Subject, Role: claims.Role}, nil
}
