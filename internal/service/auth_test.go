package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"docflow/internal/logging"
	"docflow/internal/model"
	"docflow/internal/repository"
	repoMocks "docflow/internal/repository/mocks"
	"docflow/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuth(t *testing.T, users repository.UserRepository, now func() time.Time) AuthService {
	t.Helper()
	svc, err := NewAuthService(users, testSecret, time.Hour,
		WithBcryptCost(bcrypt.MinCost),
		WithAuthClock(now),
		WithAuthLogger(logging.Discard()),
	)
	require.NoError(t, err)
	return svc
}

func TestNewAuthService_ShortSecret(t *testing.T) {
	_, err := NewAuthService(nil, "short", time.Hour)
	assert.Error(t, err)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token carrying the role", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		users.On("Create", ctx, mock.MatchedBy(func(u *repository.User) bool {
			return u.Email == "rev@example.com" && u.Role == model.RoleReviewer &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")) == nil
		})).Return(&repository.User{ID: "rev-1", Email: "rev@example.com", FullName: "Rita Reviewer", Role: model.RoleReviewer}, nil)

		tok, err := newAuth(t, users, time.Now).Register(ctx, RegisterInput{
			Email:    "Rev@Example.com",
			Password: "s3cret-pass",
			FullName: "Rita Reviewer",
			Role:     model.RoleReviewer,
		})
		require.NoError(t, err)

		u, _, err := session.DecodeToken(tok)
		require.NoError(t, err)
		assert.Equal(t, session.User{ID: "rev-1", Name: "Rita Reviewer", Email: "rev@example.com", Role: model.RoleReviewer}, u)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []RegisterInput{
			{Email: "not-an-email", Password: "s3cret-pass", FullName: "A"},
			{Email: "a@b.c", Password: "short", FullName: "A"},
			{Email: "a@b.c", Password: "s3cret-pass"},
			{Email: "a@b.c", Password: "s3cret-pass", FullName: "A", Role: "ADMIN"},
		}
		for _, in := range tests {
			_, err := newAuth(t, new(repoMocks.MockUserRepository), time.Now).Register(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidAccount)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		users.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicate)

		_, err := newAuth(t, users, time.Now).Register(ctx, RegisterInput{Email: "a@b.c", Password: "s3cret-pass", FullName: "A"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	users := new(repoMocks.MockUserRepository)
	users.On("FindByEmail", ctx, "jane@example.com").
		Return(&repository.User{ID: "user-1", Email: "jane@example.com", FullName: "Jane", Role: model.RoleUser, PasswordHash: string(hash)}, nil)
	users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrNotFound)

	now := time.Now()
	clock := func() time.Time { return now }
	svc := newAuth(t, users, clock)

	tok, err := svc.Login(ctx, " jane@example.com ", "s3cret-pass")
	require.NoError(t, err)

	actor, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "user-1", Role: model.RoleUser}, actor)

	_, err = svc.Login(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	t.Run("expired", func(t *testing.T) {
		later := newAuth(t, users, func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign signature", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "user-1",
			"role": "REVIEWER",
			"exp":  now.Add(time.Hour).Unix(),
		}).SignedString([]byte("another-secret-of-enough-length"))
		require.NoError(t, err)
		_, err = svc.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("repository failure", func(t *testing.T) {
		broken := new(repoMocks.MockUserRepository)
		broken.On("FindByEmail", ctx, mock.Anything).Return(nil, errors.New("db down"))
		_, err := newAuth(t, broken, clock).Login(ctx, "x@y.z", "pw")
		assert.EqualError(t, err, "db down")
	})
}
