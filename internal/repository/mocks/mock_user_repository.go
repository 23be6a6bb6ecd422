package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docflow/internal/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*repository.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *repository.User) (*repository.User, error) {
	return m.user(m.Called(ctx, u))
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return m.user(m.Called(ctx, id))
}
