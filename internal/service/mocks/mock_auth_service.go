package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docflow/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Verify(token string) (service.Actor, error) {
	args := m.Called(token)
	return args.Get(0).(service.Actor), args.Error(1)
}
