package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docflow/internal/model"
	"docflow/internal/remote"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) doc(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, in remote.CreateRequest) (*model.Document, error) {
	return m.doc(m.Called(ctx, in))
}

func (m *MockStore) UpdateName(ctx context.Context, id, name string) (*model.Document, error) {
	return m.doc(m.Called(ctx, id, name))
}

func (m *MockStore) ReplaceContent(ctx context.Context, id string, file remote.File) (*model.Document, error) {
	return m.doc(m.Called(ctx, id, file))
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) SendToReview(ctx context.Context, id string) (*model.Document, error) {
	return m.doc(m.Called(ctx, id))
}

func (m *MockStore) RevokeReview(ctx context.Context, id string) (*model.Document, error) {
	return m.doc(m.Called(ctx, id))
}

func (m *MockStore) ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	return m.doc(m.Called(ctx, id, status))
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh() {
	m.Called()
}

func (m *MockRefresher) ShowFirstPage() {
	m.Called()
}
