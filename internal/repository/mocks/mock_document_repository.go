package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docflow/internal/model"
	"docflow/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) document(args mock.Arguments) (*repository.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Document), args.Error(1)
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *repository.Document) (*repository.Document, error) {
	return m.document(m.Called(ctx, doc))
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*repository.Document, error) {
	return m.document(m.Called(ctx, id))
}

func (m *MockDocumentRepository) List(ctx context.Context, f repository.DocumentFilter, s repository.Sort, pq repository.PageQuery) (*repository.PageResult[repository.Document], error) {
	args := m.Called(ctx, f, s, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[repository.Document]), args.Error(1)
}

func (m *MockDocumentRepository) UpdateName(ctx context.Context, id, name string, at time.Time) (*repository.Document, error) {
	return m.document(m.Called(ctx, id, name, at))
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*repository.Document, error) {
	return m.document(m.Called(ctx, id, from, to, at))
}

func (m *MockDocumentRepository) UpdateContent(ctx context.Context, id, storagePath string, size int64, at time.Time) (*repository.Document, error) {
	return m.document(m.Called(ctx, id, storagePath, size, at))
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
