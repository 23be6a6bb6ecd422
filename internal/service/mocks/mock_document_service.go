package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"docflow/internal/model"
	"docflow/internal/service"
	"docflow/internal/storage"
	"docflow/internal/workflow"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) document(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Create(ctx context.Context, actor service.Actor, name string, status model.Status, r io.Reader, originalFilename string) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, name, status, r, originalFilename))
}

func (m *MockDocumentService) List(ctx context.Context, actor service.Actor, p service.ListParams) (*model.Page, error) {
	args := m.Called(ctx, actor, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, actor service.Actor, id string) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, id))
}

func (m *MockDocumentService) Content(ctx context.Context, actor service.Actor, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, actor, id)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockDocumentService) UpdateName(ctx context.Context, actor service.Actor, id, name string) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, id, name))
}

func (m *MockDocumentService) ReplaceContent(ctx context.Context, actor service.Actor, id string, r io.Reader, originalFilename string) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, id, r, originalFilename))
}

func (m *MockDocumentService) Delete(ctx context.Context, actor service.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockDocumentService) Transition(ctx context.Context, actor service.Actor, id string, t workflow.Transition) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, id, t))
}

func (m *MockDocumentService) ChangeStatus(ctx context.Context, actor service.Actor, id string, to model.Status) (*model.Document, error) {
	return m.document(m.Called(ctx, actor, id, to))
}
