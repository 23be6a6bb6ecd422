package mocks

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"docflow/internal/storage"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

// ExpectRevision expects a PDF upload under a fresh key of document docID
// and answers with that key and the announced size. An empty docID
// matches any document.
func (m *MockStorage) ExpectRevision(ctx any, docID string) *mock.Call {
	prefix := "documents/"
	if docID != "" {
		prefix += docID + "/"
	}
	return m.On("Put", ctx,
		mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, ".pdf")
		}),
		mock.Anything,
		mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == storage.ContentTypePDF
		}),
	).Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType, Metadata: opt.Metadata}
	}, nil)
}

// IsRevisionOf matches a storage key written by ExpectRevision for docID.
func IsRevisionOf(docID string) any {
	return mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "documents/"+docID+"/")
	})
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo); ok {
		return f(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

// Get returns a nil reader when the first return value is nil, so a
// missing object can be expressed as Return(nil, storage.ObjectInfo{}, err).
func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}
