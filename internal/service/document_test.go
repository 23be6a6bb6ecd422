package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docflow/internal/events"
	"docflow/internal/logging"
	"docflow/internal/model"
	"docflow/internal/pdf/pdftest"
	"docflow/internal/repository"
	repoMocks "docflow/internal/repository/mocks"
	"docflow/internal/storage"
	storeMocks "docflow/internal/storage/mocks"
	"docflow/internal/workflow"
)

var (
	owner    = Actor{ID: "user-1", Role: model.RoleUser}
	stranger = Actor{ID: "user-2", Role: model.RoleUser}
	reviewer = Actor{ID: "rev-1", Role: model.RoleReviewer}
	fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu  sync.Mutex
	got []events.StatusChanged
	err error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, ev events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
	return p.err
}

func (p *recordingPublisher) Close() {}

func stored(status model.Status) *repository.Document {
	return &repository.Document{
		ID:          "doc-1",
		Name:        "Contract",
		Status:      status,
		CreatorID:   owner.ID,
		StoragePath: "documents/doc-1/a.pdf",
		Size:        512,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
		Creator:     model.Creator{ID: owner.ID, Email: "jane@example.com", FullName: "Jane Doe", Role: model.RoleUser},
	}
}

type fixture struct {
	store   *storeMocks.MockStorage
	repo    *repoMocks.MockDocumentRepository
	events  *recordingPublisher
	metrics *Metrics
	svc     DocumentService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f := &fixture{
		store:   new(storeMocks.MockStorage),
		repo:    new(repoMocks.MockDocumentRepository),
		events:  &recordingPublisher{},
		metrics: m,
	}
	opts = append([]Option{
		WithEvents(f.events),
		WithMetrics(m),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	f.svc = NewDocumentService(f.store, f.repo, opts...)
	return f
}

func TestDocumentService_Create(t *testing.T) {
	ctx := context.Background()
	validPDF := pdftest.Document(2)

	tests := []struct {
		name       string
		actor      Actor
		docName    string
		status     model.Status
		body       io.Reader
		setupMocks func(f *fixture)
		wantErr    error
		wantErrMsg string
	}{
		{
			name:    "happy path",
			actor:   owner,
			docName: " Contract ",
			status:  model.StatusDraft,
			body:    bytes.NewReader(validPDF),
			setupMocks: func(f *fixture) {
				f.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
				}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
					return opt.ContentType == storage.ContentTypePDF &&
						opt.Size == int64(len(validPDF)) &&
						opt.Metadata["pages"] == "2" &&
						opt.Metadata["original-filename"] == "contract.pdf"
				})).Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					return storage.ObjectInfo{Key: key, Size: opt.Size}
				}, nil)
				f.repo.On("Create", ctx, mock.MatchedBy(func(d *repository.Document) bool {
					return d.Name == "Contract" && d.Status == model.StatusDraft && d.CreatorID == owner.ID &&
						strings.HasPrefix(d.StoragePath, "documents/"+d.ID+"/") && d.CreatedAt.Equal(fixedNow)
				})).Return(stored(model.StatusDraft), nil)
			},
		},
		{
			name:    "status defaults to draft",
			actor:   owner,
			docName: "Contract",
			body:    bytes.NewReader(validPDF),
			setupMocks: func(f *fixture) {
				f.store.ExpectRevision(ctx, "")
				f.repo.On("Create", ctx, mock.Anything).Return(stored(model.StatusDraft), nil)
			},
		},
		{
			name:    "non draft initial status",
			actor:   owner,
			docName: "Contract",
			status:  model.StatusApproved,
			body:    bytes.NewReader(validPDF),
			wantErr: ErrInitialStatus,
		},
		{
			name:    "reviewers cannot create",
			actor:   reviewer,
			docName: "Contract",
			body:    bytes.NewReader(validPDF),
			wantErr: ErrForbidden,
		},
		{
			name:    "name too short",
			actor:   owner,
			docName: "ab",
			body:    bytes.NewReader(validPDF),
			wantErr: ErrInvalidName,
		},
		{
			name:    "nil reader",
			actor:   owner,
			docName: "Contract",
			wantErr: ErrReaderNil,
		},
		{
			name:    "not a pdf",
			actor:   owner,
			docName: "Contract",
			body:    strings.NewReader("hello world"),
			wantErr: ErrInvalidFile,
		},
		{
			name:    "storage error",
			actor:   owner,
			docName: "Contract",
			body:    bytes.NewReader(validPDF),
			setupMocks: func(f *fixture) {
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:    "repository error with successful rollback",
			actor:   owner,
			docName: "Contract",
			body:    bytes.NewReader(validPDF),
			setupMocks: func(f *fixture) {
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: "k"}, nil)
				f.repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				f.store.On("Delete", ctx, "k").Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:    "repository error with failed rollback",
			actor:   owner,
			docName: "Contract",
			body:    bytes.NewReader(validPDF),
			setupMocks: func(f *fixture) {
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: "k"}, nil)
				f.repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				f.store.On("Delete", ctx, "k").Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			doc, err := f.svc.Create(ctx, tt.actor, tt.docName, tt.status, tt.body, "contract.pdf")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, model.StatusDraft, doc.Status)
				assert.Nil(t, doc.Creator)
			}
			f.store.AssertExpectations(t)
			f.repo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("user sees own documents without creator", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", ctx,
			repository.DocumentFilter{CreatorID: owner.ID},
			repository.DefaultSort,
			repository.PageQuery{Limit: 2, Offset: 2},
		).Return(&repository.PageResult[repository.Document]{Items: []repository.Document{*stored(model.StatusDraft)}, Total: 3}, nil)

		page, err := f.svc.List(ctx, owner, ListParams{Page: 2, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Count)
		require.Len(t, page.Results, 1)
		assert.Nil(t, page.Results[0].Creator)
		f.repo.AssertExpectations(t)
	})

	t.Run("reviewer sees submitted documents with creator", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", ctx,
			repository.DocumentFilter{ExcludeStatus: []model.Status{model.StatusDraft}},
			repository.Sort{Field: repository.SortName},
			repository.PageQuery{Limit: model.DefaultPageSize, Offset: 0},
		).Return(&repository.PageResult[repository.Document]{Items: []repository.Document{*stored(model.StatusReadyForReview)}, Total: 1}, nil)

		page, err := f.svc.List(ctx, reviewer, ListParams{Page: 0, Sort: "name,asc"})
		require.NoError(t, err)
		require.NotNil(t, page.Results[0].Creator)
		assert.Equal(t, "jane@example.com", page.Results[0].Creator.Email)
	})

	t.Run("presigned file url", func(t *testing.T) {
		f := newFixture(t, WithPresign(time.Minute))
		f.repo.On("List", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(&repository.PageResult[repository.Document]{Items: []repository.Document{*stored(model.StatusDraft)}, Total: 1}, nil)
		f.store.On("PresignGet", ctx, "documents/doc-1/a.pdf", time.Minute).Return("https://minio/doc.pdf?sig", nil)

		page, err := f.svc.List(ctx, owner, ListParams{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, "https://minio/doc.pdf?sig", page.Results[0].FileURL)
	})

	t.Run("invalid sort", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.List(ctx, owner, ListParams{Page: 1, Sort: "password,asc"})
		assert.ErrorIs(t, err, ErrInvalidSort)
		f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
		_, err := f.svc.List(ctx, owner, ListParams{Page: 1})
		assert.EqualError(t, err, "db fail")
	})
}

func TestDocumentService_GetVisibility(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   Actor
		status  model.Status
		wantErr error
	}{
		{name: "owner", actor: owner, status: model.StatusDraft},
		{name: "other user", actor: stranger, status: model.StatusReadyForReview, wantErr: ErrNotFound},
		{name: "reviewer on draft", actor: reviewer, status: model.StatusDraft, wantErr: ErrNotFound},
		{name: "reviewer on submitted", actor: reviewer, status: model.StatusUnderReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("FindByID", ctx, "doc-1").Return(stored(tt.status), nil)

			doc, err := f.svc.Get(ctx, tt.actor, "doc-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "doc-1", doc.ID)
		})
	}

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "nope").Return(nil, repository.ErrNotFound)
		_, err := f.svc.Get(ctx, owner, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Get(ctx, owner, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestDocumentService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("log carries the request id", func(t *testing.T) {
		var buf bytes.Buffer
		f := newFixture(t, WithLogger(logging.NewWithWriter(&buf, "api", "info", nil)))
		rctx := logging.WithRequestID(ctx, "req-9")
		f.repo.On("FindByID", rctx, "doc-1").Return(stored(model.StatusDraft), nil)
		f.repo.On("UpdateStatus", rctx, "doc-1", model.StatusDraft, model.StatusReadyForReview, fixedNow).
			Return(stored(model.StatusReadyForReview), nil)

		_, err := f.svc.Transition(rctx, owner, "doc-1", workflow.Submit)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"msg":"document_transition"`)
		assert.Contains(t, buf.String(), `"request_id":"req-9"`)
	})

	t.Run("submit publishes and counts", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusDraft), nil)
		f.repo.On("UpdateStatus", ctx, "doc-1", model.StatusDraft, model.StatusReadyForReview, fixedNow).
			Return(stored(model.StatusReadyForReview), nil)

		doc, err := f.svc.Transition(ctx, owner, "doc-1", workflow.Submit)
		require.NoError(t, err)
		assert.Equal(t, model.StatusReadyForReview, doc.Status)

		require.Len(t, f.events.got, 1)
		assert.Equal(t, events.StatusChanged{
			DocumentID: "doc-1",
			From:       model.StatusDraft,
			To:         model.StatusReadyForReview,
			ActorID:    owner.ID,
			At:         fixedNow,
		}, f.events.got[0])
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.transitions.WithLabelValues("SUBMIT_FOR_REVIEW", "READY_FOR_REVIEW")))
	})

	t.Run("publish failure does not fail the transition", func(t *testing.T) {
		f := newFixture(t)
		f.events.err = errors.New("nats down")
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusDraft), nil)
		f.repo.On("UpdateStatus", ctx, "doc-1", model.StatusDraft, model.StatusReadyForReview, fixedNow).
			Return(stored(model.StatusReadyForReview), nil)

		_, err := f.svc.Transition(ctx, owner, "doc-1", workflow.Submit)
		assert.NoError(t, err)
	})

	t.Run("concurrent change", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusReadyForReview), nil)
		f.repo.On("UpdateStatus", ctx, "doc-1", model.StatusReadyForReview, model.StatusRevoke, fixedNow).
			Return(nil, repository.ErrStaleStatus)

		_, err := f.svc.Transition(ctx, owner, "doc-1", workflow.Revoke)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.conflicts))
		assert.Empty(t, f.events.got)
	})

	t.Run("denied before any write", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusUnderReview), nil)

		_, err := f.svc.Transition(ctx, owner, "doc-1", workflow.Approve)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.Transition(ctx, owner, "doc-1", workflow.Submit)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentService_ChangeStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reviewer approves", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusUnderReview), nil)
		f.repo.On("UpdateStatus", ctx, "doc-1", model.StatusUnderReview, model.StatusApproved, fixedNow).
			Return(stored(model.StatusApproved), nil)

		doc, err := f.svc.ChangeStatus(ctx, reviewer, "doc-1", model.StatusApproved)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, doc.Status)
		assert.NotNil(t, doc.Creator)
	})

	t.Run("skipping a step", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusReadyForReview), nil)
		_, err := f.svc.ChangeStatus(ctx, reviewer, "doc-1", model.StatusApproved)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ChangeStatus(ctx, reviewer, "doc-1", "ARCHIVED")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestDocumentService_UpdateName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusApproved), nil)
	f.repo.On("UpdateName", ctx, "doc-1", "Renamed", fixedNow).Return(stored(model.StatusApproved), nil)

	_, err := f.svc.UpdateName(ctx, owner, "doc-1", "  Renamed  ")
	require.NoError(t, err)

	_, err = f.svc.UpdateName(ctx, owner, "doc-1", "")
	assert.ErrorIs(t, err, ErrInvalidName)
	f.repo.AssertNumberOfCalls(t, "UpdateName", 1)
}

func TestDocumentService_ReplaceContent(t *testing.T) {
	ctx := context.Background()

	t.Run("draft", func(t *testing.T) {
		f := newFixture(t)
		content := pdftest.Document(1)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusDraft), nil)
		f.store.ExpectRevision(ctx, "doc-1")
		f.repo.On("UpdateContent", ctx, "doc-1", storeMocks.IsRevisionOf("doc-1"), int64(len(content)), fixedNow).
			Return(stored(model.StatusDraft), nil)
		f.store.On("Delete", ctx, "documents/doc-1/a.pdf").Return(nil)

		_, err := f.svc.ReplaceContent(ctx, owner, "doc-1", bytes.NewReader(content), "v2.pdf")
		require.NoError(t, err)
		f.store.AssertExpectations(t)
		f.repo.AssertExpectations(t)
	})

	t.Run("not draft", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusReadyForReview), nil)
		_, err := f.svc.ReplaceContent(ctx, owner, "doc-1", bytes.NewReader(pdftest.Document(1)), "v2.pdf")
		assert.ErrorIs(t, err, ErrForbidden)
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	for _, st := range []model.Status{model.StatusDraft, model.StatusDeclined, model.StatusRevoke} {
		t.Run(string(st), func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("FindByID", ctx, "doc-1").Return(stored(st), nil)
			f.repo.On("Delete", ctx, "doc-1").Return(nil)
			f.store.On("Delete", ctx, "documents/doc-1/a.pdf").Return(errors.New("minio down"))

			assert.NoError(t, f.svc.Delete(ctx, owner, "doc-1"))
			f.repo.AssertExpectations(t)
		})
	}

	t.Run("approved documents stay", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusApproved), nil)
		assert.ErrorIs(t, f.svc.Delete(ctx, owner, "doc-1"), ErrForbidden)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Content(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.On("FindByID", ctx, "doc-1").Return(stored(model.StatusDraft), nil)
	f.store.On("Get", ctx, "documents/doc-1/a.pdf").
		Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{Size: 4, ContentType: storage.ContentTypePDF}, nil).Once()
	f.store.On("Get", ctx, "documents/doc-1/a.pdf").
		Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound).Once()

	rc, info, err := f.svc.Content(ctx, owner, "doc-1")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(4), info.Size)

	_, _, err = f.svc.Content(ctx, owner, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		want    repository.Sort
		wantErr bool
	}{
		{in: "", want: repository.DefaultSort},
		{in: "updatedAt,desc", want: repository.Sort{Field: repository.SortUpdatedAt, Desc: true}},
		{in: "status", want: repository.Sort{Field: repository.SortStatus}},
		{in: "name,ASC", want: repository.Sort{Field: repository.SortName}},
		{in: "name,sideways", wantErr: true},
		{in: "creator_id,asc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSort(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSort)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
