package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/events"
	"docflow/internal/model"
	"docflow/internal/pdf"
	"docflow/internal/policy"
	"docflow/internal/repository"
	"docflow/internal/storage"
	"docflow/internal/workflow"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   string
	Role model.Role
}

// ListParams selects a page. Page is 1-based as on the wire.
type ListParams struct {
	Page int
	Size int
	Sort string
}

// DocumentService holds the document use cases. Every method enforces the
// status graph, the role policy and per-role visibility.
type DocumentService interface {
	// Create validates the PDF, stores it and records a DRAFT document.
	Create(ctx context.Context, actor Actor, name string, status model.Status, r io.Reader, originalFilename string) (*model.Document, error)

	List(ctx context.Context, actor Actor, p ListParams) (*model.Page, error)

	Get(ctx context.Context, actor Actor, id string) (*model.Document, error)

	// Content streams the stored PDF.
	Content(ctx context.Context, actor Actor, id string) (io.ReadCloser, storage.ObjectInfo, error)

	UpdateName(ctx context.Context, actor Actor, id, name string) (*model.Document, error)

	// ReplaceContent swaps the PDF of a DRAFT document.
	ReplaceContent(ctx context.Context, actor Actor, id string, r io.Reader, originalFilename string) (*model.Document, error)

	Delete(ctx context.Context, actor Actor, id string) error

	Transition(ctx context.Context, actor Actor, id string, t workflow.Transition) (*model.Document, error)

	// ChangeStatus resolves the transition reaching to from the current status.
	ChangeStatus(ctx context.Context, actor Actor, id string, to model.Status) (*model.Document, error)
}

type Option func(*documentService)

func WithEvents(p events.Publisher) Option {
	return func(s *documentService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *documentService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *documentService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPresign makes fileUrl a presigned link valid for ttl.
func WithPresign(ttl time.Duration) Option {
	return func(s *documentService) { s.presignTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *documentService) {
		if now != nil {
			s.now = now
		}
	}
}

type documentService struct {
	store      storage.Storage
	repo       repository.DocumentRepository
	events     events.Publisher
	metrics    *Metrics
	logger     *slog.Logger
	presignTTL time.Duration
	now        func() time.Time
}

func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{
		store:  store,
		repo:   repo,
		events: events.Noop{},
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Create(ctx context.Context, actor Actor, name string, status model.Status, r io.Reader, originalFilename string) (*model.Document, error) {
	if err := policy.Authorize(actor.Role, "", policy.Create); err != nil {
		return nil, err
	}
	name, err := model.ValidateName(name)
	if err != nil {
		return nil, err
	}
	if status != "" && status != model.StatusDraft {
		return nil, ErrInitialStatus
	}
	if r == nil {
		return nil, ErrReaderNil
	}

	id := uuid.NewString()
	obj, err := s.putPDF(ctx, id, r, originalFilename)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored, err := s.repo.Create(ctx, &repository.Document{
		ID:          id,
		Name:        name,
		Status:      model.StatusDraft,
		CreatorID:   actor.ID,
		StoragePath: obj.Key,
		Size:        obj.Size,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	s.logger.InfoContext(ctx, "document_created", "document_id", id, "actor_id", actor.ID, "size", obj.Size)
	return s.view(ctx, actor, stored), nil
}

// putPDF validates the upload and stores it under a fresh key.
func (s *documentService) putPDF(ctx context.Context, docID string, r io.Reader, originalFilename string) (storage.ObjectInfo, error) {
	content, info, err := pdf.Read(r)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalid) || errors.Is(err, pdf.ErrTooLarge) {
			return storage.ObjectInfo{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		return storage.ObjectInfo{}, err
	}

	key := storage.DocumentKey(docID)
	obj, err := s.store.Put(ctx, key, bytes.NewReader(content), storage.PutObjectOptions{
		Size:        info.Size,
		ContentType: storage.ContentTypePDF,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"pages":             fmt.Sprint(info.Pages),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload to storage: %w", err)
	}
	return obj, nil
}

func (s *documentService) List(ctx context.Context, actor Actor, p ListParams) (*model.Page, error) {
	sort, err := ParseSort(p.Sort)
	if err != nil {
		return nil, err
	}
	q := model.PageQuery{Page: p.Page - 1, Size: p.Size}.Normalize()

	res, err := s.repo.List(ctx, visibility(actor), sort, repository.PageQuery{Limit: q.Size, Offset: q.Offset()})
	if err != nil {
		return nil, err
	}
	page := &model.Page{Count: res.Total, Results: make([]model.Document, 0, len(res.Items))}
	for i := range res.Items {
		page.Results = append(page.Results, *s.view(ctx, actor, &res.Items[i]))
	}
	return page, nil
}

func (s *documentService) Get(ctx context.Context, actor Actor, id string) (*model.Document, error) {
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, doc), nil
}

func (s *documentService) Content(ctx context.Context, actor Actor, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, fmt.Errorf("%w: content missing", ErrNotFound)
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("read storage: %w", err)
	}
	return rc, info, nil
}

func (s *documentService) UpdateName(ctx context.Context, actor Actor, id, name string) (*model.Document, error) {
	name, err := model.ValidateName(name)
	if err != nil {
		return nil, err
	}
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, doc.Status, policy.EditName); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateName(ctx, id, name, s.now())
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return s.view(ctx, actor, updated), nil
}

func (s *documentService) ReplaceContent(ctx context.Context, actor Actor, id string, r io.Reader, originalFilename string) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, doc.Status, policy.ReplaceContent); err != nil {
		return nil, err
	}

	obj, err := s.putPDF(ctx, id, r, originalFilename)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateContent(ctx, id, obj.Key, obj.Size, s.now())
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			s.logger.ErrorContext(ctx, "storage_rollback_failed", "key", obj.Key, "error", delErr.Error())
		}
		return nil, mapRepoErr(err)
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.WarnContext(ctx, "storage_cleanup_failed", "key", doc.StoragePath, "error", err.Error())
	}
	return s.view(ctx, actor, updated), nil
}

// Delete removes the record, then the content. A leftover object is logged,
// not reported.
func (s *documentService) Delete(ctx context.Context, actor Actor, id string) error {
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor.Role, doc.Status, policy.Delete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.WarnContext(ctx, "storage_cleanup_failed", "key", doc.StoragePath, "error", err.Error())
	}
	s.logger.InfoContext(ctx, "document_deleted", "document_id", id, "actor_id", actor.ID)
	return nil
}

func (s *documentService) ChangeStatus(ctx context.Context, actor Actor, id string, to model.Status) (*model.Document, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	t, err := workflow.TransitionFor(doc.Status, to)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, doc, t)
}

func (s *documentService) Transition(ctx context.Context, actor Actor, id string, t workflow.Transition) (*model.Document, error) {
	doc, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, doc, t)
}

func (s *documentService) apply(ctx context.Context, actor Actor, doc *repository.Document, t workflow.Transition) (*model.Document, error) {
	if err := policy.Authorize(actor.Role, doc.Status, policy.ForTransition(t)); err != nil {
		return nil, err
	}
	next, err := workflow.Next(doc.Status, t)
	if err != nil {
		return nil, err
	}

	at := s.now()
	updated, err := s.repo.UpdateStatus(ctx, doc.ID, doc.Status, next, at)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			s.metrics.conflict()
		}
		return nil, mapRepoErr(err)
	}
	s.metrics.transition(t, next)
	s.logger.InfoContext(ctx, "document_transition",
		"document_id", doc.ID,
		"actor_id", actor.ID,
		"transition", string(t),
		"from", string(doc.Status),
		"to", string(next),
	)

	ev := events.StatusChanged{DocumentID: doc.ID, From: doc.Status, To: next, ActorID: actor.ID, At: at}
	if err := s.events.PublishStatusChanged(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "event_publish_failed", "document_id", doc.ID, "error", err.Error())
	}
	return s.view(ctx, actor, updated), nil
}

// find loads id and hides documents the actor may not see.
func (s *documentService) find(ctx context.Context, actor Actor, id string) (*repository.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !visible(actor, doc) {
		return nil, ErrNotFound
	}
	return doc, nil
}

// visibility is the listing filter for actor: users see their own
// documents, reviewers everything already submitted.
func visibility(actor Actor) repository.DocumentFilter {
	if actor.Role == model.RoleReviewer {
		return repository.DocumentFilter{ExcludeStatus: []model.Status{model.StatusDraft}}
	}
	return repository.DocumentFilter{CreatorID: actor.ID}
}

func visible(actor Actor, doc *repository.Document) bool {
	if actor.Role == model.RoleReviewer {
		return doc.Status != model.StatusDraft
	}
	return doc.CreatorID == actor.ID
}

// view renders doc for actor. Only reviewers get the creator.
func (s *documentService) view(ctx context.Context, actor Actor, doc *repository.Document) *model.Document {
	out := &model.Document{
		ID:        doc.ID,
		Name:      doc.Name,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if actor.Role == model.RoleReviewer {
		c := doc.Creator
		out.Creator = &c
	}
	if s.presignTTL > 0 && doc.StoragePath != "" {
		u, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignTTL)
		if err != nil {
			s.logger.WarnContext(ctx, "presign_failed", "document_id", doc.ID, "error", err.Error())
		} else {
			out.FileURL = u
		}
	}
	return out
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleStatus):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// ParseSort reads "field,dir". An empty value is the default order.
func ParseSort(raw string) (repository.Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return repository.DefaultSort, nil
	}
	field, dir, _ := strings.Cut(raw, ",")
	s := repository.Sort{Field: repository.SortField(strings.TrimSpace(field))}
	switch s.Field {
	case repository.SortCreatedAt, repository.SortUpdatedAt, repository.SortName, repository.SortStatus:
	default:
		return repository.Sort{}, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, field)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		s.Desc = true
	default:
		return repository.Sort{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
	}
	return s, nil
}
