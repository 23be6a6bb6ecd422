// Package gateway issues document mutations against the store after the
// status graph and the role policy allow them.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docflow/internal/model"
	"docflow/internal/policy"
	"docflow/internal/remote"
	"docflow/internal/workflow"
)

// Store is the mutating half of the remote document store.
type Store interface {
	Create(ctx context.Context, in remote.CreateRequest) (*model.Document, error)
	UpdateName(ctx context.Context, id, name string) (*model.Document, error)
	ReplaceContent(ctx context.Context, id string, file remote.File) (*model.Document, error)
	Delete(ctx context.Context, id string) error
	SendToReview(ctx context.Context, id string) (*model.Document, error)
	RevokeReview(ctx context.Context, id string) (*model.Document, error)
	ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Document, error)
}

// RoleSource yields the acting role at call time.
type RoleSource interface {
	Role() model.Role
}

// Refresher reloads the visible collection after a successful mutation.
type Refresher interface {
	Refresh()
	ShowFirstPage()
}

// createKey gates document creation, which has no id yet.
const createKey = "\x00create"

type Gateway struct {
	store     Store
	roles     RoleSource
	refresher Refresher
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New builds a Gateway. refresher may be nil.
func New(store Store, roles RoleSource, refresher Refresher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:     store,
		roles:     roles,
		refresher: refresher,
		logger:    logger,
		inflight:  make(map[string]struct{}),
	}
}

// Submitting reports whether a mutation of document id is outstanding.
func (g *Gateway) Submitting(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[id]
	return ok
}

// CreateSubmitting reports whether a create is outstanding.
func (g *Gateway) CreateSubmitting() bool {
	return g.Submitting(createKey)
}

func (g *Gateway) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[key]; ok {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

func (g *Gateway) release(key string) {
	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
}

func (g *Gateway) Create(ctx context.Context, name string, file remote.File) (*model.Document, error) {
	const op = "create"
	name, err := model.ValidateName(name)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(g.roles.Role(), "", policy.Create); err != nil {
		return nil, err
	}
	if !g.acquire(createKey) {
		return nil, fmt.Errorf("%s: %w", op, model.ErrSubmitting)
	}
	defer g.release(createKey)

	doc, err := g.store.Create(ctx, remote.CreateRequest{Name: name, Status: model.StatusDraft, File: file})
	if err != nil {
		return nil, g.fail(op, "", err)
	}
	g.logger.Info("document_created", "document_id", doc.ID)
	if g.refresher != nil {
		g.refresher.ShowFirstPage()
	}
	return doc, nil
}

func (g *Gateway) UpdateName(ctx context.Context, doc model.Document, name string) (*model.Document, error) {
	name, err := model.ValidateName(name)
	if err != nil {
		return nil, err
	}
	return g.mutate(ctx, doc, policy.EditName, func(ctx context.Context) (*model.Document, error) {
		return g.store.UpdateName(ctx, doc.ID, name)
	})
}

func (g *Gateway) ReplaceContent(ctx context.Context, doc model.Document, file remote.File) (*model.Document, error) {
	return g.mutate(ctx, doc, policy.ReplaceContent, func(ctx context.Context) (*model.Document, error) {
		return g.store.ReplaceContent(ctx, doc.ID, file)
	})
}

func (g *Gateway) Delete(ctx context.Context, doc model.Document) error {
	_, err := g.mutate(ctx, doc, policy.Delete, func(ctx context.Context) (*model.Document, error) {
		return nil, g.store.Delete(ctx, doc.ID)
	})
	return err
}

// ChangeStatus applies t to doc. Submit and revoke use their dedicated
// endpoints; reviewer transitions post the target status.
func (g *Gateway) ChangeStatus(ctx context.Context, doc model.Document, t workflow.Transition) (*model.Document, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown transition %q", model.ErrInvalidTransition, t)
	}
	return g.mutate(ctx, doc, policy.ForTransition(t), func(ctx context.Context) (*model.Document, error) {
		switch t {
		case workflow.Submit:
			return g.store.SendToReview(ctx, doc.ID)
		case workflow.Revoke:
			return g.store.RevokeReview(ctx, doc.ID)
		default:
			return g.store.ChangeStatus(ctx, doc.ID, t.Target())
		}
	})
}

func (g *Gateway) SubmitForReview(ctx context.Context, doc model.Document) (*model.Document, error) {
	return g.ChangeStatus(ctx, doc, workflow.Submit)
}

func (g *Gateway) Revoke(ctx context.Context, doc model.Document) (*model.Document, error) {
	return g.ChangeStatus(ctx, doc, workflow.Revoke)
}

func (g *Gateway) StartReview(ctx context.Context, doc model.Document) (*model.Document, error) {
	return g.ChangeStatus(ctx, doc, workflow.StartReview)
}

func (g *Gateway) Approve(ctx context.Context, doc model.Document) (*model.Document, error) {
	return g.ChangeStatus(ctx, doc, workflow.Approve)
}

func (g *Gateway) Decline(ctx context.Context, doc model.Document) (*model.Document, error) {
	return g.ChangeStatus(ctx, doc, workflow.Decline)
}

// Perform dispatches a menu action. Create is not an action on doc.
func (g *Gateway) Perform(ctx context.Context, doc model.Document, a policy.Action) (*model.Document, error) {
	if t, ok := a.Transition(); ok {
		return g.ChangeStatus(ctx, doc, t)
	}
	switch a {
	case policy.Delete:
		return nil, g.Delete(ctx, doc)
	}
	return nil, fmt.Errorf("gateway: %s requires input", a)
}

func (g *Gateway) mutate(ctx context.Context, doc model.Document, a policy.Action, call func(context.Context) (*model.Document, error)) (*model.Document, error) {
	op := opName(a)
	if err := policy.Authorize(g.roles.Role(), doc.Status, a); err != nil {
		return nil, err
	}
	if !g.acquire(doc.ID) {
		return nil, fmt.Errorf("%s %s: %w", op, doc.ID, model.ErrSubmitting)
	}
	defer g.release(doc.ID)

	updated, err := call(ctx)
	if err != nil {
		return nil, g.fail(op, doc.ID, err)
	}
	g.logger.Info("document_command", "op", op, "document_id", doc.ID)
	if g.refresher != nil {
		g.refresher.Refresh()
	}
	return updated, nil
}

func (g *Gateway) fail(op, id string, err error) error {
	g.logger.Warn("document_command_failed", "op", op, "document_id", id, "error", err.Error())
	return &CommandError{Op: op, DocumentID: id, Err: err}
}

func opName(a policy.Action) string {
	switch a {
	case policy.EditName:
		return "update_name"
	case policy.ReplaceContent:
		return "replace_content"
	case policy.Delete:
		return "delete"
	case policy.SubmitForReview:
		return "submit_for_review"
	case policy.Revoke:
		return "revoke"
	case policy.StartReview:
		return "start_review"
	case policy.Approve:
		return "approve"
	case policy.Decline:
		return "decline"
	}
	return string(a)
}
