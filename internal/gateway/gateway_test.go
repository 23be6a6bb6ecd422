package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docflow/internal/gateway/mocks"
	"docflow/internal/logging"
	"docflow/internal/model"
	"docflow/internal/policy"
	"docflow/internal/remote"
	"docflow/internal/workflow"
)

type fixedRole model.Role

func (r fixedRole) Role() model.Role { return model.Role(r) }

func newGateway(role model.Role) (*Gateway, *mocks.MockStore, *mocks.MockRefresher) {
	store := new(mocks.MockStore)
	ref := new(mocks.MockRefresher)
	return New(store, fixedRole(role), ref, logging.Discard()), store, ref
}

func doc(status model.Status) model.Document {
	return model.Document{ID: "d1", Name: "Contract", Status: status}
}

func TestGateway_ChangeStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		role       model.Role
		status     model.Status
		transition workflow.Transition
		setup      func(s *mocks.MockStore)
		wantErr    error
	}{
		{
			name:       "user submits draft",
			role:       model.RoleUser,
			status:     model.StatusDraft,
			transition: workflow.Submit,
			setup: func(s *mocks.MockStore) {
				s.On("SendToReview", ctx, "d1").Return(&model.Document{ID: "d1", Status: model.StatusReadyForReview}, nil)
			},
		},
		{
			name:       "user revokes ready document",
			role:       model.RoleUser,
			status:     model.StatusReadyForReview,
			transition: workflow.Revoke,
			setup: func(s *mocks.MockStore) {
				s.On("RevokeReview", ctx, "d1").Return(&model.Document{ID: "d1", Status: model.StatusRevoke}, nil)
			},
		},
		{
			name:       "reviewer starts review",
			role:       model.RoleReviewer,
			status:     model.StatusReadyForReview,
			transition: workflow.StartReview,
			setup: func(s *mocks.MockStore) {
				s.On("ChangeStatus", ctx, "d1", model.StatusUnderReview).Return(&model.Document{ID: "d1", Status: model.StatusUnderReview}, nil)
			},
		},
		{
			name:       "reviewer approves",
			role:       model.RoleReviewer,
			status:     model.StatusUnderReview,
			transition: workflow.Approve,
			setup: func(s *mocks.MockStore) {
				s.On("ChangeStatus", ctx, "d1", model.StatusApproved).Return(&model.Document{ID: "d1", Status: model.StatusApproved}, nil)
			},
		},
		{
			name:       "reviewer declines",
			role:       model.RoleReviewer,
			status:     model.StatusUnderReview,
			transition: workflow.Decline,
			setup: func(s *mocks.MockStore) {
				s.On("ChangeStatus", ctx, "d1", model.StatusDeclined).Return(&model.Document{ID: "d1", Status: model.StatusDeclined}, nil)
			},
		},
		{
			name:       "approve from draft is not a transition",
			role:       model.RoleReviewer,
			status:     model.StatusDraft,
			transition: workflow.Approve,
			wantErr:    model.ErrInvalidTransition,
		},
		{
			name:       "user may not approve",
			role:       model.RoleUser,
			status:     model.StatusUnderReview,
			transition: workflow.Approve,
			wantErr:    model.ErrUnauthorized,
		},
		{
			name:       "reviewer may not submit",
			role:       model.RoleReviewer,
			status:     model.StatusDraft,
			transition: workflow.Submit,
			wantErr:    model.ErrUnauthorized,
		},
		{
			name:       "unknown transition",
			role:       model.RoleUser,
			status:     model.StatusDraft,
			transition: "RESUBMIT",
			wantErr:    model.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store, ref := newGateway(tt.role)
			if tt.setup != nil {
				tt.setup(store)
				ref.On("Refresh").Return().Once()
			}

			got, err := g.ChangeStatus(ctx, doc(tt.status), tt.transition)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				store.AssertNotCalled(t, "SendToReview", mock.Anything, mock.Anything)
				store.AssertNotCalled(t, "RevokeReview", mock.Anything, mock.Anything)
				store.AssertNotCalled(t, "ChangeStatus", mock.Anything, mock.Anything, mock.Anything)
				ref.AssertNotCalled(t, "Refresh")
				return
			}
			require.NoError(t, err)
			next, _ := workflow.Next(tt.status, tt.transition)
			assert.Equal(t, next, got.Status)
			store.AssertExpectations(t)
			ref.AssertExpectations(t)
		})
	}
}

func TestGateway_StoreFailure(t *testing.T) {
	ctx := context.Background()
	g, store, ref := newGateway(model.RoleUser)
	cause := &remote.APIError{StatusCode: 409, Code: "CONFLICT", Message: "status changed"}
	store.On("SendToReview", ctx, "d1").Return(nil, cause)

	_, err := g.SubmitForReview(ctx, doc(model.StatusDraft))
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "submit_for_review", cmdErr.Op)
	assert.ErrorIs(t, err, model.ErrCommandFailed)
	assert.ErrorIs(t, err, model.ErrConflict)
	ref.AssertNotCalled(t, "Refresh")
	assert.False(t, g.Submitting("d1"))
}

func TestGateway_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("shows first page after create", func(t *testing.T) {
		g, store, ref := newGateway(model.RoleUser)
		file := remote.File{Filename: "a.pdf", Content: strings.NewReader("%PDF")}
		store.On("Create", ctx, remote.CreateRequest{Name: "Budget", Status: model.StatusDraft, File: file}).
			Return(&model.Document{ID: "n1", Name: "Budget", Status: model.StatusDraft}, nil)
		ref.On("ShowFirstPage").Return().Once()

		got, err := g.Create(ctx, "  Budget ", file)
		require.NoError(t, err)
		assert.Equal(t, "n1", got.ID)
		store.AssertExpectations(t)
		ref.AssertExpectations(t)
		ref.AssertNotCalled(t, "Refresh")
	})

	t.Run("invalid name", func(t *testing.T) {
		g, store, _ := newGateway(model.RoleUser)
		_, err := g.Create(ctx, "ab", remote.File{})
		assert.ErrorIs(t, err, model.ErrInvalidName)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reviewers cannot create", func(t *testing.T) {
		g, store, _ := newGateway(model.RoleReviewer)
		_, err := g.Create(ctx, "Budget", remote.File{})
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGateway_UpdateName(t *testing.T) {
	ctx := context.Background()

	t.Run("any status for users", func(t *testing.T) {
		for _, st := range model.Statuses {
			g, store, ref := newGateway(model.RoleUser)
			store.On("UpdateName", ctx, "d1", "New name").Return(&model.Document{ID: "d1", Name: "New name", Status: st}, nil)
			ref.On("Refresh").Return()

			got, err := g.UpdateName(ctx, doc(st), "New name")
			require.NoError(t, err, st)
			assert.Equal(t, "New name", got.Name)
		}
	})

	t.Run("too long", func(t *testing.T) {
		g, store, _ := newGateway(model.RoleUser)
		_, err := g.UpdateName(ctx, doc(model.StatusDraft), strings.Repeat("x", model.NameMaxLength+1))
		assert.ErrorIs(t, err, model.ErrInvalidName)
		store.AssertNotCalled(t, "UpdateName", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reviewers cannot rename", func(t *testing.T) {
		g, _, _ := newGateway(model.RoleReviewer)
		_, err := g.UpdateName(ctx, doc(model.StatusUnderReview), "New name")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})
}

func TestGateway_Delete(t *testing.T) {
	ctx := context.Background()

	for _, st := range []model.Status{model.StatusDraft, model.StatusDeclined, model.StatusRevoke} {
		g, store, ref := newGateway(model.RoleUser)
		store.On("Delete", ctx, "d1").Return(nil)
		ref.On("Refresh").Return()
		require.NoError(t, g.Delete(ctx, doc(st)), st)
	}

	for _, st := range []model.Status{model.StatusReadyForReview, model.StatusUnderReview, model.StatusApproved} {
		g, store, _ := newGateway(model.RoleUser)
		err := g.Delete(ctx, doc(st))
		assert.ErrorIs(t, err, model.ErrUnauthorized, st)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	}
}

func TestGateway_ReplaceContent(t *testing.T) {
	ctx := context.Background()
	file := remote.File{Filename: "v2.pdf", Content: strings.NewReader("%PDF")}

	g, store, ref := newGateway(model.RoleUser)
	store.On("ReplaceContent", ctx, "d1", file).Return(&model.Document{ID: "d1"}, nil)
	ref.On("Refresh").Return()
	_, err := g.ReplaceContent(ctx, doc(model.StatusDraft), file)
	require.NoError(t, err)

	_, err = g.ReplaceContent(ctx, doc(model.StatusApproved), file)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	store.AssertNumberOfCalls(t, "ReplaceContent", 1)
}

func TestGateway_SubmittingGate(t *testing.T) {
	ctx := context.Background()
	g, store, ref := newGateway(model.RoleUser)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("SendToReview", ctx, "d1").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&model.Document{ID: "d1", Status: model.StatusReadyForReview}, nil).Once()
	ref.On("Refresh").Return()

	done := make(chan error, 1)
	go func() {
		_, err := g.SubmitForReview(ctx, doc(model.StatusDraft))
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the store")
	}
	assert.True(t, g.Submitting("d1"))

	_, err := g.SubmitForReview(ctx, doc(model.StatusDraft))
	assert.ErrorIs(t, err, model.ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, g.Submitting("d1"))
	store.AssertNumberOfCalls(t, "SendToReview", 1)
}

func TestGateway_Perform(t *testing.T) {
	ctx := context.Background()
	g, store, ref := newGateway(model.RoleReviewer)
	store.On("ChangeStatus", ctx, "d1", model.StatusUnderReview).Return(&model.Document{ID: "d1", Status: model.StatusUnderReview}, nil)
	ref.On("Refresh").Return()

	got, err := g.Perform(ctx, doc(model.StatusReadyForReview), policy.StartReview)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, got.Status)

	_, err = g.Perform(ctx, doc(model.StatusReadyForReview), policy.EditName)
	assert.Error(t, err)
}
