package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/model"
)

func TestNext_Graph(t *testing.T) {
	tests := []struct {
		from model.Status
		t    Transition
		want model.Status
	}{
		{model.StatusDraft, Submit, model.StatusReadyForReview},
		{model.StatusReadyForReview, StartReview, model.StatusUnderReview},
		{model.StatusReadyForReview, Revoke, model.StatusRevoke},
		{model.StatusUnderReview, Approve, model.StatusApproved},
		{model.StatusUnderReview, Decline, model.StatusDeclined},
	}
	for _, tt := range tests {
		got, err := Next(tt.from, tt.t)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNext_RejectsEverythingElse(t *testing.T) {
	defined := map[model.Status]map[Transition]bool{
		model.StatusDraft:          {Submit: true},
		model.StatusReadyForReview: {StartReview: true, Revoke: true},
		model.StatusUnderReview:    {Approve: true, Decline: true},
	}
	candidates := []Transition{Submit, StartReview, Revoke, Approve, Decline, "RESUBMIT"}
	for _, s := range model.Statuses {
		for _, tr := range candidates {
			if defined[s][tr] {
				continue
			}
			got, err := Next(s, tr)
			assert.ErrorIs(t, err, model.ErrInvalidTransition, "%s via %s", s, tr)
			assert.Equal(t, s, got)
		}
	}
}

func TestApply_LeavesDocumentOnRejection(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{ID: "1", Status: model.StatusApproved, UpdatedAt: created}

	for _, tr := range Transitions {
		err := Apply(doc, tr, created.Add(time.Hour))
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.Equal(t, model.StatusApproved, doc.Status)
		assert.Equal(t, created, doc.UpdatedAt)
	}
}

func TestApply_RoundTrip(t *testing.T) {
	now := time.Now()
	doc := &model.Document{Name: "Test", Status: model.StatusDraft}

	require.NoError(t, Apply(doc, Submit, now))
	assert.Equal(t, model.StatusReadyForReview, doc.Status)
	require.NoError(t, Apply(doc, StartReview, now))
	assert.Equal(t, model.StatusUnderReview, doc.Status)
	require.NoError(t, Apply(doc, Approve, now))
	assert.Equal(t, model.StatusApproved, doc.Status)
	assert.Equal(t, now, doc.UpdatedAt)

	assert.True(t, IsTerminal(doc.Status))
	assert.Empty(t, Available(doc.Status))
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, []Transition{Submit}, Available(model.StatusDraft))
	assert.Equal(t, []Transition{StartReview, Revoke}, Available(model.StatusReadyForReview))
	assert.Equal(t, []Transition{Approve, Decline}, Available(model.StatusUnderReview))
	assert.True(t, IsTerminal(model.StatusDeclined))
	assert.True(t, IsTerminal(model.StatusRevoke))
}

func TestTransitionFor(t *testing.T) {
	tr, err := TransitionFor(model.StatusUnderReview, model.StatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, Decline, tr)

	_, err = TransitionFor(model.StatusDeclined, model.StatusDraft)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestTransition_Target(t *testing.T) {
	assert.Equal(t, model.StatusRevoke, Revoke.Target())
	assert.True(t, Approve.Valid())
	assert.False(t, Transition("ARCHIVE").Valid())
}
