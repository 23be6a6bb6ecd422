// Package policy decides whether a role may perform an action on a document
// in a given status. Decisions are advisory on the client; the store is the
// authority of record and evaluates the same table.
package policy

import (
	"fmt"

	"docflow/internal/model"
	"docflow/internal/workflow"
)

// Action is anything a caller may attempt on a document.
type Action string

const (
	SubmitForReview Action = Action(workflow.Submit)
	StartReview     Action = Action(workflow.StartReview)
	Revoke          Action = Action(workflow.Revoke)
	Approve         Action = Action(workflow.Approve)
	Decline         Action = Action(workflow.Decline)
	Delete          Action = "DELETE"
	EditName        Action = "EDIT_NAME"
	Create          Action = "CREATE"
	ReplaceContent  Action = "REPLACE_CONTENT"
)

// Actions lists every action in menu order.
var Actions = []Action{
	EditName,
	SubmitForReview,
	Revoke,
	StartReview,
	Approve,
	Decline,
	ReplaceContent,
	Delete,
}

type rule struct {
	role model.Role
	// from restricts the origin status; nil means any status.
	from []model.Status
}

var table = map[Action]rule{
	SubmitForReview: {role: model.RoleUser, from: []model.Status{model.StatusDraft}},
	Revoke:          {role: model.RoleUser, from: []model.Status{model.StatusReadyForReview}},
	Delete:          {role: model.RoleUser, from: []model.Status{model.StatusDraft, model.StatusDeclined, model.StatusRevoke}},
	StartReview:     {role: model.RoleReviewer, from: []model.Status{model.StatusReadyForReview}},
	Approve:         {role: model.RoleReviewer, from: []model.Status{model.StatusUnderReview}},
	Decline:         {role: model.RoleReviewer, from: []model.Status{model.StatusUnderReview}},
	EditName:        {role: model.RoleUser},
	Create:          {role: model.RoleUser},
	ReplaceContent:  {role: model.RoleUser, from: []model.Status{model.StatusDraft}},
}

// ForTransition returns the action guarding t.
func ForTransition(t workflow.Transition) Action {
	return Action(t)
}

// Transition reports the workflow transition behind a, if any.
func (a Action) Transition() (workflow.Transition, bool) {
	t := workflow.Transition(a)
	return t, t.Valid()
}

// CanTransition reports whether role may perform action on a document in status from.
func CanTransition(role model.Role, from model.Status, action Action) bool {
	r, ok := table[action]
	if !ok || r.role != role {
		return false
	}
	if r.from == nil {
		return true
	}
	for _, s := range r.from {
		if s == from {
			return true
		}
	}
	return false
}

// Authorize explains a denial. Transitions absent from the status graph yield
// ErrInvalidTransition; everything else the table denies yields ErrUnauthorized.
func Authorize(role model.Role, from model.Status, action Action) error {
	if t, ok := action.Transition(); ok && !workflow.Can(from, t) {
		return fmt.Errorf("%w: %s from %s", model.ErrInvalidTransition, t, from)
	}
	if !CanTransition(role, from, action) {
		return fmt.Errorf("%w: %s may not %s a %s document", model.ErrUnauthorized, role, action, from)
	}
	return nil
}

// Allowed lists the actions role may perform on a document in status from.
// Create is excluded since it does not apply to an existing document.
func Allowed(role model.Role, from model.Status) []Action {
	var out []Action
	for _, a := range Actions {
		if CanTransition(role, from, a) {
			out = append(out, a)
		}
	}
	return out
}

// Label is the menu text for a.
func (a Action) Label() string {
	switch a {
	case SubmitForReview:
		return "Submit for review"
	case StartReview:
		return "Start review"
	case Revoke:
		return "Revoke"
	case Approve:
		return "Approve"
	case Decline:
		return "Decline"
	case Delete:
		return "Delete"
	case EditName:
		return "Rename"
	case Create:
		return "Create"
	case ReplaceContent:
		return "Replace file"
	}
	return string(a)
}
