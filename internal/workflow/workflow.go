// Package workflow defines document statuses and the transitions between them.
// It knows nothing about who requests a transition; see package policy.
package workflow

import (
	"fmt"
	"time"

	"docflow/internal/model"
)

// Transition is a named action moving a document between statuses.
type Transition string

const (
	Submit      Transition = "SUBMIT_FOR_REVIEW"
	StartReview Transition = "START_REVIEW"
	Revoke      Transition = "REVOKE"
	Approve     Transition = "APPROVE"
	Decline     Transition = "DECLINE"
)

// Transitions lists every transition in the graph.
var Transitions = []Transition{Submit, StartReview, Revoke, Approve, Decline}

type edge struct {
	from model.Status
	to   model.Status
}

var graph = map[Transition]edge{
	Submit:      {from: model.StatusDraft, to: model.StatusReadyForReview},
	StartReview: {from: model.StatusReadyForReview, to: model.StatusUnderReview},
	Revoke:      {from: model.StatusReadyForReview, to: model.StatusRevoke},
	Approve:     {from: model.StatusUnderReview, to: model.StatusApproved},
	Decline:     {from: model.StatusUnderReview, to: model.StatusDeclined},
}

func (t Transition) Valid() bool {
	_, ok := graph[t]
	return ok
}

// Target is the status a transition leads to, regardless of origin.
func (t Transition) Target() model.Status {
	return graph[t].to
}

// Next returns the status reached by applying t to from.
func Next(from model.Status, t Transition) (model.Status, error) {
	e, ok := graph[t]
	if !ok || e.from != from {
		return from, fmt.Errorf("%w: %s from %s", model.ErrInvalidTransition, t, from)
	}
	return e.to, nil
}

// Can reports whether t is defined for from.
func Can(from model.Status, t Transition) bool {
	_, err := Next(from, t)
	return err == nil
}

// Available lists the transitions leaving from, in graph order.
func Available(from model.Status) []Transition {
	var out []Transition
	for _, t := range Transitions {
		if graph[t].from == from {
			out = append(out, t)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.Status) bool {
	return len(Available(s)) == 0
}

// TransitionFor maps a requested target status back to the transition reaching it from from.
func TransitionFor(from, to model.Status) (Transition, error) {
	for _, t := range Transitions {
		if e := graph[t]; e.from == from && e.to == to {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, from, to)
}

// Apply moves doc along t. On error doc is left untouched.
func Apply(doc *model.Document, t Transition, now time.Time) error {
	next, err := Next(doc.Status, t)
	if err != nil {
		return err
	}
	doc.Status = next
	doc.UpdatedAt = now
	return nil
}
