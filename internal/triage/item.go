package triage

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// State is the triage state of one candidate item.
type State string

// Item states. Editing is a sub-state of Pending; the last three are
// terminal.
const (
	StatePending   State = "pending"
	StateEditing   State = "editing"
	StateApproved  State = "approved"
	StateCorrected State = "corrected"
	StateRejected  State = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateCorrected || s == StateRejected
}

// Outcome returns the outcome sent for a terminal state.
func (s State) Outcome() (core.Outcome, bool) {
	switch s {
	case StateApproved:
		return core.OutcomeApproved, true
	case StateCorrected:
		return core.OutcomeCorrected, true
	case StateRejected:
		return core.OutcomeRejected, true
	}
	return "", false
}

// Action is a triage input.
type Action string

// Triage actions.
const (
	ActionConfirm     Action = "confirm"
	ActionRequestEdit Action = "edit"
	ActionSaveEdit    Action = "save"
	ActionCancelEdit  Action = "cancel"
	ActionReject      Action = "reject"
)

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionConfirm, ActionRequestEdit, ActionSaveEdit, ActionCancelEdit, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, s)
}

// ErrInvalidTransition is returned for an action the item's state does not allow.
var ErrInvalidTransition = errors.New("invalid triage transition")

// Item is a candidate together with its triage state.
type Item struct {
	core.CandidateItem
	State State `json:"state"`
	// Draft is the edited question while State is StateEditing.
	Draft string `json:"draft,omitempty"`
}

// apply performs action on it. text is only used by ActionSaveEdit.
func (it *Item) apply(action Action, text string) error {
	switch {
	case action == ActionConfirm && it.State == StatePending:
		it.State = StateApproved
	case action == ActionRequestEdit && it.State == StatePending:
		it.State = StateEditing
		it.Draft = it.Question
	case action == ActionSaveEdit && it.State == StateEditing:
		it.State = StateCorrected
		it.Question = text
		it.Draft = ""
	case action == ActionCancelEdit && it.State == StateEditing:
		it.State = StatePending
		it.Draft = ""
	case action == ActionReject && it.State == StatePending:
		it.State = StateRejected
	default:
		return &TransitionError{Action: action, State: it.State}
	}
	return nil
}

// TransitionError describes a rejected action.
type TransitionError struct {
	Action Action
	State  State
}

func (e *TransitionError) Error() string {
	return "cannot " + string(e.Action) + " an item that is " + string(e.State)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
