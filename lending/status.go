package lending

import "fmt"

// Status is the lifecycle state of a borrow request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusBorrowed Status = "BORROWED"
	StatusReturned Status = "RETURNED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusBorrowed, StatusReturned}

// transitions is the complete set of legal status changes.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusBorrowed},
	StatusBorrowed: {StatusReturned},
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s.Valid() && len(transitions[s]) == 0 }

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveStatuses are the statuses that block catalog deletion.
func ActiveStatuses() []Status { return []Status{StatusPending, StatusApproved, StatusBorrowed} }

// ReservingStatuses are the statuses whose quantity counts against availability.
func ReservingStatuses() []Status { return []Status{StatusApproved, StatusBorrowed} }

// Action is a reviewer-driven transition of a borrow request.
type Action string

const (
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionMarkBorrowed Action = "borrowed"
	ActionMarkReturned Action = "returned"
)

var actionTargets = map[Action]Status{
	ActionApprove:      StatusApproved,
	ActionReject:       StatusRejected,
	ActionMarkBorrowed: StatusBorrowed,
	ActionMarkReturned: StatusReturned,
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := actionTargets[a]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, s)
	}
	return a, nil
}

// Target is the status a request moves to when a is applied.
func (a Action) Target() Status { return actionTargets[a] }

// AvailabilityDelta is the change to the equipment's available quantity when a
// succeeds for a request of quantity q. Units are reserved on approval and
// released on return.
func (a Action) AvailabilityDelta(q int) int {
	switch a {
	case ActionApprove:
		return -q
	case ActionMarkReturned:
		return q
	default:
		return 0
	}
}

// CheckTransition returns ErrInvalidTransition unless a may be applied to a
// request currently in from.
func CheckTransition(from Status, a Action) error {
	to, ok := actionTargets[a]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, a)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot %s a request in %s", ErrInvalidTransition, a, from)
	}
	return nil
}
