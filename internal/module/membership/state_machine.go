package membership

import "fmt"

// StateMachine validates and executes membership status transitions.
type StateMachine struct {
	transitions map[Status][]Status
}

// NewStateMachine creates a new membership state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[Status][]Status{
			StatusPending:   {StatusActive, StatusRejected},
			StatusActive:    {StatusGraduated},
			StatusRejected:  {}, // Terminal state
			StatusGraduated: {}, // Terminal state
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	for _, s := range sm.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to move a membership to a new status.
func (sm *StateMachine) Transition(m *Membership, to Status) error {
	if !sm.CanTransition(m.MembershipStatus, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, m.MembershipStatus, to)
	}
	m.MembershipStatus = to
	return nil
}
