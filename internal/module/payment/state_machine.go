package payment

import "fmt"

// Policy is the per-domain part of the payment state machine.
type Policy struct {
	// Initial is the status a new record starts in.
	Initial Status
	// Settable lists the statuses an administrator may set by hand.
	Settable []Status
}

// DefaultPolicy starts records as unpaid and allows every known status to be set by hand.
func DefaultPolicy() Policy {
	return Policy{Initial: StatusUnpaid, Settable: KnownStatuses}
}

// AllowsManual reports whether an administrator may set s directly.
func (p Policy) AllowsManual(s Status) bool {
	for _, allowed := range p.Settable {
		if allowed == s {
			return true
		}
	}
	return false
}

// StateMachine validates payment status transitions.
//
// Terminal statuses (paid, cancelled) accept no outgoing transition other
// than a no-op to themselves. Every other status, including pass-through
// gateway tokens, may move to any status the gateway reports.
type StateMachine struct {
	policy Policy
}

// NewStateMachine creates a state machine for the given domain policy.
func NewStateMachine(policy Policy) *StateMachine {
	if policy.Initial == "" {
		policy.Initial = StatusUnpaid
	}
	return &StateMachine{policy: policy}
}

// Policy returns the domain policy the machine was built with.
func (sm *StateMachine) Policy() Policy {
	return sm.policy
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	if to == "" {
		return false
	}
	if from == to {
		return true
	}
	return !from.IsTerminal()
}

// CanInitiate reports whether a new gateway push may be sent from s.
// Failed records may be retried.
func (sm *StateMachine) CanInitiate(s Status) bool {
	return !s.IsTerminal()
}

// Transition moves rec to the given status or returns ErrInvalidTransition.
func (sm *StateMachine) Transition(rec *Record, to Status) error {
	if !sm.CanTransition(rec.PaymentStatus, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, rec.PaymentStatus, to)
	}
	rec.PaymentStatus = to
	return nil
}
