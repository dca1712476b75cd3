package productorder

import "fmt"

// StateMachine validates and executes order fulfilment transitions.
type StateMachine struct {
	transitions map[OrderStatus][]OrderStatus
}

// NewStateMachine creates a new order state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[OrderStatus][]OrderStatus{
			OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
			OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
			OrderStatusDelivered:  {OrderStatusCompleted},
			OrderStatusCompleted:  {}, // Terminal state
			OrderStatusCancelled:  {}, // Terminal state
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to OrderStatus) bool {
	allowed, ok := sm.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to transition an order to a new state.
func (sm *StateMachine) Transition(order *Order, to OrderStatus) error {
	if !sm.CanTransition(order.OrderStatus, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, order.OrderStatus, to)
	}
	order.OrderStatus = to
	return nil
}
