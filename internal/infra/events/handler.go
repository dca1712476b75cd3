package events

// Handler processes events of the types it declares.
type Handler interface {
	Handles() []string
	// Handle must tolerate receiving the same event more than once.
	Handle(event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	eventTypes []string
	fn         func(Event) error
}

// NewHandlerFunc creates a new HandlerFunc.
func NewHandlerFunc(eventTypes []string, fn func(Event) error) *HandlerFunc {
	return &HandlerFunc{eventTypes: eventTypes, fn: fn}
}

// Handles returns the list of event types this handler can process.
func (h *HandlerFunc) Handles() []string {
	return h.eventTypes
}

// Handle processes the given event.
func (h *HandlerFunc) Handle(event Event) error {
	return h.fn(event)
}
