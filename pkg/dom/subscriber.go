package dom

// Subscriber is a scoped event-registration ledger. Every listener it
// registers is recorded so that all of them can be removed in one Unbind
// call, regardless of which elements they were attached to.
type Subscriber struct {
	handles []ListenerHandle
}

// NewSubscriber creates an empty subscriber.
func NewSubscriber() *Subscriber {
	return &Subscriber{}
}

// On registers a handler on el and records the registration.
func (s *Subscriber) On(el *Element, name string, fn Handler) {
	s.handles = append(s.handles, el.On(name, fn))
}

// Unbind removes every listener this subscriber registered. Idempotent.
func (s *Subscriber) Unbind() {
	for _, h := range s.handles {
		h.el.Off(h)
	}
	s.handles = nil
}

// Len returns the number of live registrations.
func (s *Subscriber) Len() int {
	return len(s.handles)
}
