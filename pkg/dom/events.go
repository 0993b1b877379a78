package dom

// Common event names relayed by the thin client.
const (
	EventInput      = "input"
	EventChange     = "change"
	EventSubmit     = "submit"
	EventClick      = "click"
	EventMouseDown  = "mousedown"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
	EventTouchStart = "touchstart"
)

// Event is one relayed or synthesized DOM signal.
type Event struct {
	// Name is the event name (e.g., "click", "input").
	Name string

	// Target is the element the event was dispatched on.
	Target *Element

	// Position relative to viewport.
	ClientX int
	ClientY int

	// Button that triggered the event (0=left, 1=middle, 2=right).
	Button int

	// Modifier keys.
	CtrlKey  bool
	ShiftKey bool
	AltKey   bool
	MetaKey  bool

	// Synthetic marks events constructed by the scheduler rather than
	// relayed from the client.
	Synthetic bool

	defaultPrevented   bool
	propagationStopped bool
}

// Modified reports whether any modifier key was held.
func (e *Event) Modified() bool {
	return e.CtrlKey || e.ShiftKey || e.AltKey || e.MetaKey
}

// PreventDefault suppresses the event's native default action.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation stops the event from bubbling further.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// Handler handles a dispatched event.
type Handler func(*Event)

// listenerEntry is one registered handler.
type listenerEntry struct {
	id uint64
	fn Handler
}

// ListenerHandle identifies a registration for removal.
type ListenerHandle struct {
	el   *Element
	name string
	id   uint64
}

// On registers a handler for the named event on e.
func (e *Element) On(name string, fn Handler) ListenerHandle {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listenerEntry)
	}
	e.nextLID++
	entry := &listenerEntry{id: e.nextLID, fn: fn}
	e.listeners[name] = append(e.listeners[name], entry)
	return ListenerHandle{el: e, name: name, id: entry.id}
}

// Off removes a previously registered handler. Removing twice is a no-op.
func (e *Element) Off(h ListenerHandle) {
	if h.el != e {
		return
	}
	entries := e.listeners[h.name]
	for i, entry := range entries {
		if entry.id == h.id {
			e.listeners[h.name] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch delivers the event to target listeners, then bubbles it up
// through ancestors until the root or until StopPropagation. The event's
// Target is set to e if unset. Returns the event for inspection.
func (e *Element) Dispatch(ev *Event) *Event {
	if ev.Target == nil {
		ev.Target = e
	}
	for cur := e; cur != nil; cur = cur.parent {
		// Copy the slice: a handler may unregister listeners mid-dispatch.
		entries := append([]*listenerEntry(nil), cur.listeners[ev.Name]...)
		for _, entry := range entries {
			entry.fn(ev)
			if ev.propagationStopped {
				return ev
			}
		}
	}
	return ev
}

// Synthesize constructs a new logical event forwarding the fixed property
// set of source: pointer coordinates, button, and modifier-key state.
func Synthesize(name string, source *Event) *Event {
	return &Event{
		Name:      name,
		ClientX:   source.ClientX,
		ClientY:   source.ClientY,
		Button:    source.Button,
		CtrlKey:   source.CtrlKey,
		ShiftKey:  source.ShiftKey,
		AltKey:    source.AltKey,
		MetaKey:   source.MetaKey,
		Synthetic: true,
	}
}

// SynthesizeAndEmit builds a synthetic event from source and dispatches
// it on target.
func SynthesizeAndEmit(name string, source *Event, target *Element) *Event {
	ev := Synthesize(name, source)
	ev.Target = target
	return target.Dispatch(ev)
}
