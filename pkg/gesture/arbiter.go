package gesture

import (
	"log/slog"

	"github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/loop"
)

// EventActivate is the synthesized activation event. It forwards the
// source gesture's coordinates, button and modifier keys.
const EventActivate = "activate"

// InstantAttr marks elements that activate on press instead of on
// release.
const InstantAttr = "data-instant"

// Arbiter owns the last-press identity for one interaction scope
// (typically a document root or an isolated layer). Create one Arbiter
// per scope; the identity never leaks across scopes or across gestures.
type Arbiter struct {
	lp     *loop.Loop
	scope  *dom.Element
	logger *slog.Logger
	sub    *dom.Subscriber

	lastPressed *dom.Element
	started     bool
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithLogger sets the arbiter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) { a.logger = l }
}

// New creates an Arbiter for the given scope.
func New(lp *loop.Loop, scope *dom.Element, opts ...Option) *Arbiter {
	a := &Arbiter{
		lp:     lp,
		scope:  scope,
		logger: slog.Default(),
		sub:    dom.NewSubscriber(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start registers press and click listeners on the scope. Must be
// called off the loop.
func (a *Arbiter) Start() error {
	var err error
	a.lp.Invoke(func() {
		if a.started {
			err = errors.New(errors.CodeAlreadyStarted)
			return
		}
		a.sub.On(a.scope, dom.EventMouseDown, a.onMouseDown)
		a.sub.On(a.scope, dom.EventClick, a.onClick)
		a.started = true
	})
	return err
}

// Stop removes the scope listeners and clears the press identity.
// Idempotent. Must be called off the loop.
func (a *Arbiter) Stop() {
	a.lp.Invoke(func() {
		a.sub.Unbind()
		a.lastPressed = nil
		a.started = false
	})
}

// onMouseDown runs on the loop for every press within the scope.
func (a *Arbiter) onMouseDown(ev *dom.Event) {
	if ev.Button != 0 || ev.Modified() {
		return
	}
	a.lastPressed = ev.Target

	if instantTarget(ev.Target) != nil {
		dom.SynthesizeAndEmit(EventActivate, ev, ev.Target)
	}
}

// onClick runs on the loop for every click within the scope. One press
// maps to at most one activation, so the recorded press is cleared on
// every path out of here.
func (a *Arbiter) onClick(ev *dom.Event) {
	press := a.lastPressed
	a.lastPressed = nil

	if instantTarget(ev.Target) != nil && press != nil && sameGestureTarget(press, ev.Target) {
		// The press already activated; the paired click must not
		// activate again. Browsers only grant focus on an observed
		// click, so assert it manually.
		ev.PreventDefault()
		ev.StopPropagation()
		ev.Target.Focus()
		return
	}

	if ev.Modified() {
		// Modified clicks (new tab, context menu) keep their native
		// meaning.
		return
	}

	if press != nil && !sameGestureTarget(press, ev.Target) {
		// The user dragged from the press target to a different
		// element; activating either one would be accidental.
		return
	}

	if !ev.Target.Attached() {
		// The element under the pointer changed between press and
		// release (e.g., an overlay appeared); the click no longer
		// corresponds to what the user aimed at.
		return
	}

	dom.SynthesizeAndEmit(EventActivate, ev, ev.Target)
}

// sameGestureTarget reports whether press and release belong to the
// same logical element: identical, or one contains the other (pressing
// a child and releasing on its container is not a drag).
func sameGestureTarget(press, release *dom.Element) bool {
	return press == release || press.Contains(release) || release.Contains(press)
}

// instantTarget returns the nearest ancestor-or-self marked for
// press-time activation, or nil.
func instantTarget(el *dom.Element) *dom.Element {
	return el.Closest(InstantAttr)
}
