package preload

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/loop"
)

// DefaultDelay is the hover settling delay before a speculative
// dispatch, absent a per-element override.
const DefaultDelay = 90 * time.Millisecond

// DelayAttr is the per-element delay override, in milliseconds.
const DelayAttr = "data-preload-delay"

// Config configures a Preloader.
type Config struct {
	// Delay is the default hover delay. Default: DefaultDelay.
	Delay time.Duration

	// Requests is the request layer speculative dispatches go to.
	Requests RequestLayer

	// Logger logs swallowed speculative failures.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Preloader schedules speculative requests for hovered or pressed
// links. It tracks at most one candidate at a time; adopting a new
// candidate resets the previous one. All state is confined to the loop.
type Preloader struct {
	lp     *loop.Loop
	cfg    Config
	logger *slog.Logger
	sub    *dom.Subscriber

	candidate *dom.Element
	queued    bool
	timer     *loop.Timer
}

// New creates a Preloader.
func New(lp *loop.Loop, cfg Config) *Preloader {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Preloader{
		lp:     lp,
		cfg:    cfg,
		logger: logger,
		sub:    dom.NewSubscriber(),
	}
}

// ObserveLink registers hover/press/leave listeners on el. Elements
// whose resolved method is not idempotent are rejected explicitly: a
// mutating action must never be dispatched speculatively. Must be
// called off the loop.
func (p *Preloader) ObserveLink(el *dom.Element) error {
	if method := el.Method(); !IsSafeMethod(method) {
		return errors.New(errors.CodeUnsafeMethod).
			WithDetail("cannot preload %s %s", method, el.URL())
	}
	p.lp.Invoke(func() {
		p.sub.On(el, dom.EventMouseEnter, func(ev *dom.Event) {
			p.considerPreload(el, ev, true)
		})
		p.sub.On(el, dom.EventMouseDown, func(ev *dom.Event) {
			p.considerPreload(el, ev, false)
		})
		p.sub.On(el, dom.EventTouchStart, func(ev *dom.Event) {
			p.considerPreload(el, ev, false)
		})
		p.sub.On(el, dom.EventMouseLeave, func(ev *dom.Event) {
			p.stopPreload(el)
		})
	})
	return nil
}

// Stop unbinds all listeners and resets the candidate slot. Must be
// called off the loop.
func (p *Preloader) Stop() {
	p.lp.Invoke(func() {
		p.sub.Unbind()
		p.reset()
		p.candidate = nil
	})
}

// considerPreload runs on the loop when a link is hovered or pressed.
// Adopting a new candidate happens-before resetting the previous one's
// pending work.
func (p *Preloader) considerPreload(el *dom.Element, ev *dom.Event, applyDelay bool) {
	if el != p.candidate {
		p.reset()
		p.candidate = el
	}

	// Modified gestures signal an intent (new tab, context menu) that
	// would not be served by this fragment's preload.
	if ev.Modified() || ev.Button > 0 {
		return
	}

	if applyDelay {
		p.preloadAfterDelay(el)
	} else {
		p.preloadNow(el)
	}
}

// stopPreload runs on the loop when the pointer leaves a link.
func (p *Preloader) stopPreload(el *dom.Element) {
	if el == p.candidate {
		p.reset()
		p.candidate = nil
	}
}

// reset cancels the pending delay timer and, if a speculative request
// was already dispatched for the current candidate, asks the request
// layer to abort it. The layer itself refuses to cancel a request that
// has been promoted past the speculative stage.
func (p *Preloader) reset() {
	if p.timer != nil {
		p.timer.Cancel()
		p.timer = nil
	}
	if p.queued && p.candidate != nil {
		method, url := p.candidate.Method(), p.candidate.URL()
		p.cfg.Requests.Cancel(func(r Request) bool {
			return r.Speculative && r.Method == method && r.URL == url
		})
	}
	p.queued = false
}

// preloadAfterDelay schedules preloadNow after the element's resolved
// delay.
func (p *Preloader) preloadAfterDelay(el *dom.Element) {
	if p.timer != nil {
		p.timer.Cancel()
	}
	p.timer = p.lp.Schedule(p.delayFor(el), func() {
		p.timer = nil
		p.preloadNow(el)
	})
}

// preloadNow dispatches the speculative request and marks the candidate
// as queued. Speculative failures never surface as user-visible errors.
func (p *Preloader) preloadNow(el *dom.Element) {
	if el != p.candidate {
		// Stale timer for a superseded candidate.
		return
	}
	req := Request{Method: el.Method(), URL: el.URL(), Speculative: true}
	if err := p.cfg.Requests.DispatchSpeculative(req); err != nil {
		p.logger.Debug("speculative dispatch rejected", "method", req.Method, "url", req.URL, "error", err)
		return
	}
	p.queued = true
}

// delayFor reads the per-element delay override, falling back to the
// configured default.
func (p *Preloader) delayFor(el *dom.Element) time.Duration {
	if v, ok := el.Attr(DelayAttr); ok {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return p.cfg.Delay
}
