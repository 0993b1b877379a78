// Package swapkit wires the interaction schedulers of a server-driven
// fragment-update engine: debounced form observation, speculative link
// preloading and press/click arbitration, all serialized on one session
// loop.
package swapkit

import (
	"context"
	"log/slog"
	"time"

	"github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/form"
	"github.com/swapkit-dev/swapkit/pkg/gesture"
	"github.com/swapkit-dev/swapkit/pkg/loop"
	"github.com/swapkit-dev/swapkit/pkg/preload"
)

// Declarative markers the engine scans for.
const (
	// WatchAttr marks a form whose named controls are observed for
	// changes.
	WatchAttr = "data-watch"

	// PreloadAttr marks a link eligible for speculative preloading.
	PreloadAttr = "data-preload"
)

// ActivateFunc handles one synthesized activation. It runs off the
// session loop.
type ActivateFunc func(ctx context.Context, target *dom.Element) error

// Config configures an Engine.
type Config struct {
	// OnChange receives per-field changes from unbatched watch groups.
	OnChange form.Callback

	// OnBatch receives whole diffs from batched watch groups.
	OnBatch form.BatchCallback

	// OnActivate receives arbitrated activations.
	OnActivate ActivateFunc

	// Fetch performs speculative round trips. When nil and Requests is
	// also nil, preloading is off.
	Fetch preload.FetchFunc

	// Requests overrides the default request layer built from Fetch.
	Requests preload.RequestLayer

	// Watch are call-site option overrides applied to every group.
	Watch form.Overrides

	// WatchDefaults are fallback options below declarative attributes.
	WatchDefaults form.Options

	// PreloadDelay is the default hover delay before a speculative
	// dispatch.
	PreloadDelay time.Duration

	// Preloads configures the default request layer.
	Preloads *preload.ManagerConfig

	// Context is the base context handed to callbacks.
	Context context.Context

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine owns the schedulers for one document. It scans the document
// once at Start and tears everything down at Stop.
type Engine struct {
	lp     *loop.Loop
	doc    *dom.Document
	cfg    Config
	logger *slog.Logger
	ctx    context.Context

	manager   *preload.Manager
	requests  preload.RequestLayer
	watchers  []*form.Watcher
	preloader *preload.Preloader
	arbiter   *gesture.Arbiter
	sub       *dom.Subscriber
	started   bool
}

// New creates an Engine over doc. Nothing is observed until Start.
func New(lp *loop.Loop, doc *dom.Document, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Engine{
		lp:     lp,
		doc:    doc,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		sub:    dom.NewSubscriber(),
	}
	e.requests = cfg.Requests
	if e.requests == nil && cfg.Fetch != nil {
		e.manager = preload.NewManager(cfg.Preloads, cfg.Fetch,
			preload.WithManagerLogger(logger))
		e.requests = e.manager
	}
	return e
}

// Start scans the document and starts every scheduler. Must be called
// off the loop.
func (e *Engine) Start() error {
	var already bool
	e.lp.Invoke(func() { already = e.started })
	if already {
		return errors.New(errors.CodeAlreadyStarted)
	}

	forms, links := e.scan()

	for _, f := range forms {
		w, err := e.buildWatcher(f)
		if err != nil {
			e.stopStarted()
			return err
		}
		if w == nil {
			continue
		}
		if err := w.Start(); err != nil {
			e.stopStarted()
			return err
		}
		e.watchers = append(e.watchers, w)
	}

	if e.requests != nil {
		e.preloader = preload.New(e.lp, preload.Config{
			Delay:    e.cfg.PreloadDelay,
			Requests: e.requests,
			Logger:   e.logger,
		})
		for _, link := range links {
			if err := e.preloader.ObserveLink(link); err != nil {
				// One ineligible link must not take the session down.
				e.logger.Warn("link not preloadable",
					"url", link.URL(), "error", err)
			}
		}
	}

	e.arbiter = gesture.New(e.lp, e.doc.Root(), gesture.WithLogger(e.logger))
	if err := e.arbiter.Start(); err != nil {
		e.stopStarted()
		return err
	}

	e.lp.Invoke(func() {
		e.sub.On(e.doc.Root(), gesture.EventActivate, e.onActivate)
		e.started = true
	})
	return nil
}

// Stop tears down every scheduler. Idempotent. Must be called off the
// loop.
func (e *Engine) Stop() {
	e.stopStarted()
	e.lp.Invoke(func() {
		e.sub.Unbind()
		e.started = false
	})
}

func (e *Engine) stopStarted() {
	for _, w := range e.watchers {
		w.Stop()
	}
	e.watchers = nil
	if e.preloader != nil {
		e.preloader.Stop()
	}
	if e.arbiter != nil {
		e.arbiter.Stop()
	}
}

// Requests returns the active request layer, or nil when preloading is
// off.
func (e *Engine) Requests() preload.RequestLayer {
	return e.requests
}

// Manager returns the default request layer, or nil when a custom one
// was supplied or preloading is off.
func (e *Engine) Manager() *preload.Manager {
	return e.manager
}

// scan collects watch forms and preloadable links in document order.
func (e *Engine) scan() (forms, links []*dom.Element) {
	e.lp.Invoke(func() {
		e.doc.Root().Walk(func(el *dom.Element) {
			if el.HasAttr(WatchAttr) {
				forms = append(forms, el)
			}
			if el.HasAttr(PreloadAttr) {
				links = append(links, el)
			}
		})
	})
	return forms, links
}

// buildWatcher assembles a Watcher for one marked form. Returns nil
// when every control opted out.
func (e *Engine) buildWatcher(f *dom.Element) (*form.Watcher, error) {
	var fields []*dom.Element
	e.lp.Invoke(func() {
		f.Walk(func(el *dom.Element) {
			if el == f || !el.HasAttr("name") {
				return
			}
			opts := form.Resolve(el, f, form.DefaultIntent,
				e.cfg.Watch, e.cfg.WatchDefaults, form.Options{})
			if opts.Disable {
				return
			}
			fields = append(fields, el)
		})
	})
	if len(fields) == 0 {
		return nil, nil
	}

	return form.New(e.lp, form.Config{
		Form:      f,
		Fields:    fields,
		Overrides: e.cfg.Watch,
		Defaults:  e.cfg.WatchDefaults,
		OnChange:  e.cfg.OnChange,
		OnBatch:   e.cfg.OnBatch,
		Context:   e.ctx,
		Logger:    e.logger,
	}), nil
}

// onActivate runs on the loop for every arbitrated activation.
func (e *Engine) onActivate(ev *dom.Event) {
	target := ev.Target

	// A speculative request for this link is about to become real;
	// shield it from mismatch cancellation.
	if e.manager != nil && target.URL() != "" {
		e.manager.Promote(target.Method(), target.URL())
	}

	if e.cfg.OnActivate == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("activation handler panicked", "panic", r)
			}
		}()
		if err := e.cfg.OnActivate(e.ctx, target); err != nil {
			e.logger.Debug("activation handler failed", "error", err)
		}
	}()
}
