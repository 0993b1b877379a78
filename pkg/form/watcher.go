package form

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/loop"
)

// Callback delivers one changed field. It runs off the session loop;
// only its settlement matters to the watcher, never its error.
type Callback func(ctx context.Context, name string, value dom.Value) error

// BatchCallback delivers the whole field-level diff in one call.
type BatchCallback func(ctx context.Context, diff dom.Snapshot) error

// Config configures a Watcher.
type Config struct {
	// Form is the owning form element. When nil it is inferred from
	// the first field. A pending debounce timer is canceled when the
	// form is submitted.
	Form *dom.Element

	// Fields is the ordered group of observed form controls.
	Fields []*dom.Element

	// Intent is the attribute scope for declarative options.
	// Default: "watch".
	Intent string

	// Overrides are explicit call-site options (highest precedence).
	Overrides Overrides

	// Defaults are caller-supplied default options.
	Defaults Options

	// Submit carries submission-derived options (lowest precedence).
	Submit Options

	// OnChange is invoked once per changed field when batching is off.
	OnChange Callback

	// OnBatch is invoked once with the whole diff when batching is on.
	OnBatch BatchCallback

	// Context is the base context passed to callbacks.
	// Default: context.Background().
	Context context.Context

	// Logger logs swallowed callback failures. Default: slog.Default().
	Logger *slog.Logger
}

// Watcher observes a group of form controls and delivers debounced,
// serialized change callbacks. All state is confined to the loop.
type Watcher struct {
	lp     *loop.Loop
	cfg    Config
	logger *slog.Logger

	sub     *dom.Subscriber
	options map[*dom.Element]Options
	batch   bool

	processed    dom.Snapshot
	scheduled    dom.Snapshot
	hasScheduled bool
	timer        *loop.Timer
	running      bool
	started      bool
}

// New creates a Watcher. It observes nothing until Start.
func New(lp *loop.Loop, cfg Config) *Watcher {
	if cfg.Intent == "" {
		cfg.Intent = DefaultIntent
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		lp:     lp,
		cfg:    cfg,
		logger: logger,
		sub:    dom.NewSubscriber(),
	}
}

// Start resolves per-field options, captures the initial snapshot and
// registers listeners. Configuration mistakes (no fields, missing
// callback, an unsupported option combination) fail here rather than
// degrading silently. Must be called off the loop.
func (w *Watcher) Start() error {
	var err error
	w.lp.Invoke(func() { err = w.start() })
	return err
}

func (w *Watcher) start() error {
	if w.started {
		return errors.New(errors.CodeAlreadyStarted)
	}
	if len(w.cfg.Fields) == 0 {
		return errors.Newf(errors.CategoryConfig, "watcher needs at least one field")
	}

	form := w.cfg.Form
	if form == nil {
		form = w.cfg.Fields[0].Form()
	}

	w.options = make(map[*dom.Element]Options, len(w.cfg.Fields))
	w.batch = false
	var firstDelay time.Duration
	sameDelay := true
	for i, f := range w.cfg.Fields {
		opts := Resolve(f, form, w.cfg.Intent, w.cfg.Overrides, w.cfg.Defaults, w.cfg.Submit)
		w.options[f] = opts
		if opts.Batch {
			w.batch = true
		}
		if i == 0 {
			firstDelay = opts.Delay
		} else if opts.Delay != firstDelay {
			sameDelay = false
		}
	}

	// Known unsupported combination: one batched delivery cannot honor
	// several different settling delays.
	if w.batch && !sameDelay {
		return errors.New(errors.CodeUnsupportedWatchConfig).
			WithDetail("fields resolve to differing delays under batched delivery")
	}
	if w.batch && w.cfg.OnBatch == nil {
		return errors.Newf(errors.CategoryConfig, "batched watcher needs an OnBatch callback")
	}
	if !w.batch && w.cfg.OnChange == nil {
		return errors.Newf(errors.CategoryConfig, "watcher needs an OnChange callback")
	}

	w.processed = dom.ReadGroupValues(w.cfg.Fields)
	w.scheduled = nil
	w.hasScheduled = false

	for _, f := range w.cfg.Fields {
		field := f
		w.sub.On(field, w.options[field].Event, func(*dom.Event) {
			w.onFieldEvent(field)
		})
	}
	if form != nil {
		// Submission preempts pending debounced delivery.
		w.sub.On(form, dom.EventSubmit, func(*dom.Event) {
			w.cancelTimer()
		})
	}

	w.started = true
	return nil
}

// Stop removes all listeners and cancels any pending timer. Idempotent.
// Must be called off the loop.
func (w *Watcher) Stop() {
	w.lp.Invoke(func() {
		w.sub.Unbind()
		w.cancelTimer()
		w.started = false
	})
}

func (w *Watcher) cancelTimer() {
	if w.timer != nil {
		w.timer.Cancel()
		w.timer = nil
	}
}

// onFieldEvent runs on the loop for every qualifying field event.
func (w *Watcher) onFieldEvent(field *dom.Element) {
	snap := dom.ReadGroupValues(w.cfg.Fields)

	// A snapshot identical to what is already processed or already
	// scheduled must never re-trigger scheduling.
	if dom.SnapshotEqual(snap, w.processed) {
		return
	}
	if w.hasScheduled && dom.SnapshotEqual(snap, w.scheduled) {
		return
	}

	w.cancelTimer()
	w.scheduled = snap
	w.hasScheduled = true
	w.timer = w.lp.Schedule(w.options[field].Delay, w.onTimerExpiry)
}

func (w *Watcher) onTimerExpiry() {
	w.timer = nil
	if !w.anyFieldAttached() {
		// A group whose fields are gone has nothing to report.
		return
	}
	w.deliver()
}

func (w *Watcher) anyFieldAttached() bool {
	for _, f := range w.cfg.Fields {
		if f.Attached() {
			return true
		}
	}
	return false
}

// deliver attempts a serialized dispatch. It is called on timer expiry
// and again after a previous delivery's callbacks settle, so a change
// arriving during callback execution is not dropped.
func (w *Watcher) deliver() {
	if !w.hasScheduled || w.timer != nil || w.running {
		return
	}

	diff := dom.DiffSnapshots(w.processed, w.scheduled)
	w.processed = w.scheduled
	w.scheduled = nil
	w.hasScheduled = false
	if len(diff) == 0 {
		return
	}

	w.running = true
	ctx := w.cfg.Context
	go func() {
		if w.batch {
			w.settle(func() error { return w.cfg.OnBatch(ctx, diff) })
		} else {
			// Deterministic order for multi-field diffs.
			names := make([]string, 0, len(diff))
			for name := range diff {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				value := diff[name]
				n := name
				w.settle(func() error { return w.cfg.OnChange(ctx, n, value) })
			}
		}
		w.lp.Dispatch(func() {
			w.running = false
			w.deliver()
		})
	}()
}

// settle runs one callback invocation to settlement. Failures and
// panics are swallowed here; they must never interrupt the scheduling
// loop.
func (w *Watcher) settle(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watch callback panicked", "panic", r)
		}
	}()
	if err := fn(); err != nil {
		w.logger.Debug("watch callback failed", "error", err)
	}
}
