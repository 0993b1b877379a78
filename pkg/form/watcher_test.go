package form

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	stderrors "errors"

	skerrors "github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/loop"
)

// testGroup is a document with one form and named input fields.
type testGroup struct {
	lp     *loop.Loop
	doc    *dom.Document
	form   *dom.Element
	fields []*dom.Element
}

func newTestGroup(t *testing.T, names ...string) *testGroup {
	t.Helper()
	g := &testGroup{
		lp:   loop.New(),
		doc:  dom.NewDocument(),
		form: dom.NewElement("form"),
	}
	t.Cleanup(g.lp.Close)
	g.doc.Root().Append(g.form)
	for _, name := range names {
		f := dom.NewElement("input", "name", name)
		f.SetValue("")
		g.form.Append(f)
		g.fields = append(g.fields, f)
	}
	return g
}

// edit sets a field value and dispatches its input event on the loop.
func (g *testGroup) edit(field *dom.Element, value dom.Value) {
	g.lp.Invoke(func() {
		field.SetValue(value)
		field.Dispatch(&dom.Event{Name: dom.EventInput})
	})
}

// fire dispatches the event without changing any value.
func (g *testGroup) fire(field *dom.Element, name string) {
	g.lp.Invoke(func() {
		field.Dispatch(&dom.Event{Name: name})
	})
}

// changeRecorder collects per-field deliveries.
type changeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *changeRecorder) callback() Callback {
	return func(_ context.Context, name string, value dom.Value) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, fmt.Sprintf("%s=%v", name, value))
		return nil
	}
}

func (r *changeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

const testDelay = 30 * time.Millisecond

// settleWait is long enough for a testDelay debounce window plus
// callback settlement under CI scheduling jitter.
const settleWait = 200 * time.Millisecond

func TestDebounceCollapsesBurst(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "a")
	time.Sleep(10 * time.Millisecond)
	g.edit(g.fields[0], "ab")
	time.Sleep(10 * time.Millisecond)
	g.edit(g.fields[0], "abc")
	time.Sleep(settleWait)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d deliveries, want exactly 1: %v", len(calls), calls)
	}
	if calls[0] != "name=abc" {
		t.Errorf("delivery = %q, want final value only", calls[0])
	}
}

func TestNoSpuriousTrigger(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Events whose snapshot equals the processed state must not fire.
	g.fire(g.fields[0], dom.EventInput)
	g.fire(g.fields[0], dom.EventInput)
	time.Sleep(settleWait)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("unchanged snapshot triggered deliveries: %v", calls)
	}
}

func TestScheduledSnapshotDoesNotRestartWindow(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(60 * time.Millisecond)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "a")
	// Keep firing events with the already-scheduled value. If each one
	// restarted the window, the delivery below would never happen.
	deadline := time.Now().Add(160 * time.Millisecond)
	for time.Now().Before(deadline) {
		g.fire(g.fields[0], dom.EventInput)
		time.Sleep(15 * time.Millisecond)
	}

	if calls := rec.snapshot(); len(calls) != 1 {
		t.Errorf("got %d deliveries, want 1 (window must not restart): %v", len(calls), calls)
	}
}

func TestBatchDeliversWholeDiff(t *testing.T) {
	g := newTestGroup(t, "first", "second")
	var mu sync.Mutex
	var diffs []dom.Snapshot
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay), Batch: func() *bool { b := true; return &b }()},
		OnBatch: func(_ context.Context, diff dom.Snapshot) error {
			mu.Lock()
			defer mu.Unlock()
			diffs = append(diffs, diff)
			return nil
		},
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "v1")
	time.Sleep(5 * time.Millisecond)
	g.edit(g.fields[1], "v2")
	time.Sleep(settleWait)

	mu.Lock()
	defer mu.Unlock()
	if len(diffs) != 1 {
		t.Fatalf("got %d batch deliveries, want 1: %v", len(diffs), diffs)
	}
	want := dom.Snapshot{"first": "v1", "second": "v2"}
	if !dom.SnapshotEqual(diffs[0], want) {
		t.Errorf("diff = %v, want %v", diffs[0], want)
	}
}

func TestPerFieldDeliveryOrder(t *testing.T) {
	g := newTestGroup(t, "b", "a")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "1")
	g.edit(g.fields[1], "2")
	time.Sleep(settleWait)

	calls := rec.snapshot()
	if len(calls) != 2 {
		t.Fatalf("got %d deliveries, want 2: %v", len(calls), calls)
	}
	if calls[0] != "a=2" || calls[1] != "b=1" {
		t.Errorf("deliveries = %v, want name-sorted order", calls)
	}
}

func TestSerializationNoOverlap(t *testing.T) {
	g := newTestGroup(t, "name")

	var running atomic.Int32
	var overlapped atomic.Bool
	var deliveries atomic.Int32
	release := make(chan struct{})

	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange: func(_ context.Context, _ string, value dom.Value) error {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			deliveries.Add(1)
			if value == "first" {
				<-release
			}
			running.Add(-1)
			return nil
		},
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "first")
	time.Sleep(settleWait) // first delivery is now blocked inside the callback

	// A change arriving while a callback runs must be delivered only
	// after that callback settles.
	g.edit(g.fields[0], "second")
	time.Sleep(settleWait)
	if deliveries.Load() != 1 {
		t.Fatalf("second delivery started while first was running (count=%d)", deliveries.Load())
	}

	close(release)
	time.Sleep(settleWait)

	if overlapped.Load() {
		t.Error("two callbacks were running concurrently")
	}
	if deliveries.Load() != 2 {
		t.Errorf("deliveries = %d, want 2 (trailing change must not be lost)", deliveries.Load())
	}
}

func TestDetachedGroupAbandonsDelivery(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(60 * time.Millisecond)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "typed")
	g.lp.Invoke(func() { g.form.Detach() })
	time.Sleep(settleWait)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("detached group still delivered: %v", calls)
	}
}

func TestSubmitCancelsPendingTimer(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Form:      g.form,
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(60 * time.Millisecond)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "typed")
	g.fire(g.form, dom.EventSubmit)
	time.Sleep(settleWait)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("submit should preempt pending delivery, got %v", calls)
	}
}

func TestCallbackFailureDoesNotStopObserver(t *testing.T) {
	g := newTestGroup(t, "name")
	var calls atomic.Int32
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange: func(_ context.Context, _ string, value dom.Value) error {
			calls.Add(1)
			if value == "bad" {
				return fmt.Errorf("backend rejected")
			}
			if value == "worse" {
				panic("handler bug")
			}
			return nil
		},
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.edit(g.fields[0], "bad")
	time.Sleep(settleWait)
	g.edit(g.fields[0], "worse")
	time.Sleep(settleWait)
	g.edit(g.fields[0], "fine")
	time.Sleep(settleWait)

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (failures must not stop the loop)", calls.Load())
	}
}

func TestStopCancelsEverything(t *testing.T) {
	g := newTestGroup(t, "name")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(60 * time.Millisecond)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	g.edit(g.fields[0], "typed")
	w.Stop()
	w.Stop() // idempotent
	time.Sleep(settleWait)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("stopped watcher delivered: %v", calls)
	}

	// Events after Stop are ignored entirely.
	g.edit(g.fields[0], "more")
	time.Sleep(settleWait)
	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("stopped watcher reacted to events: %v", calls)
	}
}

func TestStartRejectsMixedDelaysWithBatch(t *testing.T) {
	g := newTestGroup(t, "a", "b")
	g.fields[0].SetAttr("data-watch-delay", "50")
	g.fields[1].SetAttr("data-watch-delay", "200")
	g.form.SetAttr("data-watch-batch", "true")

	w := New(g.lp, Config{
		Fields:  g.fields,
		OnBatch: func(context.Context, dom.Snapshot) error { return nil },
	})
	err := w.Start()
	if err == nil {
		t.Fatal("Start should reject batching with differing delays")
	}
	if !stderrors.Is(err, skerrors.New(skerrors.CodeUnsupportedWatchConfig)) {
		t.Errorf("error = %v, want %s", err, skerrors.CodeUnsupportedWatchConfig)
	}
}

func TestStartTwiceFails(t *testing.T) {
	g := newTestGroup(t, "name")
	w := New(g.lp, Config{
		Fields:   g.fields,
		OnChange: func(context.Context, string, dom.Value) error { return nil },
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestMultiValueFieldChange(t *testing.T) {
	g := newTestGroup(t, "tag", "tag")
	rec := &changeRecorder{}
	w := New(g.lp, Config{
		Fields:    g.fields,
		Overrides: Overrides{Delay: durp(testDelay)},
		OnChange:  rec.callback(),
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	g.lp.Invoke(func() {
		g.fields[0].SetValue("go")
		g.fields[1].SetValue("web")
		g.fields[0].Dispatch(&dom.Event{Name: dom.EventInput})
	})
	time.Sleep(settleWait)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d deliveries, want 1: %v", len(calls), calls)
	}
	if calls[0] != "tag=[go web]" {
		t.Errorf("delivery = %q, want merged ordered list", calls[0])
	}
}
