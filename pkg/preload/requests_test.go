package preload

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	stderrors "errors"

	skerrors "github.com/swapkit-dev/swapkit/internal/errors"
)

func testConfig() *ManagerConfig {
	return &ManagerConfig{
		TTL:         time.Minute,
		MaxEntries:  10,
		Timeout:     time.Second,
		RateLimit:   1000,
		Concurrency: 4,
	}
}

func TestManagerFetchesAndCaches(t *testing.T) {
	var fetches atomic.Int32
	m := NewManager(testConfig(), func(_ context.Context, req Request) ([]byte, error) {
		fetches.Add(1)
		return []byte("body:" + req.URL), nil
	})

	req := Request{Method: "GET", URL: "/items", Speculative: true}
	if err := m.DispatchSpeculative(req); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return m.Lookup("GET", "/items") != nil })

	if got := string(m.Lookup("GET", "/items")); got != "body:/items" {
		t.Errorf("Lookup = %q", got)
	}

	// A cached result suppresses a refetch.
	if err := m.DispatchSpeculative(req); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", fetches.Load())
	}
}

func TestManagerDisabled(t *testing.T) {
	var fetches atomic.Int32
	m := NewManager(testConfig(), func(context.Context, Request) ([]byte, error) {
		fetches.Add(1)
		return nil, nil
	})
	m.SetDisabled(true)

	err := m.DispatchSpeculative(Request{Method: "GET", URL: "/x", Speculative: true})
	if !stderrors.Is(err, skerrors.New(skerrors.CodePreloadDisabled)) {
		t.Errorf("error = %v, want %s", err, skerrors.CodePreloadDisabled)
	}

	if fetches.Load() != 0 {
		t.Error("fetch must not run while disabled")
	}
	m.SetDisabled(false)
	if err := m.DispatchSpeculative(Request{Method: "HEAD", URL: "/x", Speculative: true}); err != nil {
		t.Errorf("re-enabled dispatch failed: %v", err)
	}
}

func TestManagerRejectsUnsafeMethod(t *testing.T) {
	m := NewManager(testConfig(), func(context.Context, Request) ([]byte, error) {
		return nil, nil
	})
	err := m.DispatchSpeculative(Request{Method: "POST", URL: "/x", Speculative: true})
	if !stderrors.Is(err, skerrors.New(skerrors.CodeUnsafeMethod)) {
		t.Errorf("error = %v, want %s", err, skerrors.CodeUnsafeMethod)
	}
}

func TestManagerSingleFlight(t *testing.T) {
	var fetches atomic.Int32
	block := make(chan struct{})
	m := NewManager(testConfig(), func(ctx context.Context, _ Request) ([]byte, error) {
		fetches.Add(1)
		<-block
		return []byte("x"), nil
	})
	defer close(block)

	req := Request{Method: "GET", URL: "/slow", Speculative: true}
	for i := 0; i < 3; i++ {
		if err := m.DispatchSpeculative(req); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want single-flight", fetches.Load())
	}
}

func TestManagerCancelAbortsSpeculative(t *testing.T) {
	canceled := make(chan struct{})
	m := NewManager(testConfig(), func(ctx context.Context, _ Request) ([]byte, error) {
		<-ctx.Done()
		close(canceled)
		return []byte("late"), ctx.Err()
	})

	req := Request{Method: "GET", URL: "/items", Speculative: true}
	if err := m.DispatchSpeculative(req); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return m.InflightLen() == 1 })

	n := m.Cancel(func(r Request) bool { return r.URL == "/items" })
	if n != 1 {
		t.Fatalf("Cancel = %d, want 1", n)
	}

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("fetch context was not canceled")
	}
	time.Sleep(20 * time.Millisecond)
	if m.Lookup("GET", "/items") != nil {
		t.Error("canceled request must not populate the cache")
	}
}

func TestManagerPromotedRequestNotCancelable(t *testing.T) {
	block := make(chan struct{})
	m := NewManager(testConfig(), func(ctx context.Context, _ Request) ([]byte, error) {
		select {
		case <-block:
			return []byte("done"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	req := Request{Method: "GET", URL: "/items", Speculative: true}
	if err := m.DispatchSpeculative(req); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return m.InflightLen() == 1 })

	if !m.Promote("GET", "/items") {
		t.Fatal("Promote should find the in-flight request")
	}
	if n := m.Cancel(func(Request) bool { return true }); n != 0 {
		t.Errorf("Cancel = %d, promoted request must not be canceled", n)
	}

	close(block)
	waitFor(t, func() bool { return m.Lookup("GET", "/items") != nil })
}

func TestManagerRateLimitDropsSilently(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	var fetches atomic.Int32
	m := NewManager(cfg, func(context.Context, Request) ([]byte, error) {
		fetches.Add(1)
		return []byte("x"), nil
	})

	if err := m.DispatchSpeculative(Request{Method: "GET", URL: "/1", Speculative: true}); err != nil {
		t.Fatal(err)
	}
	// Over the limit: dropped without error.
	if err := m.DispatchSpeculative(Request{Method: "GET", URL: "/2", Speculative: true}); err != nil {
		t.Errorf("over-limit dispatch should drop silently, got %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", fetches.Load())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
