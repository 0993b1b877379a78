package preload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swapkit-dev/swapkit/internal/errors"
)

// Request identifies one server-bound action.
type Request struct {
	// Method is the upper-cased HTTP method.
	Method string

	// URL is the action target.
	URL string

	// Speculative marks requests dispatched ahead of user intent.
	Speculative bool
}

// key returns the in-flight table key.
func (r Request) key() string {
	return r.Method + " " + r.URL
}

// IsSafeMethod reports whether a method is idempotent and therefore
// eligible for speculative dispatch.
func IsSafeMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}

// RequestLayer is the narrow boundary the preloader drives. The
// scheduling core never inspects request internals; it only dispatches
// and requests best-effort cancellation.
type RequestLayer interface {
	// DispatchSpeculative starts a speculative request. It returns an
	// explicit error when speculative dispatch is disabled or
	// ineligible; in-flight completion is internal to the layer.
	DispatchSpeculative(req Request) error

	// Cancel aborts in-flight requests matching pred, if they are
	// still cancelable (speculative and not promoted). Returns the
	// number of requests canceled.
	Cancel(pred func(Request) bool) int
}

// FetchFunc performs the actual network round trip for the Manager.
type FetchFunc func(ctx context.Context, req Request) ([]byte, error)

// ManagerConfig holds configuration for the default request layer.
type ManagerConfig struct {
	// TTL is how long a preloaded result stays valid. Default: 30s.
	TTL time.Duration

	// MaxEntries is the result-cache capacity (LRU eviction).
	// Default: 10.
	MaxEntries int

	// Timeout bounds one speculative round trip. Default: 5s.
	Timeout time.Duration

	// RateLimit is the maximum speculative dispatches per second.
	// Excess dispatches are silently dropped. Default: 5.
	RateLimit float64

	// Concurrency is the maximum simultaneous speculative round
	// trips. Default: 2.
	Concurrency int
}

// DefaultManagerConfig returns the default request-layer configuration.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		TTL:         30 * time.Second,
		MaxEntries:  10,
		Timeout:     5 * time.Second,
		RateLimit:   5.0,
		Concurrency: 2,
	}
}

// Manager is the default RequestLayer implementation.
type Manager struct {
	cfg     *ManagerConfig
	fetch   FetchFunc
	logger  *slog.Logger
	cache   *Cache
	limiter *RateLimiter
	sem     *Semaphore

	disabled atomic.Bool

	mu       sync.Mutex
	inflight map[string]*inflightEntry
}

type inflightEntry struct {
	req      Request
	cancel   context.CancelFunc
	promoted bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a request layer that fetches with fetch.
func NewManager(cfg *ManagerConfig, fetch FetchFunc, opts ...ManagerOption) *Manager {
	if cfg == nil {
		cfg = DefaultManagerConfig()
	}
	m := &Manager{
		cfg:      cfg,
		fetch:    fetch,
		logger:   slog.Default(),
		cache:    NewCache(cfg.TTL, cfg.MaxEntries),
		limiter:  NewRateLimiter(cfg.RateLimit),
		sem:      NewSemaphore(cfg.Concurrency),
		inflight: make(map[string]*inflightEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDisabled globally turns speculative dispatch on or off.
func (m *Manager) SetDisabled(disabled bool) {
	m.disabled.Store(disabled)
}

// DispatchSpeculative implements RequestLayer. Disabled preloading is
// reported as an explicit error to the caller; rate-limit and
// concurrency overflows drop the dispatch silently (the real action
// will still happen later if the user commits).
func (m *Manager) DispatchSpeculative(req Request) error {
	if m.disabled.Load() {
		return errors.New(errors.CodePreloadDisabled)
	}
	if !IsSafeMethod(req.Method) {
		return errors.New(errors.CodeUnsafeMethod).
			WithDetail("method %s for %s", req.Method, req.URL)
	}

	k := req.key()
	if m.cache.Get(k) != nil {
		return nil
	}

	m.mu.Lock()
	if _, ok := m.inflight[k]; ok {
		// Single-flight: one speculative request per method+URL.
		m.mu.Unlock()
		return nil
	}
	if !m.limiter.Allow() || !m.sem.Acquire() {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	m.inflight[k] = &inflightEntry{req: req, cancel: cancel}
	m.mu.Unlock()

	go m.run(ctx, req, k)
	return nil
}

func (m *Manager) run(ctx context.Context, req Request, k string) {
	defer m.sem.Release()

	data, err := m.fetch(ctx, req)

	m.mu.Lock()
	delete(m.inflight, k)
	m.mu.Unlock()

	if ctx.Err() != nil {
		// Canceled or timed out; the result, if any, is stale.
		return
	}
	if err != nil {
		m.logger.Debug("speculative fetch failed", "method", req.Method, "url", req.URL, "error", err)
		return
	}
	m.cache.Set(k, data)
}

// Cancel implements RequestLayer. A request that has been promoted past
// the speculative stage is never canceled here.
func (m *Manager) Cancel(pred func(Request) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, entry := range m.inflight {
		if entry.promoted || !entry.req.Speculative || !pred(entry.req) {
			continue
		}
		entry.cancel()
		delete(m.inflight, k)
		n++
	}
	return n
}

// Promote marks an in-flight speculative request as adopted by a real
// user-driven action. From this point a hover-leave can no longer
// cancel it.
func (m *Manager) Promote(method, url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.inflight[Request{Method: method, URL: url}.key()]
	if !ok {
		return false
	}
	entry.promoted = true
	return true
}

// Lookup returns a cached preload result, or nil.
func (m *Manager) Lookup(method, url string) []byte {
	entry := m.cache.Get(Request{Method: method, URL: url}.key())
	if entry == nil {
		return nil
	}
	return entry.Data
}

// InflightLen returns the number of in-flight speculative requests.
func (m *Manager) InflightLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}
