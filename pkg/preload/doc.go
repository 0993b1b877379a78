// Package preload converts hover and press intent into speculative,
// cancelable requests.
//
// A Preloader tracks at most one candidate element at a time. Hovering
// an eligible link arms a delay timer; pressing dispatches immediately;
// leaving (or hovering a different candidate) cancels the pending timer
// and, if a speculative request is already in flight, asks the request
// layer to abort it — but only while the request is still purely
// speculative. Only safe (idempotent) methods may ever be preloaded.
//
// The Manager is the default request layer: a TTL+LRU result cache,
// token-bucket rate limiting, bounded concurrency, and an in-flight
// table supporting predicate-based cancellation and promotion of a
// speculative request into a real navigation.
package preload
