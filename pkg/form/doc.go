// Package form watches groups of form controls and converts their raw
// input events into debounced, serialized callback deliveries.
//
// A Watcher owns one debounce timer and one processed-values snapshot
// per observed group. On every qualifying event it re-reads the group's
// values; only a snapshot that differs structurally from both the last
// delivered state and the currently scheduled state restarts the
// debounce window. Deliveries are strictly serialized: a new delivery
// never starts before the previous callbacks have settled, and a change
// arriving while callbacks run is delivered immediately afterwards.
//
// Per-field options (trigger event, delay, batching, feedback hints)
// are resolved once at Start through a fixed precedence chain; see
// Resolve.
package form
