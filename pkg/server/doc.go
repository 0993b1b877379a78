// Package server hosts scheduler sessions over WebSocket.
//
// Each connection gets its own Session: a server-side DOM mirror, one
// event loop, and an Engine wiring the form, preload and gesture
// schedulers over the mirror. The thin client relays raw DOM events as
// binary frames; the session decodes them, replays them on the mirror,
// and ships fragment patches back. Prometheus metrics and OpenTelemetry
// spans cover the event path.
package server
