// Package protocol implements the binary wire format between the thin
// browser client and a scheduler session.
//
// The client relays raw DOM events upward as Event frames; the server
// answers with Patch frames describing fragment updates and with
// Control frames for connection upkeep. All frames share a 3 byte
// header (type byte plus big-endian payload length) and encode their
// payloads with varints and length-prefixed strings.
package protocol
