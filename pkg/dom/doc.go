// Package dom provides the server-side element mirror that the scheduling
// components operate on.
//
// The thin client relays raw DOM signals to the server; this package holds
// just enough structure to reason about them: an element tree with
// attributes and attachment state, form-control values with structural
// equality, a per-element listener registry with bubbling dispatch, and a
// Subscriber that can unbind every listener it registered in one call.
//
// All mutation and dispatch is expected to happen on a single session
// loop; the package performs no locking of its own.
package dom
