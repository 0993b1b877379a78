// Package gesture resolves the mousedown/click pair into exactly one
// synthesized activation event per user gesture.
//
// Elements marked with the data-instant attribute activate at press
// time; everything else activates at release time. The Arbiter tracks
// the last unmodified press per scope and suppresses the duplicate
// click that follows an instant activation, as well as activations
// where the user dragged from one element to another between press and
// release. Downstream handlers listen for the synthesized "activate"
// event only, never for raw mousedown/click.
package gesture
