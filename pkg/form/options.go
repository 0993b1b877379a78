package form

import (
	"strconv"
	"time"

	"github.com/swapkit-dev/swapkit/pkg/dom"
)

// DefaultIntent is the attribute scope used when none is configured.
// With intent "watch", fields are configured through data-watch-event,
// data-watch-delay, data-watch-batch, data-watch-feedback and
// data-watch-disable attributes.
const DefaultIntent = "watch"

// DefaultDelay is the settling delay applied when nothing else
// configures one.
const DefaultDelay = 150 * time.Millisecond

// Options is one field's fully resolved watch configuration.
type Options struct {
	// Event is the trigger event name ("input" or "change").
	Event string

	// Delay is the settling delay after the last qualifying change.
	Delay time.Duration

	// Batch delivers one callback with the whole diff instead of one
	// callback per changed field.
	Batch bool

	// Feedback enables busy feedback on the observed fields while the
	// callback runs.
	Feedback bool

	// Disable disables the observed fields while the callback runs.
	Disable bool
}

// Overrides carries explicit call-site options. Nil fields are unset
// and fall through to the next layer of the precedence chain.
type Overrides struct {
	Event    *string
	Delay    *time.Duration
	Batch    *bool
	Feedback *bool
	Disable  *bool
}

// Resolve computes a field's options through the fixed precedence chain,
// highest to lowest:
//
//  1. explicit call-site override
//  2. intent-scoped attribute on the field, then on its form
//  3. caller-supplied default (zero fields are unset; boolean defaults
//     only apply when true)
//  4. submission-derived option
//
// This order is part of the public contract: declarative configurations
// depend on call-site options beating attributes and attributes beating
// caller defaults.
func Resolve(field, form *dom.Element, intent string, overrides Overrides, defaults, submit Options) Options {
	if intent == "" {
		intent = DefaultIntent
	}

	// Build from the lowest layer up; each layer only overwrites what
	// it explicitly sets.
	opts := submit

	if defaults.Event != "" {
		opts.Event = defaults.Event
	}
	if defaults.Delay > 0 {
		opts.Delay = defaults.Delay
	}
	if defaults.Batch {
		opts.Batch = true
	}
	if defaults.Feedback {
		opts.Feedback = true
	}
	if defaults.Disable {
		opts.Disable = true
	}

	applyAttrs(&opts, form, intent)
	applyAttrs(&opts, field, intent)

	if overrides.Event != nil {
		opts.Event = *overrides.Event
	}
	if overrides.Delay != nil {
		opts.Delay = *overrides.Delay
	}
	if overrides.Batch != nil {
		opts.Batch = *overrides.Batch
	}
	if overrides.Feedback != nil {
		opts.Feedback = *overrides.Feedback
	}
	if overrides.Disable != nil {
		opts.Disable = *overrides.Disable
	}

	if opts.Event == "" {
		opts.Event = dom.EventInput
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return opts
}

// applyAttrs overlays the intent-scoped attributes of el, if present.
func applyAttrs(opts *Options, el *dom.Element, intent string) {
	if el == nil {
		return
	}
	prefix := "data-" + intent + "-"
	if v, ok := el.Attr(prefix + "event"); ok {
		opts.Event = v
	}
	if v, ok := el.Attr(prefix + "delay"); ok {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			opts.Delay = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := el.Attr(prefix + "batch"); ok {
		opts.Batch = v != "false"
	}
	if v, ok := el.Attr(prefix + "feedback"); ok {
		opts.Feedback = v != "false"
	}
	if v, ok := el.Attr(prefix + "disable"); ok {
		opts.Disable = v != "false"
	}
}
