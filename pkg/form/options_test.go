package form

import (
	"testing"
	"time"

	"github.com/swapkit-dev/swapkit/pkg/dom"
)

func strp(s string) *string            { return &s }
func durp(d time.Duration) *time.Duration { return &d }

func TestResolveBuiltinDefaults(t *testing.T) {
	field := dom.NewElement("input", "name", "q")
	opts := Resolve(field, nil, "", Overrides{}, Options{}, Options{})
	if opts.Event != dom.EventInput {
		t.Errorf("Event = %q, want input", opts.Event)
	}
	if opts.Delay != DefaultDelay {
		t.Errorf("Delay = %v, want %v", opts.Delay, DefaultDelay)
	}
}

func TestResolvePrecedenceChain(t *testing.T) {
	form := dom.NewElement("form", "data-watch-event", "change", "data-watch-delay", "300")
	field := dom.NewElement("input", "name", "q", "data-watch-delay", "100")
	form.Append(field)

	submit := Options{Event: "submit-derived", Delay: 999 * time.Millisecond}
	defaults := Options{Event: "caller-default"}

	// Field attribute beats form attribute; both beat caller defaults
	// and submission-derived options.
	opts := Resolve(field, form, "watch", Overrides{}, defaults, submit)
	if opts.Event != "change" {
		t.Errorf("Event = %q, want form attr to beat caller default", opts.Event)
	}
	if opts.Delay != 100*time.Millisecond {
		t.Errorf("Delay = %v, want field attr to beat form attr", opts.Delay)
	}

	// Explicit call-site override beats everything.
	opts = Resolve(field, form, "watch", Overrides{Event: strp("input"), Delay: durp(50 * time.Millisecond)}, defaults, submit)
	if opts.Event != "input" || opts.Delay != 50*time.Millisecond {
		t.Errorf("override should win: %+v", opts)
	}
}

func TestResolveCallerDefaultBeatsSubmit(t *testing.T) {
	field := dom.NewElement("input", "name", "q")
	opts := Resolve(field, nil, "watch", Overrides{},
		Options{Event: "change", Delay: 80 * time.Millisecond},
		Options{Event: "input", Delay: 10 * time.Millisecond})
	if opts.Event != "change" || opts.Delay != 80*time.Millisecond {
		t.Errorf("caller default should beat submission-derived: %+v", opts)
	}
}

func TestResolveSubmitIsLastResort(t *testing.T) {
	field := dom.NewElement("input", "name", "q")
	opts := Resolve(field, nil, "watch", Overrides{}, Options{},
		Options{Event: "change", Delay: 25 * time.Millisecond, Disable: true})
	if opts.Event != "change" || opts.Delay != 25*time.Millisecond || !opts.Disable {
		t.Errorf("submission-derived options should apply when nothing else is set: %+v", opts)
	}
}

func TestResolveIntentScoping(t *testing.T) {
	field := dom.NewElement("input", "name", "q",
		"data-autosave-delay", "40",
		"data-watch-delay", "70")
	opts := Resolve(field, nil, "autosave", Overrides{}, Options{}, Options{})
	if opts.Delay != 40*time.Millisecond {
		t.Errorf("Delay = %v, want the autosave-scoped attribute", opts.Delay)
	}
}

func TestResolveBooleanAttrs(t *testing.T) {
	field := dom.NewElement("input", "name", "q",
		"data-watch-batch", "true",
		"data-watch-disable", "false")
	opts := Resolve(field, nil, "watch", Overrides{}, Options{Disable: true}, Options{})
	if !opts.Batch {
		t.Error("batch attr should enable batching")
	}
	if opts.Disable {
		t.Error(`disable="false" attr should beat a caller default of true`)
	}
}

func TestResolveIgnoresBadDelay(t *testing.T) {
	field := dom.NewElement("input", "name", "q", "data-watch-delay", "soon")
	opts := Resolve(field, nil, "watch", Overrides{}, Options{Delay: 60 * time.Millisecond}, Options{})
	if opts.Delay != 60*time.Millisecond {
		t.Errorf("unparsable delay attr should fall through, got %v", opts.Delay)
	}
}
