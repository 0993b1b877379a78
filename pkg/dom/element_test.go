package dom

import "testing"

func TestAttachedFollowsTree(t *testing.T) {
	doc := NewDocument()
	form := NewElement("form")
	field := NewElement("input", "name", "q")
	form.Append(field)

	if field.Attached() {
		t.Error("detached subtree should not report attached")
	}
	doc.Root().Append(form)
	if !field.Attached() {
		t.Error("field should be attached once form is under the root")
	}
	form.Detach()
	if field.Attached() {
		t.Error("detaching the form should detach the field")
	}
}

func TestClosestAndContains(t *testing.T) {
	outer := NewElement("div", "data-layer", "main")
	link := NewElement("a", "href", "/items")
	label := NewElement("span")
	outer.Append(link)
	link.Append(label)

	if got := label.Closest("data-layer"); got != outer {
		t.Errorf("Closest = %v, want outer", got)
	}
	if got := label.Closest("missing"); got != nil {
		t.Errorf("Closest(missing) = %v, want nil", got)
	}
	if !link.Contains(label) || !link.Contains(link) {
		t.Error("Contains should cover self and descendants")
	}
	if label.Contains(link) {
		t.Error("a child does not contain its parent")
	}
}

func TestMethodResolution(t *testing.T) {
	link := NewElement("a", "href", "/items")
	if link.Method() != "GET" {
		t.Errorf("default method = %q, want GET", link.Method())
	}
	link.SetAttr("data-method", "post")
	if link.Method() != "POST" {
		t.Errorf("method = %q, want POST", link.Method())
	}
}

func TestFocusTracksActiveElement(t *testing.T) {
	doc := NewDocument()
	a := NewElement("a", "href", "/x")
	doc.Root().Append(a)

	a.Focus()
	if !a.Focused() || doc.ActiveElement() != a {
		t.Error("Focus should set the document's active element")
	}

	loose := NewElement("a")
	loose.Focus() // no document; must not panic
	if loose.Focused() {
		t.Error("detached element cannot be focused")
	}
}

func TestDispatchBubbles(t *testing.T) {
	doc := NewDocument()
	parent := NewElement("div")
	child := NewElement("button")
	doc.Root().Append(parent)
	parent.Append(child)

	var order []string
	child.On(EventClick, func(ev *Event) { order = append(order, "child") })
	parent.On(EventClick, func(ev *Event) { order = append(order, "parent") })
	doc.Root().On(EventClick, func(ev *Event) { order = append(order, "root") })

	ev := child.Dispatch(&Event{Name: EventClick})
	if ev.Target != child {
		t.Errorf("Target = %v, want child", ev.Target)
	}
	if len(order) != 3 || order[0] != "child" || order[2] != "root" {
		t.Errorf("bubble order = %v", order)
	}
}

func TestStopPropagation(t *testing.T) {
	parent := NewElement("div")
	child := NewElement("button")
	parent.Append(child)

	var parentSaw bool
	child.On(EventClick, func(ev *Event) { ev.StopPropagation() })
	parent.On(EventClick, func(ev *Event) { parentSaw = true })

	child.Dispatch(&Event{Name: EventClick})
	if parentSaw {
		t.Error("StopPropagation should halt bubbling")
	}
}

func TestSubscriberUnbindsEverything(t *testing.T) {
	a := NewElement("input")
	b := NewElement("input")
	sub := NewSubscriber()

	var calls int
	sub.On(a, EventInput, func(*Event) { calls++ })
	sub.On(b, EventChange, func(*Event) { calls++ })

	a.Dispatch(&Event{Name: EventInput})
	b.Dispatch(&Event{Name: EventChange})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	sub.Unbind()
	sub.Unbind() // idempotent
	a.Dispatch(&Event{Name: EventInput})
	b.Dispatch(&Event{Name: EventChange})
	if calls != 2 {
		t.Errorf("calls after Unbind = %d, want 2", calls)
	}
}

func TestSynthesizeForwardsProperties(t *testing.T) {
	target := NewElement("a")
	source := &Event{
		Name: EventMouseDown, ClientX: 10, ClientY: 20,
		Button: 0, ShiftKey: true,
	}

	var got *Event
	target.On("activate", func(ev *Event) { got = ev })
	SynthesizeAndEmit("activate", source, target)

	if got == nil {
		t.Fatal("synthetic event was not dispatched")
	}
	if !got.Synthetic {
		t.Error("event should be marked synthetic")
	}
	if got.ClientX != 10 || got.ClientY != 20 || !got.ShiftKey {
		t.Errorf("forwarded properties lost: %+v", got)
	}
	if got.Target != target {
		t.Errorf("Target = %v, want target", got.Target)
	}
}
