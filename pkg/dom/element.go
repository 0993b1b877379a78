package dom

import "strings"

// Element is one node in the mirrored tree.
//
// Elements are created detached and become attached when linked (directly
// or transitively) under a Document root. Form controls additionally carry
// a current value snapshot.
type Element struct {
	// Tag is the element tag name (e.g., "input", "a", "form").
	Tag string

	// ID is the element identifier assigned by the client mirror.
	ID string

	attrs    map[string]string
	parent   *Element
	children []*Element
	doc      *Document

	// value is the current form-control value, if this element is a
	// form control. Multi-valued controls hold a List.
	value Value

	listeners map[string][]*listenerEntry
	nextLID   uint64
}

// Document owns one element tree and tracks the focused element.
type Document struct {
	root   *Element
	active *Element
}

// NewDocument creates a document with an empty root element.
func NewDocument() *Document {
	d := &Document{}
	d.root = &Element{Tag: "body", ID: "root"}
	d.root.doc = d
	return d
}

// Root returns the document's root element.
func (d *Document) Root() *Element {
	return d.root
}

// ActiveElement returns the currently focused element, or nil.
func (d *Document) ActiveElement() *Element {
	return d.active
}

// GetByID walks the tree for an element with the given ID.
// Returns nil if no attached element matches.
func (d *Document) GetByID(id string) *Element {
	var found *Element
	d.root.walk(func(e *Element) bool {
		if e.ID == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...string) *Element {
	e := &Element{Tag: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.SetAttr(attrs[i], attrs[i+1])
	}
	return e
}

// Append links child under e. A child already linked elsewhere is moved.
func (e *Element) Append(child *Element) *Element {
	if child.parent != nil {
		child.parent.remove(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	return e
}

// Detach unlinks e from its parent. Listeners stay registered; events can
// still be dispatched on a detached subtree, but Attached reports false.
func (e *Element) Detach() {
	if e.parent != nil {
		e.parent.remove(e)
		e.parent = nil
	}
}

func (e *Element) remove(child *Element) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// Parent returns the element's parent, or nil.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the element's children.
func (e *Element) Children() []*Element {
	return e.children
}

// Attached reports whether e is linked under a document root.
func (e *Element) Attached() bool {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.doc != nil {
			return true
		}
	}
	return false
}

// document returns the owning document, or nil for a detached subtree.
func (e *Element) document() *Document {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.doc != nil {
			return cur.doc
		}
	}
	return nil
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(key, value string) {
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[key] = value
	if key == "id" {
		e.ID = value
	}
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// Name returns the form-control name (the "name" attribute).
func (e *Element) Name() string {
	return e.attrs["name"]
}

// Closest returns the nearest ancestor-or-self carrying the attribute,
// or nil.
func (e *Element) Closest(attr string) *Element {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.HasAttr(attr) {
			return cur
		}
	}
	return nil
}

// Form returns the owning form element (nearest "form" ancestor-or-self),
// or nil.
func (e *Element) Form() *Element {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.Tag == "form" {
			return cur
		}
	}
	return nil
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == e {
			return true
		}
	}
	return false
}

// Focus makes e the document's active element. No-op on detached trees.
func (e *Element) Focus() {
	if d := e.document(); d != nil {
		d.active = e
	}
}

// Focused reports whether e is the document's active element.
func (e *Element) Focused() bool {
	d := e.document()
	return d != nil && d.active == e
}

// SetValue sets the form-control value.
func (e *Element) SetValue(v Value) {
	e.value = v
}

// ControlValue returns the form-control value.
func (e *Element) ControlValue() Value {
	return e.value
}

// walk visits e and its descendants depth-first until fn returns false.
func (e *Element) walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// Walk visits e and its descendants depth-first.
func (e *Element) Walk(fn func(*Element)) {
	e.walk(func(el *Element) bool {
		fn(el)
		return true
	})
}

// Method returns the element's resolved HTTP method: the "data-method"
// attribute if present, otherwise the form "method" attribute, otherwise
// GET. The result is upper-cased.
func (e *Element) Method() string {
	if m, ok := e.Attr("data-method"); ok {
		return strings.ToUpper(m)
	}
	if m, ok := e.Attr("method"); ok {
		return strings.ToUpper(m)
	}
	return "GET"
}

// URL returns the element's action target: "href" for links, "action"
// for forms.
func (e *Element) URL() string {
	if href, ok := e.Attr("href"); ok {
		return href
	}
	return e.attrs["action"]
}
