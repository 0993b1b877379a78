package dom

// Value is the snapshot of one form control's value.
//
// Concrete types:
//   - string for single-valued controls
//   - List for multi-valued controls (multi-select, checkbox groups);
//     order is significant
//   - Map for structured fields; keys are unordered but must match exactly
//
// A nil Value means the control contributes no value (e.g., an unchecked
// lone checkbox).
type Value any

// List is an ordered multi-value.
type List []Value

// Map is a nested structured value.
type Map map[string]Value

// Snapshot maps field names to their current values.
type Snapshot map[string]Value

// ValueEqual compares two values structurally. Lists are compared in
// order; maps by exact key set and per-key equality; everything else
// with ==.
func ValueEqual(a, b Value) bool {
	switch av := a.(type) {
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, present := bv[k]
			if !present || !ValueEqual(v, bval) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// SnapshotEqual compares two snapshots structurally.
func SnapshotEqual(a, b Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !ValueEqual(v, bv) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case Map:
		out := make(Map, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// DiffSnapshots returns, over the union of keys in old and new, every
// field whose value differs, mapped to its value in new. A field absent
// from new appears with a nil value.
func DiffSnapshots(old, new Snapshot) Snapshot {
	diff := make(Snapshot)
	for k, nv := range new {
		ov, ok := old[k]
		if !ok || !ValueEqual(ov, nv) {
			diff[k] = nv
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			diff[k] = nil
		}
	}
	return diff
}

// ReadGroupValues snapshots the current values of a group of form
// controls. Controls sharing a name are merged into an ordered List in
// group order; a control with an empty name is skipped.
func ReadGroupValues(fields []*Element) Snapshot {
	snap := make(Snapshot)
	for _, f := range fields {
		name := f.Name()
		if name == "" {
			continue
		}
		v := f.ControlValue()
		if v == nil {
			continue
		}
		if prev, ok := snap[name]; ok {
			if lst, isList := prev.(List); isList {
				snap[name] = append(lst, v)
			} else {
				snap[name] = List{prev, v}
			}
		} else {
			snap[name] = cloneValue(v)
		}
	}
	return snap
}
