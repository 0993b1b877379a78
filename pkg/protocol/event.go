package protocol

import (
	"errors"
	"io"

	"github.com/swapkit-dev/swapkit/pkg/dom"
)

// Event decoding errors.
var (
	ErrInvalidEventType = errors.New("protocol: invalid event type")
	ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")
)

// EventType identifies the type of client event.
type EventType uint8

const (
	// Pointer events.
	EventClick      EventType = 0x01
	EventMouseDown  EventType = 0x02
	EventMouseEnter EventType = 0x03
	EventMouseLeave EventType = 0x04
	EventTouchStart EventType = 0x05

	// Form events.
	EventInput  EventType = 0x10
	EventChange EventType = 0x11
	EventSubmit EventType = 0x12
)

// domNames maps wire event types to the mirror's event names.
var domNames = map[EventType]string{
	EventClick:      dom.EventClick,
	EventMouseDown:  dom.EventMouseDown,
	EventMouseEnter: dom.EventMouseEnter,
	EventMouseLeave: dom.EventMouseLeave,
	EventTouchStart: dom.EventTouchStart,
	EventInput:      dom.EventInput,
	EventChange:     dom.EventChange,
	EventSubmit:     dom.EventSubmit,
}

// DOMName returns the mirror event name for the wire type, or "" for
// an unknown type.
func (et EventType) DOMName() string {
	return domNames[et]
}

func (et EventType) String() string {
	if n := domNames[et]; n != "" {
		return n
	}
	return "unknown"
}

// EventTypeForName returns the wire type for a mirror event name.
func EventTypeForName(name string) (EventType, bool) {
	for et, n := range domNames {
		if n == name {
			return et, true
		}
	}
	return 0, false
}

func (et EventType) pointer() bool {
	return et >= EventClick && et <= EventTouchStart
}

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModCtrl  Modifiers = 0x01
	ModShift Modifiers = 0x02
	ModAlt   Modifiers = 0x04
	ModMeta  Modifiers = 0x08
)

// Has reports whether the given modifier is set.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod != 0
}

// Event is one client event on the wire.
//
// Pointer events carry coordinates, button and modifiers. Input and
// change events carry the control's current value. Submit events carry
// the whole field snapshot.
type Event struct {
	Seq       uint64
	Type      EventType
	Target    string // element id
	ClientX   int
	ClientY   int
	Button    uint8
	Modifiers Modifiers
	Value     dom.Value
	Fields    dom.Snapshot
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(e *Event) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(e.Seq)
	enc.WriteByte(byte(e.Type))
	enc.WriteString(e.Target)

	switch {
	case e.Type.pointer():
		enc.WriteSvarint(int64(e.ClientX))
		enc.WriteSvarint(int64(e.ClientY))
		enc.WriteByte(e.Button)
		enc.WriteByte(byte(e.Modifiers))

	case e.Type == EventInput || e.Type == EventChange:
		encodeValue(enc, e.Value)

	case e.Type == EventSubmit:
		enc.WriteUvarint(uint64(len(e.Fields)))
		for name, v := range e.Fields {
			enc.WriteString(name)
			encodeValue(enc, v)
		}
	}
	return enc.Bytes()
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	et := EventType(typeByte)
	if domNames[et] == "" {
		return nil, ErrInvalidEventType
	}
	target, err := d.ReadString()
	if err != nil {
		return nil, err
	}

	e := &Event{Seq: seq, Type: et, Target: target}

	switch {
	case et.pointer():
		x, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		y, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		button, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		mods, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		e.ClientX, e.ClientY = int(x), int(y)
		e.Button = button
		e.Modifiers = Modifiers(mods)

	case et == EventInput || et == EventChange:
		v, err := decodeValue(d, 0)
		if err != nil {
			return nil, err
		}
		e.Value = v

	case et == EventSubmit:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		fields := make(dom.Snapshot, count)
		for i := 0; i < count; i++ {
			name, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(d, 0)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}
		e.Fields = fields
	}
	return e, nil
}

// Value encoding tags.
const (
	valueNull   = 0x00
	valueString = 0x01
	valueList   = 0x02
	valueMap    = 0x03
)

// maxValueDepth caps nesting of list and map values.
const maxValueDepth = 16

func encodeValue(enc *Encoder, v dom.Value) {
	switch val := v.(type) {
	case nil:
		enc.WriteByte(valueNull)
	case string:
		enc.WriteByte(valueString)
		enc.WriteString(val)
	case dom.List:
		enc.WriteByte(valueList)
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			encodeValue(enc, item)
		}
	case dom.Map:
		enc.WriteByte(valueMap)
		enc.WriteUvarint(uint64(len(val)))
		for k, item := range val {
			enc.WriteString(k)
			encodeValue(enc, item)
		}
	default:
		enc.WriteByte(valueNull)
	}
}

func decodeValue(d *Decoder, depth int) (dom.Value, error) {
	if depth > maxValueDepth {
		return nil, ErrMaxDepthExceeded
	}
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case valueNull:
		return nil, nil
	case valueString:
		return d.ReadString()
	case valueList:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		list := make(dom.List, count)
		for i := 0; i < count; i++ {
			item, err := decodeValue(d, depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case valueMap:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		m := make(dom.Map, count)
		for i := 0; i < count; i++ {
			k, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			item, err := decodeValue(d, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = item
		}
		return m, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}
