package protocol

import "errors"

// PatchOp identifies one fragment mutation.
type PatchOp uint8

const (
	PatchSetAttr    PatchOp = 0x01 // set attribute Key to Value
	PatchRemoveAttr PatchOp = 0x02 // remove attribute Key
	PatchSetText    PatchOp = 0x03 // replace text content with Value
	PatchReplace    PatchOp = 0x04 // swap the whole fragment with HTML
	PatchRemove     PatchOp = 0x05 // detach the element
	PatchFocus      PatchOp = 0x06 // move focus to the element
)

func (op PatchOp) String() string {
	switch op {
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetText:
		return "SetText"
	case PatchReplace:
		return "Replace"
	case PatchRemove:
		return "Remove"
	case PatchFocus:
		return "Focus"
	default:
		return "Unknown"
	}
}

// ErrInvalidPatchOp reports an unknown patch opcode.
var ErrInvalidPatchOp = errors.New("protocol: invalid patch op")

// Patch is one mutation addressed at an element id. Which fields are
// meaningful depends on Op.
type Patch struct {
	Op     PatchOp
	Target string
	Key    string
	Value  string
	HTML   []byte
}

// EncodePatches encodes a patch list into one payload.
func EncodePatches(patches []Patch) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(uint64(len(patches)))
	for _, p := range patches {
		encodePatch(enc, p)
	}
	return enc.Bytes()
}

func encodePatch(enc *Encoder, p Patch) {
	enc.WriteByte(byte(p.Op))
	enc.WriteString(p.Target)
	switch p.Op {
	case PatchSetAttr:
		enc.WriteString(p.Key)
		enc.WriteString(p.Value)
	case PatchRemoveAttr:
		enc.WriteString(p.Key)
	case PatchSetText:
		enc.WriteString(p.Value)
	case PatchReplace:
		enc.WriteLenBytes(p.HTML)
	case PatchRemove, PatchFocus:
		// Target only.
	}
}

// EncodePatchFrames encodes a patch list into one or more payloads,
// each small enough for a single frame and holding at most
// MaxCollectionCount patches. Patches never straddle payloads, so
// every payload decodes on its own. A patch that cannot fit any frame
// yields ErrFrameTooLarge.
func EncodePatchFrames(patches []Patch) ([][]byte, error) {
	// Count prefix for up to MaxCollectionCount patches.
	const countPrefixSize = 2

	var (
		payloads [][]byte
		group    []Patch
		size     int
	)
	flush := func() {
		if len(group) > 0 {
			payloads = append(payloads, EncodePatches(group))
			group, size = nil, 0
		}
	}
	for _, p := range patches {
		enc := NewEncoder()
		encodePatch(enc, p)
		n := enc.Len()
		if countPrefixSize+n > MaxPayloadSize {
			return nil, ErrFrameTooLarge
		}
		if countPrefixSize+size+n > MaxPayloadSize || len(group) == MaxCollectionCount {
			flush()
		}
		group = append(group, p)
		size += n
	}
	flush()
	return payloads, nil
}

// DecodePatches decodes a patch list payload.
func DecodePatches(data []byte) ([]Patch, error) {
	d := NewDecoder(data)
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	patches := make([]Patch, 0, count)
	for i := 0; i < count; i++ {
		opByte, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		op := PatchOp(opByte)
		if op < PatchSetAttr || op > PatchFocus {
			return nil, ErrInvalidPatchOp
		}
		target, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		p := Patch{Op: op, Target: target}

		switch op {
		case PatchSetAttr:
			if p.Key, err = d.ReadString(); err != nil {
				return nil, err
			}
			if p.Value, err = d.ReadString(); err != nil {
				return nil, err
			}
		case PatchRemoveAttr:
			if p.Key, err = d.ReadString(); err != nil {
				return nil, err
			}
		case PatchSetText:
			if p.Value, err = d.ReadString(); err != nil {
				return nil, err
			}
		case PatchReplace:
			if p.HTML, err = d.ReadLenBytes(); err != nil {
				return nil, err
			}
		}
		patches = append(patches, p)
	}
	return patches, nil
}
