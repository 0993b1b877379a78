package protocol

import "errors"

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing       ControlType = 0x01
	ControlPong       ControlType = 0x02
	ControlClose      ControlType = 0x03 // carries a reason
	ControlPreloadOff ControlType = 0x04 // client asks to stop speculative requests
	ControlPreloadOn  ControlType = 0x05
)

func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	case ControlPreloadOff:
		return "PreloadOff"
	case ControlPreloadOn:
		return "PreloadOn"
	default:
		return "Unknown"
	}
}

// ErrInvalidControlType reports an unknown control type.
var ErrInvalidControlType = errors.New("protocol: invalid control type")

// Control is a connection upkeep message.
type Control struct {
	Type   ControlType
	Reason string // Close only
}

// EncodeControl encodes a control message payload.
func EncodeControl(c *Control) []byte {
	enc := NewEncoder()
	enc.WriteByte(byte(c.Type))
	if c.Type == ControlClose {
		enc.WriteString(c.Reason)
	}
	return enc.Bytes()
}

// DecodeControl decodes a control message payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ct := ControlType(typeByte)
	if ct < ControlPing || ct > ControlPreloadOn {
		return nil, ErrInvalidControlType
	}
	c := &Control{Type: ct}
	if ct == ControlClose {
		if c.Reason, err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return c, nil
}
