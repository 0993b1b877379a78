package protocol

// ErrorInfo is the payload of an error frame: a stable machine code
// plus a human-readable message.
type ErrorInfo struct {
	Code    string
	Message string
}

// EncodeError encodes an error frame payload.
func EncodeError(e *ErrorInfo) []byte {
	enc := NewEncoder()
	enc.WriteString(e.Code)
	enc.WriteString(e.Message)
	return enc.Bytes()
}

// DecodeError decodes an error frame payload.
func DecodeError(data []byte) (*ErrorInfo, error) {
	d := NewDecoder(data)
	code, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &ErrorInfo{Code: code, Message: msg}, nil
}
