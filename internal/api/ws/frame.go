package ws

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// Frame types.
const (
	TypeRead    = "read"
	TypeWrite   = "write"
	TypePing    = "ping"
	TypeSystem  = "system"
	TypeData    = "data"
	TypeWritten = "written"
	TypeError   = "error"
	TypePong    = "pong"
)

// Payload encodings.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

// Frame is a message in either direction.
type Frame struct {
	Type         string `json:"type"`
	Size         int    `json:"size,omitempty"`
	Data         string `json:"data,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	Bytes        int    `json:"bytes,omitempty"`
	Code         int    `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	Pipe         string `json:"pipe,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

// Payload decodes the frame's data.
func (f Frame) Payload() ([]byte, error) {
	switch f.Encoding {
	case "", EncodingText:
		return []byte(f.Data), nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", f.Encoding)
	}
}

// dataFrame carries b as text when it is valid UTF-8 and text was not
// ruled out by the request, otherwise as base64.
func dataFrame(b []byte, want string) Frame {
	if want != EncodingBase64 && utf8.Valid(b) {
		return Frame{Type: TypeData, Data: string(b), Encoding: EncodingText, Bytes: len(b)}
	}
	return Frame{Type: TypeData, Data: base64.StdEncoding.EncodeToString(b), Encoding: EncodingBase64, Bytes: len(b)}
}
