package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// FrameType discriminates the three wire message kinds.
type FrameType string

const (
	FrameRequest  FrameType = "request"
	FrameResponse FrameType = "response"
	FrameEvent    FrameType = "event"
)

// Server-pushed event methods.
const (
	EventSensorData = "sensor_data"
	EventTick       = "tick"
)

// Frame is the unit of exchange with the server. Responses echo the request
// ID. The checksum covers the body and is verified on every decode.
type Frame struct {
	Type     FrameType       `json:"type"`
	ID       uint64          `json:"id,omitempty"`
	Method   string          `json:"method,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
	Error    string          `json:"error,omitempty"`
	Checksum uint64          `json:"checksum"`
}

// Codec encodes and decodes frames. It is stateless and safe for
// concurrent use.
type Codec struct{}

func (Codec) Encode(f *Frame) ([]byte, error) {
	f.Checksum = xxhash.Sum64(f.Body)
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

func (Codec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, newError(CodeProtocol, "decode frame", err)
	}
	switch f.Type {
	case FrameRequest, FrameResponse, FrameEvent:
	default:
		return nil, newError(CodeProtocol, fmt.Sprintf("unknown frame type %q", f.Type), ErrInvalidFrame)
	}
	if sum := xxhash.Sum64(f.Body); sum != f.Checksum {
		return nil, newError(CodeProtocol,
			fmt.Sprintf("checksum mismatch: got %x, want %x", sum, f.Checksum),
			ErrChecksumMismatch)
	}
	return &f, nil
}

// NewRequest builds a request frame with a marshalled body.
func NewRequest(id uint64, method string, body any) (*Frame, error) {
	raw, err := marshalBody(body)
	if err != nil {
		return nil, err
	}
	return &Frame{Type: FrameRequest, ID: id, Method: method, Body: raw}, nil
}

func marshalBody(body any) (json.RawMessage, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return raw, nil
}
