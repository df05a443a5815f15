package link

import (
	"fmt"
	"io"
)

// Control bytes.
const (
	SOF byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
)

// MaxPayload is the largest payload a frame can carry.
const MaxPayload = 0xff - 3

// FrameType distinguishes requests from responses.
type FrameType byte

// Frame types.
const (
	Request  FrameType = 0x00
	Response FrameType = 0x01
)

func (t FrameType) String() string {
	switch t {
	case Request:
		return "REQ"
	case Response:
		return "RES"
	}
	return fmt.Sprintf("TYPE(0x%02x)", byte(t))
}

// Frame is a decoded data frame.
type Frame struct {
	Type      FrameType
	CommandID byte
	Payload   []byte
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s 0x%02x % x", f.Type, f.CommandID, f.Payload)
}

// Checksum calculates the frame checksum over b.
func Checksum(b []byte) byte {
	sum := byte(0xff)
	for _, v := range b {
		sum ^= v
	}
	return sum
}

// Bytes returns encoded bytes for sending. Payload beyond MaxPayload is
// not encoded.
func (f *Frame) Bytes() []byte {
	payload := f.Payload
	if len(payload) > MaxPayload {
		payload = payload[:MaxPayload]
	}
	b := make([]byte, len(payload)+5)
	b[0], b[1], b[2], b[3] = SOF, byte(len(payload)+3), byte(f.Type), f.CommandID
	copy(b[4:], payload)
	b[len(b)-1] = Checksum(b[1 : len(b)-1])
	return b
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}
