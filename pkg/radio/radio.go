// Package radio abstracts the radio network the bridge forwards frames to.
package radio

import (
	"errors"
	"fmt"
	"time"
)

// BroadcastNode is the destination of a broadcast frame.
const BroadcastNode byte = 0xff

// TxStatus is the outcome of a SendData.
type TxStatus byte

// Transmit status values.
const (
	TxOK      TxStatus = 0x00
	TxNoAck   TxStatus = 0x01
	TxFail    TxStatus = 0x02
	TxNoRoute TxStatus = 0x04
)

func (s TxStatus) String() string {
	switch s {
	case TxOK:
		return "ok"
	case TxNoAck:
		return "no-ack"
	case TxFail:
		return "fail"
	case TxNoRoute:
		return "no-route"
	}
	return fmt.Sprintf("status(0x%02x)", byte(s))
}

// Receive status flags.
const (
	RxBroadcast byte = 0x04
)

// Frame is a radio frame received from the network.
type Frame struct {
	Src     byte
	Dst     byte
	Payload []byte
	RSSI    int8
}

// Status returns receive status flags of the frame.
func (f *Frame) Status() byte {
	if f.Dst == BroadcastNode {
		return RxBroadcast
	}
	return 0
}

// Handler receives radio events. Methods are called from radio
// goroutines and must not block.
type Handler interface {
	OnReceive(Frame)
	OnTxStatus(funcID byte, status TxStatus, elapsed time.Duration)
}

// Radio sends frames to other nodes.
type Radio interface {
	NodeID() byte
	// SendData starts transmitting payload to dst. The outcome is
	// reported to Handler.OnTxStatus with funcID.
	SendData(dst byte, payload []byte, funcID byte) error
	SetHandler(Handler)
}

// ErrPayloadTooLarge indicates the payload exceeds MaxPayload.
var ErrPayloadTooLarge = errors.New("payload too large")

// MaxPayload is the largest payload of a radio frame.
const MaxPayload = 46
