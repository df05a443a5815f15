// Package pb defines the envelope of radio frames exchanged between
// simulated nodes.
package pb

import (
	"github.com/golang/protobuf/proto"
)

// RadioFrame is a radio frame on the simulated network.
type RadioFrame struct {
	HomeId               uint32   `protobuf:"varint,1,opt,name=home_id,json=homeId,proto3" json:"home_id,omitempty"`
	Src                  uint32   `protobuf:"varint,2,opt,name=src,proto3" json:"src,omitempty"`
	Dst                  uint32   `protobuf:"varint,3,opt,name=dst,proto3" json:"dst,omitempty"`
	Payload              []byte   `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	Rssi                 int32    `protobuf:"zigzag32,5,opt,name=rssi,proto3" json:"rssi,omitempty"`
	FuncId               uint32   `protobuf:"varint,6,opt,name=func_id,json=funcId,proto3" json:"func_id,omitempty"`
	SentAtNs             int64    `protobuf:"varint,7,opt,name=sent_at_ns,json=sentAtNs,proto3" json:"sent_at_ns,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

// Reset implements proto.Message.
func (m *RadioFrame) Reset() { *m = RadioFrame{} }

// String implements proto.Message.
func (m *RadioFrame) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*RadioFrame) ProtoMessage() {}

// GetPayload returns Payload or nil.
func (m *RadioFrame) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func init() {
	proto.RegisterType((*RadioFrame)(nil), "serialapi.radio.v1.RadioFrame")
}
