package serialapi

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialapi/pkg/dispatch"
	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/radio"
	"github.com/robotalks/serialapi/pkg/transport"
)

func newTestBridge(t *testing.T) *Bridge {
	info := DefaultNodeInfo()
	info.HomeID = 0xc0ffee01
	b := NewBridge(info, transport.DefaultConfig(), link.New(&bytes.Buffer{}), radio.NewNetwork().Node(info.NodeID))
	require.Equal(t, 1, b.Engine.Notifications().Len())
	return b
}

func TestCommandReplies(t *testing.T) {
	b := newTestBridge(t)
	testCases := []struct {
		name    string
		cmd     byte
		payload []byte
		reply   *dispatch.Reply
	}{
		{"version", FuncGetVersion, nil, &dispatch.Reply{
			CommandID: FuncGetVersion,
			Payload:   []byte{'Z', '-', 'W', 'a', 'v', 'e', ' ', '7', '.', '1', '8', 0, 0x01},
		}},
		{"memory id", FuncMemoryGetID, nil, &dispatch.Reply{CommandID: FuncMemoryGetID, Payload: []byte{0xc0, 0xff, 0xee, 0x01, 0x01}}},
		{"library", FuncTypeLibrary, nil, &dispatch.Reply{CommandID: FuncTypeLibrary, Payload: []byte{0x01}}},
		{"setup supported", FuncSetup, []byte{SetupGetSupported}, &dispatch.Reply{CommandID: FuncSetup, Payload: []byte{SetupGetSupported, 0x03}}},
		{"setup unknown", FuncSetup, []byte{0x80}, &dispatch.Reply{CommandID: FuncSetup, Payload: []byte{SetupUnsupported}}},
		{"setup empty", FuncSetup, nil, &dispatch.Reply{CommandID: FuncSetup, Payload: []byte{SetupUnsupported}}},
		{"send data short", FuncSendData, []byte{2}, &dispatch.Reply{CommandID: FuncSendData, Payload: []byte{0}}},
		{"send data truncated", FuncSendData, []byte{2, 5, 1, 2}, &dispatch.Reply{CommandID: FuncSendData, Payload: []byte{0}}},
		{"send data", FuncSendData, []byte{2, 2, 0x20, 0x02, 0x25, 0x00}, &dispatch.Reply{CommandID: FuncSendData, Payload: []byte{1}}},
		{"send data too large", FuncSendData, append(append([]byte{2, 47}, make([]byte, 47)...), 0x25, 1), &dispatch.Reply{CommandID: FuncSendData, Payload: []byte{0}}},
		{"unsupported", 0xFE, []byte{1}, &dispatch.Reply{CommandID: dispatch.FuncUnsupported, Payload: []byte{0xFE}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := b.Table.Dispatch(tc.cmd, tc.payload)
			require.Equal(t, tc.reply, r.Reply)
		})
	}
}

func TestGetInitData(t *testing.T) {
	b := newTestBridge(t)
	b.Info.NodeID = 10
	r := b.Table.Dispatch(FuncGetInitData, nil)
	require.True(t, r.HasReply())
	p := r.Reply.Payload
	require.Len(t, p, NodeMaskSize+5)
	require.Equal(t, []byte{0x09, 0x00, NodeMaskSize}, p[:3])
	require.Equal(t, byte(0x02), p[3+1])
	require.Equal(t, []byte{0x07, 0x00}, p[len(p)-2:])
}

func TestGetCapabilities(t *testing.T) {
	b := newTestBridge(t)
	r := b.Table.Dispatch(FuncGetCapabilities, nil)
	p := r.Reply.Payload
	require.Len(t, p, 8+CapabilityBitmaskSize)
	require.Equal(t, []byte{1, 0, 0, 0, 0, 4, 0, 1}, p[:8])
	mask := p[8:]
	for _, id := range b.Table.Supported() {
		n := int(id) - 1
		require.NotZero(t, mask[n/8]&(1<<uint(n%8)), FuncName(id))
	}
	require.Zero(t, mask[(0x30-1)/8]&(1<<uint((0x30-1)%8)))
}

func TestGetRandom(t *testing.T) {
	b := newTestBridge(t)
	for _, tc := range []struct {
		payload []byte
		count   int
	}{
		{nil, DefaultRandomCount},
		{[]byte{0}, DefaultRandomCount},
		{[]byte{5}, 5},
		{[]byte{100}, MaxRandomCount},
	} {
		r := b.Table.Dispatch(FuncGetRandom, tc.payload)
		require.Equal(t, byte(1), r.Reply.Payload[0])
		require.Equal(t, byte(tc.count), r.Reply.Payload[1])
		require.Len(t, r.Reply.Payload, tc.count+2)
	}
}

func TestSetTimeouts(t *testing.T) {
	b := newTestBridge(t)
	r := b.Table.Dispatch(FuncSetTimeouts, []byte{10, 2})
	require.Equal(t, []byte{160, 15}, r.Reply.Payload)
	ack, byteTimeout := b.Link.Timeouts()
	require.Equal(t, 100*time.Millisecond, ack)
	require.Equal(t, 20*time.Millisecond, byteTimeout)

	r = b.Table.Dispatch(FuncSetTimeouts, nil)
	require.Equal(t, []byte{10, 2}, r.Reply.Payload)
}

func TestReady(t *testing.T) {
	b := newTestBridge(t)
	b.Engine.EnqueueCallback(FuncSendData, []byte{1, 0})

	r := b.Table.Dispatch(FuncReady, []byte{LinkDetached})
	require.False(t, r.HasReply())
	require.Equal(t, transport.LinkDetached, b.Engine.Readiness().State())
	require.Equal(t, 0, b.Engine.Callbacks().Len())
	require.True(t, b.Engine.Readiness().IsGatingNotifications())

	b.Table.Dispatch(FuncReady, nil)
	require.Equal(t, transport.LinkConnected, b.Engine.Readiness().State())

	b.Table.Dispatch(FuncReady, []byte{LinkDetached})
	b.Table.Dispatch(FuncReady, []byte{0x42})
	require.Equal(t, transport.LinkConnected, b.Engine.Readiness().State())
}

func TestSoftResetContinuation(t *testing.T) {
	b := newTestBridge(t)
	b.Table.Dispatch(FuncSetup, []byte{SetupTxStatusReport, 1})
	require.True(t, b.TxStatusReport())
	b.Engine.EnqueueCallback(FuncSendData, []byte{1, 0})

	r := b.Table.Dispatch(FuncSoftReset, nil)
	require.False(t, r.HasReply())
	require.Equal(t, dispatch.ContinueSoftReset, r.Then.Kind)
	b.Table.Continue(r.Then, true)

	require.False(t, b.TxStatusReport())
	require.Equal(t, 0, b.Engine.Callbacks().Len())
	require.Equal(t, 1, b.Engine.Notifications().Len())
	e, ok := b.Engine.Notifications().Peek()
	require.True(t, ok)
	require.Equal(t, FuncStarted, e.CommandID)
	require.Equal(t, WakeupSoftwareReset, e.Payload[0])
}

func TestRadioEventsQueued(t *testing.T) {
	b := newTestBridge(t)
	b.Engine.Notifications().Clear()

	b.OnReceive(radio.Frame{Src: 2, Dst: 1, Payload: []byte{0x20, 0x01, 0xff}, RSSI: -50})
	e, ok := b.Engine.Notifications().Dequeue()
	require.True(t, ok)
	require.Equal(t, transport.Entry{
		CommandID: FuncApplicationCommandHandler,
		Payload:   []byte{0, 2, 3, 0x20, 0x01, 0xff, 0xce},
	}, e)

	b.OnTxStatus(0, radio.TxOK, 0)
	require.Equal(t, 0, b.Engine.Callbacks().Len())

	b.OnTxStatus(7, radio.TxNoAck, time.Second)
	e, ok = b.Engine.Callbacks().Dequeue()
	require.True(t, ok)
	require.Equal(t, transport.Entry{CommandID: FuncSendData, Payload: []byte{7, byte(radio.TxNoAck)}}, e)

	b.Table.Dispatch(FuncSetup, []byte{SetupTxStatusReport, 1})
	b.OnTxStatus(8, radio.TxOK, 2560*time.Millisecond)
	e, _ = b.Engine.Callbacks().Dequeue()
	require.Equal(t, []byte{8, 0, 0x01, 0x00}, e.Payload)
}

func TestNodeInfo(t *testing.T) {
	info := DefaultNodeInfo()
	require.NoError(t, info.Validate())
	require.Equal(t, "Z-Wave 7.18", info.VersionString())
	info.ProtocolMinor = 5
	require.Equal(t, "Z-Wave 7. 5", info.VersionString())
	require.Len(t, info.VersionString(), 11)
	info.NodeID = 0
	require.Error(t, info.Validate())
}
