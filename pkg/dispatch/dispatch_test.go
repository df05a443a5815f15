package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableDispatch(t *testing.T) {
	tbl := NewTable().
		HandleFunc(0x15, func(cmd byte, payload []byte) Result {
			return Respond(cmd, 'Z')
		}).
		HandleFunc(0xEF, func(byte, []byte) Result {
			return NoReply()
		})

	r := tbl.Dispatch(0x15, nil)
	require.True(t, r.HasReply())
	require.Equal(t, &Reply{CommandID: 0x15, Payload: []byte{'Z'}}, r.Reply)
	require.True(t, r.Then.IsNone())

	r = tbl.Dispatch(0xEF, []byte{0})
	require.False(t, r.HasReply())

	r = tbl.Dispatch(0xFE, []byte{1, 2})
	require.Equal(t, &Reply{CommandID: FuncUnsupported, Payload: []byte{0xFE}}, r.Reply)
}

func TestTableSupported(t *testing.T) {
	tbl := NewTable()
	for _, id := range []byte{0x15, 0x02, 0x08, 0x10} {
		tbl.HandleFunc(id, func(byte, []byte) Result { return NoReply() })
	}
	require.Equal(t, []byte{0x02, 0x08, 0x10, 0x15}, tbl.Supported())

	mask := tbl.Bitmask(4)
	require.Equal(t, []byte{0x82, 0x80, 0x10, 0x00}, mask)
}

func TestTableContinue(t *testing.T) {
	tbl := NewTable()
	var got []Continuation
	tbl.OnContinue = func(c Continuation, delivered bool) {
		require.True(t, delivered)
		got = append(got, c)
	}
	tbl.Continue(Continuation{}, true)
	require.Empty(t, got)

	r := NoReply().WithContinuation(ContinueSoftReset, 3)
	tbl.Continue(r.Then, true)
	require.Equal(t, []Continuation{{Kind: ContinueSoftReset, Token: 3}}, got)
}
