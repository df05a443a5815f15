package sh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	data, err := ParseHex([]string{"2001", "ff"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x20, 0x01, 0xff}, data)

	data, err = ParseHex(nil)
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = ParseHex([]string{"2"})
	require.Error(t, err)
}

func TestParseByte(t *testing.T) {
	for in, expected := range map[string]byte{"7": 7, "0x1c": 0x1c, "255": 255} {
		b, err := ParseByte(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, b, in)
	}
	_, err := ParseByte("256")
	require.Error(t, err)
}

func TestParseSwitch(t *testing.T) {
	on, err := parseSwitch([]string{"ON"})
	require.NoError(t, err)
	require.True(t, on)
	on, err = parseSwitch([]string{"0"})
	require.NoError(t, err)
	require.False(t, on)
	_, err = parseSwitch(nil)
	require.Error(t, err)
	_, err = parseSwitch([]string{"maybe"})
	require.Error(t, err)
}

func TestShellEmbeddedBridge(t *testing.T) {
	s := New(MemURL)
	require.NoError(t, s.Connect())
	defer s.Close()
	require.NotNil(t, s.Network)
	select {
	case f := <-s.Client.EventChan():
		require.Equal(t, "SERIAL_API_STARTED 050080020700", FormatFrame(f))
	case <-time.After(3 * time.Second):
		t.Fatal("expect SERIAL_API_STARTED timeout")
	}

	ctx, cancel := s.Context()
	defer cancel()
	ver, err := s.Client.GetVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "Z-Wave 7.18", ver.Library)
}
