package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHomeIDFrom(t *testing.T) {
	testCases := []struct {
		id     string
		homeID uint32
		fails  bool
	}{
		{id: "01020304", homeID: 0xc1020304},
		{id: "0102030401020304", homeID: 0xc0000000},
		{id: "ffffffff", homeID: 0xfffffffe},
		{id: "3fffffff", homeID: 0xfffffffe},
		{id: "12345678aa", homeID: 0xf8345678},
		{id: "0102", fails: true},
		{id: "xyz0", fails: true},
	}
	for _, tc := range testCases {
		homeID, err := HomeIDFrom(tc.id)
		if tc.fails {
			require.Error(t, err, tc.id)
			continue
		}
		require.NoError(t, err, tc.id)
		require.Equal(t, tc.homeID, homeID, tc.id)
	}
}
