package win_test

import (
	"testing"

	"github.com/acmelink/acmelink/win"
	"github.com/stretchr/testify/require"
)

func TestOffsetToLineRoundTrip(t *testing.T) {
	body := []byte("abc\ndef\nghi")
	idx := win.NewNlOffsets(body)

	for _, tc := range []struct{ line, col int }{
		{0, 0}, {0, 2}, {1, 0}, {1, 3}, {2, 0}, {2, 2},
	} {
		off := idx.LineToOffset(tc.line, tc.col)
		gotLine, gotCol := idx.OffsetToLine(off)
		require.Equal(t, tc.line, gotLine, "line for offset %d", off)
		require.Equal(t, tc.col, gotCol, "col for offset %d", off)
	}
}

func TestLineToOffsetClampsToEOF(t *testing.T) {
	idx := win.NewNlOffsets([]byte("ab\ncd"))
	require.Equal(t, 5, idx.LineToOffset(1, 100))
	require.Equal(t, 5, idx.LineToOffset(100, 0))
}

func TestNlOffsetsNoTrailingNewline(t *testing.T) {
	idx := win.NewNlOffsets([]byte("hello"))
	line, col := idx.OffsetToLine(3)
	require.Equal(t, 0, line)
	require.Equal(t, 3, col)
}
