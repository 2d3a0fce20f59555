package win_test

import (
	"strings"
	"testing"

	"github.com/acmelink/acmelink/win"
	"github.com/stretchr/testify/require"
)

func TestReadEventSimple(t *testing.T) {
	r := win.NewEventReader(strings.NewReader("MX10 10 0 3 abc\n"))
	ev, err := r.ReadEvent()
	require.NoError(t, err)
	require.Equal(t, byte('M'), ev.C1)
	require.Equal(t, byte('X'), ev.C2)
	require.Equal(t, 10, ev.Q0)
	require.Equal(t, 10, ev.Q1)
	require.Equal(t, 0, ev.Flag)
	require.Equal(t, "abc", ev.Text)
	require.False(t, ev.HasOrig)
}

func TestReadEventExpansion(t *testing.T) {
	// Two consecutive raw events; flag&2 and q0==q1 on the first means
	// the second replaces it, carrying the first's original range.
	r := win.NewEventReader(strings.NewReader("MX10 10 2 3 abc\nMX8 12 2 0 \n"))
	ev, err := r.ReadEvent()
	require.NoError(t, err)
	require.Equal(t, 8, ev.Q0)
	require.Equal(t, 12, ev.Q1)
	require.Equal(t, "", ev.Text)
	require.True(t, ev.HasOrig)
	require.Equal(t, 10, ev.OrigQ0)
	require.Equal(t, 10, ev.OrigQ1)
}

func TestReadEventChorded(t *testing.T) {
	r := win.NewEventReader(strings.NewReader("ML10 12 8 0 \nMX0 0 0 3 foo\nMX0 0 0 7 loc:123\n"))
	ev, err := r.ReadEvent()
	require.NoError(t, err)
	require.True(t, ev.HasChorded)
	require.Equal(t, "foo", ev.Arg)
	require.Equal(t, "loc:123", ev.Loc)
}

func TestReadEventNrTooLarge(t *testing.T) {
	r := win.NewEventReader(strings.NewReader("MX0 0 0 257 \n"))
	_, err := r.ReadEvent()
	require.Error(t, err)
}

func TestReadEventMissingNewline(t *testing.T) {
	r := win.NewEventReader(strings.NewReader("MX0 0 0 0 "))
	_, err := r.ReadEvent()
	require.Error(t, err)
}
