package win_test

import (
	"strings"
	"testing"

	"github.com/acmelink/acmelink/win"
	"github.com/stretchr/testify/require"
)

func TestLogReaderSplitsNameWithSpaces(t *testing.T) {
	r := win.NewLogReader(strings.NewReader("12 focus /home/user/my file.go\n"))
	rec, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, 12, rec.ID)
	require.Equal(t, win.OpFocus, rec.Op)
	require.Equal(t, "/home/user/my file.go", rec.Name)
}

func TestLogReaderMultipleRecords(t *testing.T) {
	r := win.NewLogReader(strings.NewReader("1 new a.go\n2 del b.go\n"))
	rec1, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, win.OpNew, rec1.Op)

	rec2, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, win.OpDel, rec2.Op)
	require.Equal(t, "b.go", rec2.Name)
}
