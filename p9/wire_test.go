package p9

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTwalkRoundTrip(t *testing.T) {
	tx := Twalk{Tag: 7, Fid: 3, Newfid: 9, Wname: []string{"a", "b", "c"}}
	_, body := tx.encode()

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, msgTwalk, body))

	mtype, gotBody, err := readMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, msgTwalk, mtype)

	tag, err := peekTag(gotBody)
	require.NoError(t, err)
	require.EqualValues(t, 7, tag)

	d := newDecoder(gotBody[2:])
	fid := d.uint32()
	newfid := d.uint32()
	wname := d.stringArray()
	require.NoError(t, d.err)
	require.EqualValues(t, 3, fid)
	require.EqualValues(t, 9, newfid)
	require.Equal(t, []string{"a", "b", "c"}, wname)
}

func TestRerrorImplementsError(t *testing.T) {
	var err error = Rerror{Tag: 1, Ename: "no such file"}
	require.EqualError(t, err, "no such file")
}

func TestReadMessageShortBody(t *testing.T) {
	// size says 5 (header only, zero-length body) - reading past the
	// declared tag must fail cleanly, not panic.
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, msgRerror, nil))
	_, body, err := readMessage(&buf)
	require.NoError(t, err)
	_, err = peekTag(body)
	require.Error(t, err)
}

func TestQidEncodeDecode(t *testing.T) {
	e := &encoder{}
	q := Qid{Type: 0x80, Version: 42, Path: 123456789}
	q.encode(e)
	d := newDecoder(e.buf)
	got := decodeQid(d)
	require.NoError(t, d.err)
	require.Equal(t, q, got)
}
