package p9

import (
	"fmt"
	"io"
	"os/user"
	"strings"
	"sync"
)

// maxWalkElem is the maximum number of path elements a single Twalk
// may carry; longer paths are walked in batches, threading the fid
// returned by one batch into the next.
const maxWalkElem = 16

// CurrentUser returns the 9P uname to attach as: the OS user's
// username, or "none" if it cannot be determined.
func CurrentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "none"
	}
	return u.Username
}

// Fid is a 9P file handle bound to a Connection, with its own byte
// cursor. It is safe for use from one goroutine at a time; the
// coordinator accesses each window's fids sequentially.
type Fid struct {
	c   *Conn
	num uint32

	Qid  Qid
	mode OpenMode

	mu     sync.Mutex
	offset uint64

	closeOnce sync.Once
}

// newFid wraps an already-walked/attached fid number and qid.
func newFid(c *Conn, num uint32, qid Qid) *Fid {
	return &Fid{c: c, num: num, Qid: qid, mode: OREAD}
}

// Walk resolves path relative to f, splitting on "/" and dropping
// empty and "." elements, batching Twalk calls by maxWalkElem. An
// empty path issues one zero-length Twalk, cloning f to a new Fid with
// f's current qid.
func (f *Fid) Walk(path string) (*Fid, error) {
	wfid := f.c.NewFid()
	elem := splitPath(path)

	qid := f.Qid
	srcFid := f.num
	for i := 0; ; {
		n := len(elem) - i
		if n > maxWalkElem {
			n = maxWalkElem
		}
		batch := elem[i : i+n]
		qids, err := f.c.Walk(srcFid, wfid, batch)
		if err != nil {
			return nil, fmt.Errorf("9p: walk %q: %w", path, err)
		}
		if len(qids) < len(batch) {
			return nil, fmt.Errorf("9p: walk %q: server resolved only %d of %d elements", path, len(qids), len(batch))
		}
		if len(qids) > 0 {
			qid = qids[len(qids)-1]
		}
		i += n
		if i >= len(elem) {
			break
		}
		srcFid = wfid
	}
	return newFid(f.c, wfid, qid), nil
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Open issues Topen and records the mode on success.
func (f *Fid) Open(mode OpenMode) error {
	if err := f.c.Open(f.num, mode); err != nil {
		return err
	}
	f.mode = mode
	return nil
}

// Read implements io.Reader with a single Tread of at most
// Msize-IOHDRSZ bytes, advancing the cursor.
func (f *Fid) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chunk := f.c.Msize - IOHDRSZ
	n := uint32(len(buf))
	if n > chunk {
		n = chunk
	}
	data, err := f.c.Read(f.num, f.offset, n)
	if err != nil {
		return 0, err
	}
	copy(buf, data)
	f.offset += uint64(len(data))
	if len(data) == 0 {
		return 0, io.EOF
	}
	return len(data), nil
}

// Write implements io.Writer, looping until every byte is
// acknowledged, each call capped at Msize-IOHDRSZ.
func (f *Fid) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chunk := int(f.c.Msize - IOHDRSZ)
	total := 0
	for total < len(buf) || len(buf) == 0 {
		want := len(buf) - total
		if want > chunk {
			want = chunk
		}
		n, err := f.c.Write(f.num, f.offset, buf[total:total+want])
		if err != nil {
			return total, err
		}
		total += int(n)
		f.offset += uint64(n)
		if len(buf) == 0 {
			break
		}
	}
	return total, nil
}

// Seek implements io.Seeker for SeekStart and SeekCurrent; seeking to
// end is not supported (the server, not the client, owns EOF).
func (f *Fid) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch whence {
	case io.SeekStart:
		f.offset = uint64(offset)
	case io.SeekCurrent:
		if offset >= 0 {
			f.offset += uint64(offset)
		} else {
			f.offset -= uint64(-offset)
		}
	case io.SeekEnd:
		return 0, fmt.Errorf("9p: seeking to end unsupported")
	default:
		return 0, fmt.Errorf("9p: unknown whence %d", whence)
	}
	return int64(f.offset), nil
}

// Close issues a best-effort Tclunk; errors are swallowed, matching
// the original's Drop semantics for a Fid.
func (f *Fid) Close() error {
	f.closeOnce.Do(func() {
		_ = f.c.Clunk(f.num)
	})
	return nil
}
