package p9

import "sync"

// Fsys is a filesystem handle rooted at one attach fid. Process-wide
// per-service Fsys handles are expected: the mutex serializes
// concurrent window creations' walks of the shared root fid. Callers
// must not hold the lock across a blocking read of a Fid opened via
// this Fsys (in particular, opening a window's event file must happen
// after the Open call that produced it has returned).
type Fsys struct {
	mu   sync.Mutex
	root *Fid
}

// Attach performs the 9P attach on conn with a fresh fid and returns a
// Fsys rooted at that fid.
func Attach(conn *Conn, uname, aname string) (*Fsys, error) {
	fid := conn.NewFid()
	qid, err := conn.Attach(fid, uname, aname)
	if err != nil {
		return nil, err
	}
	return &Fsys{root: newFid(conn, fid, qid)}, nil
}

// Open walks to name relative to the root fid and opens it with mode.
func (fs *Fsys) Open(name string, mode OpenMode) (*Fid, error) {
	fs.mu.Lock()
	fid, err := fs.root.Walk(name)
	fs.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := fid.Open(mode); err != nil {
		_ = fid.Close()
		return nil, err
	}
	return fid, nil
}
