package win

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/acmelink/acmelink/p9"
)

// WinInfo is one line of the index file: the window's id and name.
type WinInfo struct {
	ID   int
	Name string
}

// Windows reads and parses the "index" file: one line per window,
// whitespace-separated, field 0 is the numeric id, field 5 is the
// name; lines with fewer than 6 fields are ignored.
func Windows(fs *p9.Fsys) ([]WinInfo, error) {
	fid, err := fs.Open("index", p9.OREAD)
	if err != nil {
		return nil, fmt.Errorf("win: open index: %w", err)
	}
	defer fid.Close()

	var out []WinInfo
	sc := bufio.NewScanner(fid)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		out = append(out, WinInfo{ID: id, Name: fields[5]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("win: read index: %w", err)
	}
	return out, nil
}

// OpenLog opens the top-level "log" file shared by all windows.
func OpenLog(fs *p9.Fsys) (*LogReader, io.Closer, error) {
	fid, err := fs.Open("log", p9.OREAD)
	if err != nil {
		return nil, nil, fmt.Errorf("win: open log: %w", err)
	}
	return NewLogReader(fid), fid, nil
}

// Win is a bundle of fids for one editor window: ctl, body, addr,
// data and tag are opened eagerly; event is opened lazily since not
// every window needs its events read (only the focused/control
// window does).
type Win struct {
	fs *p9.Fsys
	ID int

	Ctl  *p9.Fid
	Body *p9.Fid
	Addr *p9.Fid
	Data *p9.Fid
	Tag  *p9.Fid

	event *p9.Fid
}

// New creates a brand-new window by reading the assigned id from
// new/ctl, then binds to it like Open would.
func New(fs *p9.Fsys) (*Win, error) {
	ctl, err := fs.Open("new/ctl", p9.ORDWR)
	if err != nil {
		return nil, fmt.Errorf("win: open new/ctl: %w", err)
	}
	buf := make([]byte, 64)
	n, err := ctl.Read(buf)
	if err != nil && err != io.EOF {
		ctl.Close()
		return nil, fmt.Errorf("win: read new/ctl: %w", err)
	}
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 1 {
		ctl.Close()
		return nil, fmt.Errorf("win: new/ctl: no id in response")
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		ctl.Close()
		return nil, fmt.Errorf("win: new/ctl: non-numeric id %q: %w", fields[0], err)
	}
	ctl.Close()
	return Open(fs, id)
}

// Open binds to an existing window by id, opening ctl, body, addr,
// data and tag.
func Open(fs *p9.Fsys, id int) (*Win, error) {
	w := &Win{fs: fs, ID: id}
	var err error
	if w.Ctl, err = fs.Open(fmt.Sprintf("%d/ctl", id), p9.ORDWR); err != nil {
		return nil, fmt.Errorf("win: open %d/ctl: %w", id, err)
	}
	if w.Body, err = fs.Open(fmt.Sprintf("%d/body", id), p9.ORDWR); err != nil {
		w.Close()
		return nil, fmt.Errorf("win: open %d/body: %w", id, err)
	}
	if w.Addr, err = fs.Open(fmt.Sprintf("%d/addr", id), p9.ORDWR); err != nil {
		w.Close()
		return nil, fmt.Errorf("win: open %d/addr: %w", id, err)
	}
	if w.Data, err = fs.Open(fmt.Sprintf("%d/data", id), p9.ORDWR); err != nil {
		w.Close()
		return nil, fmt.Errorf("win: open %d/data: %w", id, err)
	}
	if w.Tag, err = fs.Open(fmt.Sprintf("%d/tag", id), p9.ORDWR); err != nil {
		w.Close()
		return nil, fmt.Errorf("win: open %d/tag: %w", id, err)
	}
	return w, nil
}

// Events lazily opens and returns the window's event file. Callers
// must not hold a Fsys lock when calling this (see p9.Fsys's doc
// comment): opening a window's files and then opening its event file
// must be two separate, unlocked steps.
func (w *Win) Events() (*EventReader, error) {
	if w.event == nil {
		fid, err := w.fs.Open(fmt.Sprintf("%d/event", w.ID), p9.ORDWR)
		if err != nil {
			return nil, fmt.Errorf("win: open %d/event: %w", w.ID, err)
		}
		w.event = fid
	}
	return NewEventReader(w.event), nil
}

// WriteEvent writes an unwanted event back to the window's event file
// so the editor re-dispatches it.
func (w *Win) WriteEvent(c1, c2 byte, q0, q1 int) error {
	if w.event == nil {
		return fmt.Errorf("win: WriteEvent: event file not open")
	}
	return WriteEvent(w.event, c1, c2, q0, q1)
}

// Ctrl writes one control command to ctl, appending the trailing
// newline the editor requires.
func (w *Win) Ctrl(cmd string) error {
	_, err := fmt.Fprintf(w.Ctl, "%s\n", cmd)
	return err
}

// SetAddr writes an address expression to addr.
func (w *Win) SetAddr(expr string) error {
	_, err := w.Addr.Write([]byte(expr))
	return err
}

// ReadAddr seeks addr to 0 and reads back "<start> <end>", as left
// there by a prior SetAddr or "addr=dot" ctl write.
func (w *Win) ReadAddr() (q0, q1 int, err error) {
	if _, err = w.Addr.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	buf := make([]byte, 64)
	n, err := w.Addr.Read(buf)
	if err != nil && err != io.EOF {
		return 0, 0, err
	}
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("win: ReadAddr: malformed response %q", buf[:n])
	}
	if q0, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, err
	}
	if q1, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, err
	}
	return q0, q1, nil
}

// Dot writes "addr=dot" to ctl and reads back the current selection.
func (w *Win) Dot() (q0, q1 int, err error) {
	if err := w.Ctrl("addr=dot"); err != nil {
		return 0, 0, err
	}
	return w.ReadAddr()
}

// ReadBody seeks body to 0 and reads it in full.
func (w *Win) ReadBody() ([]byte, error) {
	if _, err := w.Body.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(w.Body)
}

// Del deletes the window (ctl "del"), best-effort like deleting the
// original's control window on Drop.
func (w *Win) Del() error {
	return w.Ctrl("del")
}

// Close clunks every open fid, swallowing individual errors (best
// effort, matching Fid's own Close semantics).
func (w *Win) Close() {
	for _, f := range []*p9.Fid{w.Ctl, w.Body, w.Addr, w.Data, w.Tag, w.event} {
		if f != nil {
			_ = f.Close()
		}
	}
}
