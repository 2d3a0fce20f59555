package p9

import (
	"fmt"
	"io"
	"sync"
)

// defaultMsize is the client's initial proposal, lowered to whatever
// the server negotiates down to in Rversion.
const defaultMsize = 131072

// Conn is a 9P2000 connection over a single stream, multiplexing
// concurrent RPCs by tag. One background goroutine owns the read half
// of the stream and dispatches replies to the waiter that allocated
// the matching tag; all other goroutines only ever write.
type Conn struct {
	stream io.ReadWriteCloser

	Msize uint32

	writeMu sync.Mutex

	tagMu   sync.Mutex
	nextTag uint16
	pending map[uint16]chan reply

	fidMu   sync.Mutex
	nextFid uint32

	readErr  error
	closedCh chan struct{}
	closeOne sync.Once
}

// reply is the raw decoded body delivered to a waiter, keyed by the
// tag it was read under; err is set for a transport failure that
// terminates the whole connection (deliver to every waiter).
type reply struct {
	mtype uint8
	body  []byte
	err   error
}

// NewConn wraps an already-connected stream in a Conn and performs the
// 9P2000 version handshake.
func NewConn(stream io.ReadWriteCloser) (*Conn, error) {
	c := &Conn{
		stream:   stream,
		Msize:    defaultMsize,
		nextTag:  0,
		nextFid:  0,
		pending:  make(map[uint16]chan reply),
		closedCh: make(chan struct{}),
	}

	go c.readLoop()

	tx := Tversion{Tag: NOTAG, Msize: c.Msize, Version: "9P2000"}
	mtype, body, err := c.rpcVersion(tx)
	if err != nil {
		return nil, err
	}
	if mtype != msgRversion {
		return nil, fmt.Errorf("9p: version handshake: unexpected reply type %d", mtype)
	}
	d := newDecoder(body[2:])
	rx := decodeRversion(tx.Tag, d)
	if d.err != nil {
		return nil, fmt.Errorf("9p: version handshake: %w", d.err)
	}
	if rx.Msize > c.Msize {
		return nil, fmt.Errorf("9p: invalid msize %d", rx.Msize)
	}
	c.Msize = rx.Msize
	if rx.Version != "9P2000" {
		return nil, fmt.Errorf("9p: invalid version %q", rx.Version)
	}
	return c, nil
}

// rpcVersion performs the one RPC that by convention uses NOTAG
// instead of an allocated tag, bypassing the normal pending-table path
// since no other RPC can be in flight yet.
func (c *Conn) rpcVersion(tx Tversion) (uint8, []byte, error) {
	ch := make(chan reply, 1)
	c.tagMu.Lock()
	c.pending[tx.Tag] = ch
	c.tagMu.Unlock()

	_, body := tx.encode()
	if err := c.send(msgTversion, body); err != nil {
		c.tagMu.Lock()
		delete(c.pending, tx.Tag)
		c.tagMu.Unlock()
		return 0, nil, err
	}
	r := <-ch
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.mtype, r.body, nil
}

func (c *Conn) send(mtype uint8, body []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.stream, mtype, body)
}

// allocTag reserves the next tag and registers a one-shot delivery
// slot for its reply. Fails-with-OutOfTags when the next tag would
// collide with NOTAG.
func (c *Conn) allocTag() (uint16, chan reply, error) {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	if c.nextTag == NOTAG {
		return 0, nil, fmt.Errorf("9p: out of tags")
	}
	tag := c.nextTag
	c.nextTag++
	ch := make(chan reply, 1)
	c.pending[tag] = ch
	return tag, ch, nil
}

func (c *Conn) retireTag(tag uint16) {
	c.tagMu.Lock()
	delete(c.pending, tag)
	c.tagMu.Unlock()
}

// readLoop is the background reader demultiplexer: it owns the read
// half of the stream for the lifetime of the connection and delivers
// each reply to the channel registered for its tag. Reader failure is
// fatal for the connection: every still-pending waiter is woken with
// the same error.
func (c *Conn) readLoop() {
	for {
		mtype, body, err := readMessage(c.stream)
		if err != nil {
			c.fail(err)
			return
		}
		tag, err := peekTag(body)
		if err != nil {
			c.fail(err)
			return
		}
		c.tagMu.Lock()
		ch, ok := c.pending[tag]
		delete(c.pending, tag)
		c.tagMu.Unlock()
		if !ok {
			// Reply for a tag nobody is waiting on (stale or
			// protocol violation); drop it rather than block forever.
			continue
		}
		ch <- reply{mtype: mtype, body: body}
	}
}

func (c *Conn) fail(err error) {
	c.closeOne.Do(func() {
		c.readErr = err
		c.tagMu.Lock()
		for tag, ch := range c.pending {
			ch <- reply{err: err}
			delete(c.pending, tag)
		}
		c.tagMu.Unlock()
		close(c.closedCh)
	})
}

// Close releases the underlying stream. Safe to call more than once.
func (c *Conn) Close() error {
	return c.stream.Close()
}

// NewFid allocates the next fid, unique within this connection.
func (c *Conn) NewFid() uint32 {
	c.fidMu.Lock()
	defer c.fidMu.Unlock()
	c.nextFid++
	return c.nextFid
}

// rpc performs one tag-multiplexed request/response exchange: allocate
// a tag and slot, patch it into the message's placeholder tag field
// (the struct literals below are built without a tag, since the tag
// isn't known until allocation), send, block for the matching reply,
// and retire the tag. Returns a Rerror as a Go error when the server
// replies with type 107.
func (c *Conn) rpc(mtype uint8, body []byte, wantReply uint8) (*decoder, error) {
	tag, ch, err := c.allocTag()
	if err != nil {
		return nil, err
	}
	body[0] = byte(tag)
	body[1] = byte(tag >> 8)
	if err := c.send(mtype, body); err != nil {
		c.retireTag(tag)
		return nil, err
	}
	r := <-ch
	if r.err != nil {
		return nil, r.err
	}
	d := newDecoder(r.body[2:])
	if r.mtype == msgRerror {
		rerr := decodeRerror(tag, d)
		if d.err != nil {
			return nil, d.err
		}
		return nil, rerr
	}
	if r.mtype != wantReply {
		return nil, fmt.Errorf("9p: unexpected reply type %d, wanted %d", r.mtype, wantReply)
	}
	return d, nil
}

// Attach issues Tattach with afid=NOFID (anonymous authentication; no
// afid auth is used) and returns the attached root Qid.
func (c *Conn) Attach(fid uint32, uname, aname string) (Qid, error) {
	tx := Tattach{Fid: fid, Afid: NOFID, Uname: uname, Aname: aname}
	_, body := tx.encode()
	d, err := c.rpc(msgTattach, body, msgRattach)
	if err != nil {
		return Qid{}, err
	}
	r := decodeRattach(0, d)
	if d.err != nil {
		return Qid{}, d.err
	}
	return r.Qid, nil
}

// Walk issues Twalk and returns the walk qids (one per path element
// actually resolved).
func (c *Conn) Walk(fid, newfid uint32, wname []string) ([]Qid, error) {
	tx := Twalk{Fid: fid, Newfid: newfid, Wname: wname}
	_, body := tx.encode()
	d, err := c.rpc(msgTwalk, body, msgRwalk)
	if err != nil {
		return nil, err
	}
	r := decodeRwalk(0, d)
	if d.err != nil {
		return nil, d.err
	}
	return r.Wqid, nil
}

// Open issues Topen.
func (c *Conn) Open(fid uint32, mode OpenMode) error {
	tx := Topen{Fid: fid, Mode: mode}
	_, body := tx.encode()
	_, err := c.rpc(msgTopen, body, msgRopen)
	return err
}

// Read issues Tread and returns the bytes actually delivered (at most
// count, which callers must cap at Msize-IOHDRSZ).
func (c *Conn) Read(fid uint32, offset uint64, count uint32) ([]byte, error) {
	tx := Tread{Fid: fid, Offset: offset, Count: count}
	_, body := tx.encode()
	d, err := c.rpc(msgTread, body, msgRread)
	if err != nil {
		return nil, err
	}
	r := decodeRread(0, d)
	if d.err != nil {
		return nil, d.err
	}
	return r.Data, nil
}

// Write issues Twrite and returns the count of bytes the server
// acknowledged.
func (c *Conn) Write(fid uint32, offset uint64, data []byte) (uint32, error) {
	tx := Twrite{Fid: fid, Offset: offset, Data: data}
	_, body := tx.encode()
	d, err := c.rpc(msgTwrite, body, msgRwrite)
	if err != nil {
		return 0, err
	}
	r := decodeRwrite(0, d)
	if d.err != nil {
		return 0, d.err
	}
	return r.Count, nil
}

// Clunk issues Tclunk, releasing the fid on the server.
func (c *Conn) Clunk(fid uint32) error {
	tx := Tclunk{Fid: fid}
	_, body := tx.encode()
	_, err := c.rpc(msgTclunk, body, msgRclunk)
	return err
}
