// Package p9 implements a 9P2000 client: wire codec, connection,
// fid/fsys handles, and namespace discovery.
package p9

import (
	"encoding/binary"
	"fmt"
)

// Message type ids, standard 9P2000 assignments.
const (
	msgTversion uint8 = 100
	msgRversion uint8 = 101
	msgTattach  uint8 = 104
	msgRattach  uint8 = 105
	msgRerror   uint8 = 107
	msgTwalk    uint8 = 110
	msgRwalk    uint8 = 111
	msgTopen    uint8 = 112
	msgRopen    uint8 = 113
	msgTread    uint8 = 116
	msgRread    uint8 = 117
	msgTwrite   uint8 = 118
	msgRwrite   uint8 = 119
	msgTclunk   uint8 = 120
	msgRclunk   uint8 = 121
)

// NOFID is the sentinel fid meaning "no fid" (used as afid on Tattach).
const NOFID uint32 = 0xFFFFFFFF

// NOTAG is the sentinel tag reserved for Tversion and never allocated
// to an ordinary RPC.
const NOTAG uint16 = 0xFFFF

// IOHDRSZ is the per-message overhead subtracted from msize to find
// the maximum payload of a single read or write.
const IOHDRSZ uint32 = 24

// OpenMode is the mode argument to Topen, mirroring 9P2000's open flags.
type OpenMode uint8

const (
	OREAD   OpenMode = 0x00
	OWRITE  OpenMode = 0x01
	ORDWR   OpenMode = 0x02
	OEXEC   OpenMode = 0x03
	OTRUNC  OpenMode = 0x10
	OCEXEC  OpenMode = 0x20
	ORCLOSE OpenMode = 0x40
)

// Qid is the server-assigned identity of a file: type, version, path.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

func (q Qid) encode(b *encoder) {
	b.putUint8(q.Type)
	b.putUint32(q.Version)
	b.putUint64(q.Path)
}

func decodeQid(d *decoder) Qid {
	return Qid{
		Type:    d.uint8(),
		Version: d.uint32(),
		Path:    d.uint64(),
	}
}

// encoder accumulates the tag+fields portion of a 9P message body.
type encoder struct {
	buf []byte
}

func (e *encoder) putUint8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) putUint16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) putUint32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) putUint64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) putString(s string) {
	e.putUint16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) putStringArray(ss []string) {
	e.putUint16(uint16(len(ss)))
	for _, s := range ss {
		e.putString(s)
	}
}

func (e *encoder) putBytes(p []byte) {
	e.buf = append(e.buf, p...)
}

// decoder walks a fixed byte slice, accumulating the first error seen
// so call sites can decode a whole message and check err once at the end.
type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf} }

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("9p: short message: need %d bytes at offset %d, have %d", n, d.off, len(d.buf))
		return false
	}
	return true
}

func (d *decoder) uint8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) uint16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *decoder) uint32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) uint64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) string() string {
	n := int(d.uint16())
	if !d.need(n) {
		return ""
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s
}

func (d *decoder) stringArray() []string {
	n := int(d.uint16())
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.string())
	}
	return out
}

func (d *decoder) qidArray() []Qid {
	n := int(d.uint16())
	out := make([]Qid, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, decodeQid(d))
	}
	return out
}

func (d *decoder) rest() []byte {
	if d.err != nil {
		return nil
	}
	b := d.buf[d.off:]
	d.off = len(d.buf)
	return b
}

// Tversion / Rversion

type Tversion struct {
	Tag     uint16
	Msize   uint32
	Version string
}

func (m Tversion) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Msize)
	e.putString(m.Version)
	return msgTversion, e.buf
}

type Rversion struct {
	Tag     uint16
	Msize   uint32
	Version string
}

func decodeRversion(tag uint16, d *decoder) Rversion {
	return Rversion{Tag: tag, Msize: d.uint32(), Version: d.string()}
}

// Tattach / Rattach

type Tattach struct {
	Tag   uint16
	Fid   uint32
	Afid  uint32
	Uname string
	Aname string
}

func (m Tattach) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	e.putUint32(m.Afid)
	e.putString(m.Uname)
	e.putString(m.Aname)
	return msgTattach, e.buf
}

type Rattach struct {
	Tag uint16
	Qid Qid
}

func decodeRattach(tag uint16, d *decoder) Rattach {
	return Rattach{Tag: tag, Qid: decodeQid(d)}
}

// Rerror

type Rerror struct {
	Tag   uint16
	Ename string
}

func decodeRerror(tag uint16, d *decoder) Rerror {
	return Rerror{Tag: tag, Ename: d.string()}
}

func (e Rerror) Error() string { return e.Ename }

// Twalk / Rwalk

type Twalk struct {
	Tag    uint16
	Fid    uint32
	Newfid uint32
	Wname  []string
}

func (m Twalk) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	e.putUint32(m.Newfid)
	e.putStringArray(m.Wname)
	return msgTwalk, e.buf
}

type Rwalk struct {
	Tag  uint16
	Wqid []Qid
}

func decodeRwalk(tag uint16, d *decoder) Rwalk {
	return Rwalk{Tag: tag, Wqid: d.qidArray()}
}

// Topen / Ropen

type Topen struct {
	Tag  uint16
	Fid  uint32
	Mode OpenMode
}

func (m Topen) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	e.putUint8(uint8(m.Mode))
	return msgTopen, e.buf
}

type Ropen struct {
	Tag    uint16
	Qid    Qid
	Iounit uint32
}

func decodeRopen(tag uint16, d *decoder) Ropen {
	return Ropen{Tag: tag, Qid: decodeQid(d), Iounit: d.uint32()}
}

// Tread / Rread

type Tread struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m Tread) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	e.putUint64(m.Offset)
	e.putUint32(m.Count)
	return msgTread, e.buf
}

type Rread struct {
	Tag  uint16
	Data []byte
}

func decodeRread(tag uint16, d *decoder) Rread {
	n := int(d.uint32())
	if !d.need(n) {
		return Rread{Tag: tag}
	}
	data := make([]byte, n)
	copy(data, d.buf[d.off:d.off+n])
	d.off += n
	return Rread{Tag: tag, Data: data}
}

// Twrite / Rwrite

type Twrite struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (m Twrite) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	e.putUint64(m.Offset)
	e.putUint32(uint32(len(m.Data)))
	e.putBytes(m.Data)
	return msgTwrite, e.buf
}

type Rwrite struct {
	Tag   uint16
	Count uint32
}

func decodeRwrite(tag uint16, d *decoder) Rwrite {
	return Rwrite{Tag: tag, Count: d.uint32()}
}

// Tclunk / Rclunk

type Tclunk struct {
	Tag uint16
	Fid uint32
}

func (m Tclunk) encode() (uint8, []byte) {
	e := &encoder{}
	e.putUint16(m.Tag)
	e.putUint32(m.Fid)
	return msgTclunk, e.buf
}

type Rclunk struct {
	Tag uint16
}

func decodeRclunk(tag uint16, d *decoder) Rclunk {
	return Rclunk{Tag: tag}
}

// writeMessage frames a type+body (body's first two bytes are the tag)
// with the u32 size prefix (inclusive of the size field itself and the
// type byte) and the u8 type id.
func writeMessage(w byteWriter, mtype uint8, body []byte) error {
	size := uint32(4 + 1 + len(body))
	var hdr [5]byte
	binary.LittleEndian.PutUint32(hdr[0:4], size)
	hdr[4] = mtype
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

// readMessage reads one full framed message: size, type, and the
// size-5 remaining body bytes (tag followed by the message's fields).
func readMessage(r byteReader) (mtype uint8, body []byte, err error) {
	var hdr [5]byte
	if _, err = readFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[0:4])
	mtype = hdr[4]
	if size < 5 {
		return 0, nil, fmt.Errorf("9p: invalid message size %d", size)
	}
	body = make([]byte, size-5)
	if _, err = readFull(r, body); err != nil {
		return 0, nil, err
	}
	return mtype, body, nil
}

type byteReader interface {
	Read(p []byte) (int, error)
}

func readFull(r byteReader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// peekTag extracts the tag (the first two bytes of a message body) so
// the connection's reader can dispatch before fully decoding the
// message type it belongs to.
func peekTag(body []byte) (uint16, error) {
	if len(body) < 2 {
		return 0, fmt.Errorf("9p: message too short to carry a tag")
	}
	return binary.LittleEndian.Uint16(body[0:2]), nil
}
