// Package plumb sends one-shot "open this location" messages to the
// editor's plumber service.
package plumb

import (
	"fmt"
	"os"
	"sync"

	"github.com/acmelink/acmelink/p9"
)

// Message is a plumb record: six header lines (src, dst, dir, type,
// attr, ndata) followed by the raw data bytes.
type Message struct {
	Src  string
	Dst  string
	Dir  string
	Type string
	Attr string
	Data []byte
}

// send writes the six-line header followed by the raw data to w.
func (m Message) send(w *p9.Fid) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n%s\n%s\n%d\n", m.Src, m.Dst, m.Dir, m.Type, m.Attr, len(m.Data))
	if err != nil {
		return err
	}
	_, err = w.Write(m.Data)
	return err
}

// Client mounts the plumb service's "send" fid once and serializes
// sends on it, mirroring the original's process-wide lazily-mounted
// Fsys.
type Client struct {
	mu   sync.Mutex
	send *p9.Fid
}

// NewClient mounts the plumb service and opens its "send" file.
func NewClient() (*Client, error) {
	fs, err := p9.MountService("plumb")
	if err != nil {
		return nil, fmt.Errorf("plumb: mount: %w", err)
	}
	fid, err := fs.Open("send", p9.OWRITE)
	if err != nil {
		return nil, fmt.Errorf("plumb: open send: %w", err)
	}
	return &Client{send: fid}, nil
}

// SendLocation plumbs "path:line" (1-based line) as dst=edit, type=text,
// per the coordinator's single use of plumb. Silently drops locations
// whose path does not exist on the local filesystem.
func (c *Client) SendLocation(path string, line int) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	msg := Message{
		Dst:  "edit",
		Type: "text",
		Data: []byte(fmt.Sprintf("%s:%d", path, line)),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return msg.send(c.send)
}

// Close releases the send fid.
func (c *Client) Close() error {
	return c.send.Close()
}
