package bridge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/acmelink/acmelink/p9"
	"github.com/acmelink/acmelink/win"
)

// serverWin pairs an editor window with the LSP document state
// tracked on its behalf (spec.md §4.4's "per-window LSP document
// state").
type serverWin struct {
	w      *win.Win
	url    string
	client string

	version int32
}

func newServerWin(name string, w *win.Win, client string) *serverWin {
	return &serverWin{w: w, url: "file://" + name, client: client, version: 1}
}

// pos returns the window's current selection as character offsets.
func (sw *serverWin) pos() (q0, q1 int, err error) {
	return sw.w.Dot()
}

func (sw *serverWin) nl() (*win.NlOffsets, error) {
	body, err := sw.w.ReadBody()
	if err != nil {
		return nil, err
	}
	return win.NewNlOffsets(body), nil
}

// position returns the cursor's (line, character) position.
func (sw *serverWin) position() (Position, error) {
	q0, _, err := sw.pos()
	if err != nil {
		return Position{}, err
	}
	nl, err := sw.nl()
	if err != nil {
		return Position{}, err
	}
	line, col := nl.OffsetToLine(q0)
	return Position{Line: uint32(line), Character: uint32(col)}, nil
}

// text reads the full body and bumps the tracked document version
// (every read that's about to become a didChange notification counts
// as a new version, per spec.md §4.4).
func (sw *serverWin) text() (int32, string, error) {
	body, err := sw.w.ReadBody()
	if err != nil {
		return 0, "", err
	}
	sw.version++
	return sw.version, string(body), nil
}

func (sw *serverWin) docIdent() TextDocumentIdentifier {
	return TextDocumentIdentifier{URI: sw.uri()}
}

func (sw *serverWin) uri() protocolDocumentURI {
	return protocolDocumentURI(sw.url)
}

func (sw *serverWin) textDocPos() (textDocumentPositionParams, error) {
	pos, err := sw.position()
	if err != nil {
		return textDocumentPositionParams{}, err
	}
	return textDocumentPositionParams{TextDocument: sw.docIdent(), Position: pos}, nil
}

// line returns the text of the line the cursor is currently on.
func (sw *serverWin) line() (string, error) {
	body, err := sw.w.ReadBody()
	if err != nil {
		return "", err
	}
	q0, _, err := sw.pos()
	if err != nil {
		return "", err
	}
	nl := win.NewNlOffsets(body)
	lineNo, _ := nl.OffsetToLine(q0)
	lines := strings.Split(string(body), "\n")
	if lineNo < 0 || lineNo >= len(lines) {
		return "", fmt.Errorf("bridge: no such line %d", lineNo)
	}
	return lines[lineNo], nil
}

// syncWindows enumerates editor windows, assigns each to the first
// client (in name order) whose files regex matches, opens new windows and sends
// DidOpen for newly-seen URLs, and sends DidClose for windows that
// have disappeared (spec.md §4.4 window-lifecycle sync).
func (s *Server) syncWindows() error {
	wins, err := win.Windows(s.fsys)
	if err != nil {
		return fmt.Errorf("bridge: sync windows: %w", err)
	}

	sort.Slice(wins, func(i, j int) bool {
		if wins[i].Name != wins[j].Name {
			return wins[i].Name < wins[j].Name
		}
		return wins[i].ID < wins[j].ID
	})

	s.names = s.names[:0]
	s.files = map[string]string{}
	next := map[int]*serverWin{}

	clientNames := make([]string, 0, len(s.clients))
	for name := range s.clients {
		clientNames = append(clientNames, name)
	}
	sort.Strings(clientNames)

	for _, wi := range wins {
		clientName := ""
		for _, name := range clientNames {
			c := s.clients[name]
			if !c.Files.MatchString(wi.Name) {
				continue
			}
			if _, ok := s.capabilities[name]; !ok {
				// Don't open windows for a client that hasn't
				// initialized yet.
				continue
			}
			clientName = name
			break
		}
		if clientName == "" {
			continue
		}
		s.files[wi.Name] = clientName
		s.names = append(s.names, nameID{name: wi.Name, id: wi.ID})

		if sw, ok := s.wins[wi.ID]; ok {
			next[wi.ID] = sw
			continue
		}

		ctl, err := s.fsys.Open(fmt.Sprintf("%d/ctl", wi.ID), p9.ORDWR)
		if err != nil {
			return fmt.Errorf("bridge: open %d/ctl: %w", wi.ID, err)
		}
		ctl.Close()
		w, err := win.Open(s.fsys, wi.ID)
		if err != nil {
			return fmt.Errorf("bridge: open window %d: %w", wi.ID, err)
		}
		sw := newServerWin(wi.Name, w, clientName)

		if !s.openedURLs[sw.url] {
			s.openedURLs[sw.url] = true
			version, text, err := sw.text()
			if err != nil {
				return err
			}
			client := s.lspClients[clientName]
			_ = client.Notify(s.ctx, MethodDidOpen, didOpenParams{
				TextDocument: textDocumentItem{
					URI:     sw.uri(),
					Version: version,
					Text:    text,
				},
			})
		}
		next[wi.ID] = sw
	}

	for id, sw := range s.wins {
		if _, kept := next[id]; kept {
			continue
		}
		delete(s.openedURLs, sw.url)
		if client, ok := s.lspClients[sw.client]; ok {
			_ = client.Notify(s.ctx, MethodDidClose, didCloseParams{TextDocument: sw.docIdent()})
		}
		sw.w.Close()
	}

	s.wins = next
	return nil
}

// nameID is one (filename, window id) pair, kept sorted for rendering
// and for resolving a byte position in the control window to a window
// id (spec.md §4.3).
type nameID struct {
	name string
	id   int
}
