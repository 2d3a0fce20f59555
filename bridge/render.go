package bridge

import (
	"fmt"
	"strings"
)

// posID pairs a byte offset into the rendered control-window body
// with the window id whose row starts there.
type posID struct {
	pos int
	id  int
}

const maxOutputLines = 50

// render rebuilds the control window's body and writes it only if it
// changed, preserving the editor's scroll/undo state across no-op
// renders (spec.md §4.3's dashboard).
func (s *Server) render() error {
	var b strings.Builder

	if s.currentHover != nil {
		fmt.Fprintf(&b, "%s\n----\n", s.currentHover.body)
	}

	for _, ds := range s.diags {
		for _, d := range ds {
			fmt.Fprintf(&b, "%s\n", d)
		}
		if len(ds) > 0 {
			b.WriteString("\n")
		}
	}

	s.addr = s.addr[:0]
	for _, n := range s.names {
		s.addr = append(s.addr, posID{pos: b.Len(), id: n.id})
		marker := " "
		if n.name == s.focus {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%s\n\t", marker, n.name)

		clientName, ok := s.files[n.name]
		if !ok {
			b.WriteString("\n")
			continue
		}
		caps, ok := s.capabilities[clientName]
		if !ok {
			b.WriteString("\n")
			continue
		}
		if present(caps.DefinitionProvider) {
			b.WriteString("[definition] ")
		}
		if present(caps.ImplementationProvider) {
			b.WriteString("[impl] ")
		}
		if present(caps.ReferencesProvider) {
			b.WriteString("[references] ")
		}
		if present(caps.DocumentSymbolProvider) {
			b.WriteString("[symbols] ")
		}
		if present(caps.TypeDefinitionProvider) {
			b.WriteString("[typedef] ")
		}
		b.WriteString("\n")
	}
	s.addr = append(s.addr, posID{pos: b.Len(), id: 0})
	b.WriteString("-----\n")

	if s.output != "" {
		lines := strings.Split(strings.TrimSpace(s.output), "\n")
		if len(lines) > maxOutputLines {
			lines = lines[:maxOutputLines]
		}
		fmt.Fprintf(&b, "\n%s\n", strings.Join(lines, "\n"))
	}

	if len(s.progress) > 0 {
		b.WriteString("\n")
	}
	for _, p := range s.progress {
		fmt.Fprintf(&b, "%s\n", p)
	}

	if len(s.requests) > 0 {
		b.WriteString("\n")
	}
	for id, req := range s.requests {
		fmt.Fprintf(&b, "%s: %s: %s...\n", id.client, strings.TrimPrefix(req.url, "file://"), req.method)
	}

	body := b.String()
	if body == s.body {
		return nil
	}
	s.body = body

	if err := s.ctl.SetAddr(","); err != nil {
		return err
	}
	if _, err := s.ctl.Data.Write([]byte(body)); err != nil {
		return err
	}
	if err := s.ctl.Ctrl("cleartag\nclean"); err != nil {
		return err
	}
	_, err := s.ctl.Tag.Write([]byte(" Get"))
	return err
}
