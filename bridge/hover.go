package bridge

import (
	"fmt"
	"strings"
)

// actionKind distinguishes the origin of a merged action so runAction
// knows how to execute it (spec.md §4.7 point 3).
type actionKind int

const (
	actionCommand actionKind = iota
	actionCompletion
	actionCodeLens
)

// action is one entry in a WindowHover's merged action list: a code
// action/command, a completion item, or a code lens.
type action struct {
	kind       actionKind
	command    codeActionOrCommand
	completion completionItem
	lens       codeLens
}

// windowHover accumulates the focused window's hover, signature,
// completion, code-action and code-lens responses into one rendered
// body plus a position-addressable action list, per spec.md §4.7.
type windowHover struct {
	clientName string
	url        string

	line  string
	token string

	hover     string
	signature string
	lens      []codeLens

	// completion is cached separately from the merged actions because
	// the semantic-tokens response (which supplies token) and the
	// completion response can arrive in either order.
	completion  []completionItem
	codeActions []codeActionOrCommand

	actions []action
	// actionAddrs pairs a byte offset into body with an index into
	// actions; the last entry is a sentinel (len(body), -1) so a click
	// past every real action addr resolves to "no action".
	actionAddrs []actionAddr

	body string
}

type actionAddr struct {
	pos int
	idx int
}

const maxCompletionActions = 10

// setHover runs f against the current hover if its url matches, then
// recomputes the merged action list and rendered body (spec.md §4.7
// point 2: "subsequent responses ... merge into it").
func (s *Server) setHover(url string, f func(*windowHover)) {
	hover := s.currentHover
	if hover == nil || hover.url != url {
		return
	}
	f(hover)

	hover.actions = hover.actions[:0]
	for _, c := range hover.codeActions {
		hover.actions = append(hover.actions, action{kind: actionCommand, command: c})
	}
	if hover.token != "" {
		added := 0
		for _, item := range hover.completion {
			if !strings.Contains(item.filter(), hover.token) {
				continue
			}
			hover.actions = append(hover.actions, action{kind: actionCompletion, completion: item})
			added++
			if added == maxCompletionActions {
				break
			}
		}
	}
	for _, l := range hover.lens {
		hover.actions = append(hover.actions, action{kind: actionCodeLens, lens: l})
	}

	var b strings.Builder
	if hover.hover != "" {
		b.WriteString(strings.TrimSpace(hover.hover))
		b.WriteString("\n")
	}
	if hover.signature != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(hover.signature))
		b.WriteString("\n")
	}

	hover.actionAddrs = hover.actionAddrs[:0]
	for idx, a := range hover.actions {
		if idx == 0 && b.Len() > 0 {
			b.WriteString("\n")
		}
		hover.actionAddrs = append(hover.actionAddrs, actionAddr{pos: b.Len(), idx: idx})
		newline := ""
		if b.Len() > 0 {
			newline = "\n"
		}
		switch a.kind {
		case actionCommand:
			if title := a.command.actionTitle(); title != "" {
				fmt.Fprintf(&b, "%s[%s]", newline, title)
			}
		case actionCompletion:
			fmt.Fprintf(&b, "\n[insert] %s:", a.completion.Label)
			if a.completion.Deprecated {
				b.WriteString(" DEPRECATED")
			}
			if a.completion.Detail != "" {
				fmt.Fprintf(&b, " %s", a.completion.Detail)
			}
		case actionCodeLens:
			// A lens is clickable by its command title; a lens with no
			// command yet has no title and renders nothing.
			if a.lens.Command != nil {
				fmt.Fprintf(&b, "%s[%s]", newline, a.lens.Command.Title)
			}
		}
	}
	hover.actionAddrs = append(hover.actionAddrs, actionAddr{pos: b.Len(), idx: -1})

	hover.body = b.String()
}

// actionTitle returns the title to render for a Command-or-CodeAction
// entry.
func (c codeActionOrCommand) actionTitle() string {
	return c.Title
}
