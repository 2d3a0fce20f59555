package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acmelink/acmelink/plumb"
	"github.com/acmelink/acmelink/win"
)

// runCmd dispatches a click in the coordinator's own control window:
// first against the tracked window rows (a verb tag like
// "[definition]"), then against the current hover's action list, per
// spec.md §4.3's click resolution.
func (s *Server) runCmd(ev win.Event) error {
	if ev.C2 != 'L' {
		return nil
	}
	if wid, ok := findRowAddr(s.addr, ev.Q0); ok {
		return s.runEvent(ev.Text, wid)
	}
	if s.currentHover != nil {
		if idx, ok := findActionAddr(s.currentHover.actionAddrs, ev.Q0); ok && idx < len(s.currentHover.actions) {
			a := s.currentHover.actions[idx]
			return s.runAction(s.currentHover.clientName, s.currentHover.url, a)
		}
	}
	return nil
}

// findRowAddr walks addr in reverse looking for the row containing
// q0; a 0 id marks the dashboard's non-window tail and never matches.
func findRowAddr(addr []posID, q0 int) (int, bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i].pos <= q0 {
			if addr[i].id == 0 {
				return 0, false
			}
			return addr[i].id, true
		}
	}
	return 0, false
}

func findActionAddr(addrs []actionAddr, q0 int) (int, bool) {
	for i := len(addrs) - 1; i >= 0; i-- {
		if addrs[i].pos <= q0 {
			if addrs[i].idx < 0 {
				return 0, false
			}
			return addrs[i].idx, true
		}
	}
	return 0, false
}

// runAction executes one merged hover action: a Command/CodeAction's
// edit or resolve request, a Completion's text insertion, or a
// CodeLens's command/resolve request (spec.md §4.7 point 3).
func (s *Server) runAction(clientName, url string, a action) error {
	switch a.kind {
	case actionCommand:
		return s.runCodeActionOrCommand(clientName, url, a.command)

	case actionCompletion:
		return s.runCompletion(url, a.completion)

	case actionCodeLens:
		if cmd := a.lens.Command; cmd != nil {
			return s.executeCommand(clientName, codeActionOrCommand{
				IsCommand: true,
				Title:     cmd.Title,
				CommandID: cmd.Command,
				Arguments: cmd.Arguments,
			})
		}
		_, err := s.sendRequest(clientName, MethodCodeLensResolve, url, a.lens, new(json.RawMessage))
		return err
	}
	return nil
}

func (s *Server) runCodeActionOrCommand(clientName, url string, c codeActionOrCommand) error {
	if c.IsCommand {
		return s.executeCommand(clientName, c)
	}
	if len(c.Edit) > 0 && string(c.Edit) != "null" {
		var edit WorkspaceEdit
		if err := json.Unmarshal(c.Edit, &edit); err != nil {
			return err
		}
		if err := s.applyWorkspaceEdit(edit); err != nil {
			return err
		}
	}
	if c.Command != nil {
		return s.executeCommand(clientName, *c.Command)
	}
	if len(c.Edit) == 0 {
		_, err := s.sendRequest(clientName, MethodCodeActionResolve, url, c, new(json.RawMessage))
		return err
	}
	return nil
}

func (s *Server) runCompletion(url string, item completionItem) error {
	if len(item.TextEdit) > 0 && string(item.TextEdit) != "null" {
		var edit TextEdit
		if err := json.Unmarshal(item.TextEdit, &edit); err != nil {
			return err
		}
		return s.applyTextEditsByURL(url, []TextEdit{edit})
	}

	text := item.InsertText
	if text == "" {
		text = item.Label
	}
	text = stripSnippet(text)

	sw, err := s.getSWByURL(url)
	if err != nil {
		return err
	}
	q0, q1, err := sw.pos()
	if err != nil {
		return err
	}
	if err := sw.w.SetAddr(fmt.Sprintf("#%d,#%d", q0, q1)); err != nil {
		return err
	}
	_, err = sw.w.Data.Write([]byte(text))
	return err
}

// executeCommand issues workspace/executeCommand for a Command (or a
// CodeAction's bare command arm).
func (s *Server) executeCommand(clientName string, c codeActionOrCommand) error {
	_, err := s.sendRequest(clientName, MethodExecuteCommand, "", executeCommandParams{
		Command:   c.CommandID,
		Arguments: c.Arguments,
	}, new(json.RawMessage))
	return err
}

// cmdPut handles an editor Put (save): re-syncs the document, sends
// didSave, then either requests formatting (which chains into
// actions-on-put once its edits land, see dispatch.go's
// MethodFormatting case) when format-on-put is enabled and the server
// declares a formatting provider, or otherwise requests the configured
// actions directly (spec.md §4.7 point 4).
func (s *Server) cmdPut(id int) error {
	if err := s.didChange(id); err != nil {
		return err
	}
	sw, ok := s.wins[id]
	if !ok {
		return nil
	}
	if err := s.sendNotification(sw.client, MethodDidSave, didSaveParams{TextDocument: sw.docIdent()}); err != nil {
		return err
	}

	cc, ok := s.configs[sw.client]
	if !ok {
		return nil
	}
	formatOnPut := true
	if cc.FormatOnPut != nil {
		formatOnPut = *cc.FormatOnPut
	}
	if formatOnPut && present(s.capabilities[sw.client].DocumentFormattingProvider) {
		_, err := s.sendRequest(sw.client, MethodFormatting, sw.url, documentFormattingParams{
			TextDocument: sw.docIdent(),
			Options:      formattingOptions{TabSize: 4, InsertSpaces: true},
		}, new(json.RawMessage))
		return err
	}
	if len(cc.ActionsOnPut) > 0 {
		newID, err := s.sendRequest(sw.client, MethodCodeAction, sw.url, codeActionParams{
			TextDocument: sw.docIdent(),
			Context:      codeActionContext{Only: cc.ActionsOnPut},
		}, new(json.RawMessage))
		if err != nil {
			return err
		}
		s.autorun[clientID{client: sw.client, id: newID}] = true
	}
	return nil
}

// gotoDefinition plumbs the first of a goto-family response's
// locations (spec.md §4.7 point 3: definition/implementation/typedef
// jump straight to the editor instead of rendering a list).
func gotoDefinition(p *plumb.Client, locs []Location) error {
	if p == nil || len(locs) == 0 {
		return nil
	}
	loc := locs[0]
	path := strings.TrimPrefix(string(loc.URI), "file://")
	return p.SendLocation(path, int(loc.Range.Start.Line)+1)
}

func locationToPlumb(loc Location) string {
	path := strings.TrimPrefix(string(loc.URI), "file://")
	return fmt.Sprintf("%s:%d", path, loc.Range.Start.Line+1)
}

func cmpLocation(a, b Location) int {
	if a.URI != b.URI {
		if a.URI < b.URI {
			return -1
		}
		return 1
	}
	return cmpPosition(a.Range.Start, b.Range.Start)
}

func cmpPosition(a, b Position) int {
	if a.Line != b.Line {
		if a.Line < b.Line {
			return -1
		}
		return 1
	}
	if a.Character != b.Character {
		if a.Character < b.Character {
			return -1
		}
		return 1
	}
	return 0
}
