package bridge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/acmelink/acmelink/internal/logging"
	"github.com/acmelink/acmelink/lspclient"
	"github.com/acmelink/acmelink/win"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// lspMsg routes one classified message from an LSP client's channel
// to the response/notification/error handler (spec.md §4.6).
func (s *Server) lspMsg(client string, msg lspclient.Message) error {
	switch msg.Kind {
	case lspclient.KindResponse:
		id := clientID{client: client, id: msg.ID}
		req, ok := s.requests[id]
		if !ok {
			return fmt.Errorf("bridge: response for untracked request %v", id)
		}
		delete(s.requests, id)
		if msg.Err != nil {
			s.output = msg.Err.Error()
			return nil
		}
		raw, _ := msg.Result.(*json.RawMessage)
		if raw == nil || len(*raw) == 0 || string(*raw) == "null" {
			// A null formatting result still chains into actions-on-put.
			if req.method != MethodFormatting {
				return nil
			}
			null := json.RawMessage("null")
			raw = &null
		}
		return s.lspResponse(id, req, *raw)
	case lspclient.KindNotification:
		return s.lspNotification(client, msg.Method, msg.Params)
	case lspclient.KindServerRequest:
		logging.Debug("bridge: ignored server request %s from %s", msg.Method, client)
		return nil
	}
	return nil
}

// lspResponse decodes and applies one response per the method it
// answers, mirroring main.rs's lsp_response match arms.
func (s *Server) lspResponse(id clientID, req pendingRequest, raw json.RawMessage) error {
	switch req.method {
	case MethodInitialize:
		var result initializeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
		s.capabilities[id.client] = result.Capabilities
		if err := s.sendNotification(id.client, MethodInitialized, initializedParams{}); err != nil {
			return err
		}
		return s.syncWindows()

	case MethodDefinition, MethodImplementation, MethodTypeDefinition:
		locs, err := decodeGotoResponse(raw)
		if err != nil {
			return err
		}
		return gotoDefinition(s.plumb, locs)

	case MethodHover:
		var h hoverResult
		if err := json.Unmarshal(raw, &h); err != nil {
			return err
		}
		text := markupOrMarkedString(h.Contents)
		s.setHover(req.url, func(hover *windowHover) { hover.hover = text })

	case MethodReferences:
		var locs []Location
		if err := json.Unmarshal(raw, &locs); err != nil {
			return err
		}
		sort.Slice(locs, func(i, j int) bool { return cmpLocation(locs[i], locs[j]) < 0 })
		var lines []string
		for _, l := range locs {
			lines = append(lines, locationToPlumb(l))
		}
		if len(lines) > 0 {
			s.output = strings.Join(lines, "\n")
		}

	case MethodDocumentSymbol:
		var syms []documentSymbol
		if err := json.Unmarshal(raw, &syms); err != nil {
			return err
		}
		lines := renderDocumentSymbols(syms, nil)
		if len(lines) > 0 {
			s.output = strings.Join(lines, "\n")
		}

	case MethodSignatureHelp:
		var sig signatureHelpResult
		if err := json.Unmarshal(raw, &sig); err != nil {
			return err
		}
		if text := sig.activeText(); text != "" {
			s.setHover(req.url, func(hover *windowHover) { hover.signature = text })
		}

	case MethodCodeLens:
		var lenses []codeLens
		if err := json.Unmarshal(raw, &lenses); err != nil {
			return err
		}
		s.setHover(req.url, func(hover *windowHover) { hover.lens = lenses })

	case MethodCodeAction:
		actions, err := decodeCodeActionResponse(raw)
		if err != nil {
			return err
		}
		if s.autorun[id] {
			delete(s.autorun, id)
			for _, a := range actions {
				if err := s.runAction(id.client, req.url, action{kind: actionCommand, command: a}); err != nil {
					return err
				}
			}
		} else {
			s.setHover(req.url, func(hover *windowHover) {
				hover.codeActions = append(hover.codeActions, actions...)
			})
		}

	case MethodCodeActionResolve:
		var wire struct {
			Edit json.RawMessage `json:"edit"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return err
		}
		if len(wire.Edit) == 0 || string(wire.Edit) == "null" {
			return nil
		}
		var edit WorkspaceEdit
		if err := json.Unmarshal(wire.Edit, &edit); err != nil {
			return err
		}
		return s.applyWorkspaceEdit(edit)

	case MethodCompletion:
		items, err := decodeCompletionResponse(raw)
		if err != nil {
			return err
		}
		s.setHover(req.url, func(hover *windowHover) { hover.completion = items })

	case MethodFormatting:
		var edits []TextEdit
		if err := json.Unmarshal(raw, &edits); err != nil {
			return err
		}
		if err := s.applyTextEditsByURL(req.url, edits); err != nil {
			return err
		}
		actions := s.configs[id.client].ActionsOnPut
		if len(actions) > 0 {
			newID, err := s.sendRequest(id.client, MethodCodeAction, req.url, codeActionParams{
				TextDocument: TextDocumentIdentifier{URI: protocolDocumentURI(req.url)},
				Range:        Range{},
				Context:      codeActionContext{Diagnostics: nil, Only: actions},
			}, new(json.RawMessage))
			if err != nil {
				return err
			}
			s.autorun[clientID{client: id.client, id: newID}] = true
		}

	case MethodCodeLensResolve:
		var lens codeLens
		if err := json.Unmarshal(raw, &lens); err != nil {
			return err
		}
		// Resolved lenses only ever carry a command in this coordinator's
		// usage (spec.md §4.7); nothing further to apply without a
		// resolved edit.
		_ = lens

	case MethodSemanticTokensRange:
		var tokens struct {
			Data []uint32 `json:"data"`
		}
		if err := json.Unmarshal(raw, &tokens); err != nil {
			return err
		}
		if len(tokens.Data) >= 2 {
			deltaStart, length := int(tokens.Data[1]), 0
			if len(tokens.Data) >= 3 {
				length = int(tokens.Data[2])
			}
			s.setHover(req.url, func(hover *windowHover) {
				runes := []rune(hover.line)
				end := deltaStart + length
				if deltaStart < 0 {
					deltaStart = 0
				}
				if end > len(runes) {
					end = len(runes)
				}
				if deltaStart < end {
					hover.token = string(runes[deltaStart:end])
				}
			})
		}
	}
	return nil
}

// lspNotification applies one server notification (spec.md §4.6/§4.7),
// decoding via lspclient.DecodeNotificationParams where the wire shape
// is an unambiguous concrete type and type-switching on the result.
func (s *Server) lspNotification(client, method string, raw json.RawMessage) error {
	if method == "$/progress" {
		return s.applyProgress(client, raw)
	}

	decoded, err := lspclient.DecodeNotificationParams(lspclient.Message{Method: method, Params: raw})
	if err != nil {
		return err
	}
	switch p := decoded.(type) {
	case protocol.LogMessageParams:
		s.output = fmt.Sprintf("[%d] %s", p.Type, p.Message)

	case protocol.ShowMessageParams:
		s.output = fmt.Sprintf("[%d] %s", p.Type, p.Message)

	case protocol.PublishDiagnosticsParams:
		path := strings.TrimPrefix(string(p.URI), "file://")
		var lines []string
		for i, d := range p.Diagnostics {
			if i == 5 {
				break
			}
			severity := 0
			if d.Severity != nil {
				severity = int(*d.Severity)
			}
			msg := strings.SplitN(d.Message, "\n", 2)[0]
			lines = append(lines, fmt.Sprintf("%s:%d: [%d] %s", path, d.Range.Start.Line+1, severity, msg))
		}
		s.diags[path] = lines

	default:
		// Unrecognized method: logged, not acted on (spec.md §4.6).
		logging.Debug("bridge: unhandled notification %s from %s", method, client)
	}
	return nil
}

func (s *Server) applyProgress(client string, raw json.RawMessage) error {
	var p struct {
		Token interface{}     `json:"token"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	key := progressKey(client, p.Token)

	var kind struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(p.Value, &kind); err != nil {
		return err
	}
	switch kind.Kind {
	case "begin":
		var v struct {
			Title      string  `json:"title"`
			Message    string  `json:"message"`
			Percentage *uint32 `json:"percentage"`
		}
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		s.progress[key] = Progress{Name: key, Percentage: v.Percentage, Message: v.Message, Title: v.Title}
	case "report":
		var v struct {
			Message    string  `json:"message"`
			Percentage *uint32 `json:"percentage"`
		}
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		if existing, ok := s.progress[key]; ok {
			existing.Message = v.Message
			existing.Percentage = v.Percentage
			s.progress[key] = existing
		}
	case "end":
		delete(s.progress, key)
	}
	return nil
}

func (s *Server) applyTextEditsByURL(url string, edits []TextEdit) error {
	sw, err := s.getSWByURL(url)
	if err != nil {
		return err
	}
	return ApplyTextEdits(sw.w, edits)
}

func (s *Server) applyWorkspaceEdit(edit WorkspaceEdit) error {
	return ApplyWorkspaceEdit(func(uri string) (*win.Win, error) {
		sw, err := s.getSWByURL(uri)
		if err != nil {
			return nil, err
		}
		return sw.w, nil
	}, edit)
}

// setFocus handles an editor "focus" log record: refreshes the
// current document, installs a fresh windowHover, and fans out the
// hover/codeAction/completion/semanticTokens/signatureHelp/codeLens
// requests (spec.md §4.7 point 1).
func (s *Server) setFocus(name string) error {
	s.focus = name

	sw, err := s.getSWByName(name)
	if err != nil {
		return err
	}
	clientName := sw.client
	url := sw.url
	wid := sw.w.ID

	tdpp, err := sw.textDocPos()
	if err != nil {
		return err
	}
	line, err := sw.line()
	if err != nil {
		return err
	}

	if err := s.didChange(wid); err != nil {
		return err
	}

	s.currentHover = &windowHover{clientName: clientName, url: url, line: line}

	rng := Range{Start: tdpp.Position, End: tdpp.Position}
	textDocument := TextDocumentIdentifier{URI: protocolDocumentURI(url)}

	if _, err := s.sendRequest(clientName, MethodHover, url, hoverParams{tdpp}, new(json.RawMessage)); err != nil {
		return err
	}
	if _, err := s.sendRequest(clientName, MethodCodeAction, url, codeActionParams{
		TextDocument: textDocument,
		Range:        rng,
	}, new(json.RawMessage)); err != nil {
		return err
	}
	if _, err := s.sendRequest(clientName, MethodCompletion, url, completionParams{textDocumentPositionParams: tdpp}, new(json.RawMessage)); err != nil {
		return err
	}
	if _, err := s.sendRequest(clientName, MethodSemanticTokensRange, url, semanticTokensRangeParams{
		TextDocument: textDocument,
		Range:        rng,
	}, new(json.RawMessage)); err != nil {
		return err
	}
	if _, err := s.sendRequest(clientName, MethodSignatureHelp, url, signatureHelpParams{tdpp}, new(json.RawMessage)); err != nil {
		return err
	}
	if _, err := s.sendRequest(clientName, MethodCodeLens, url, codeLensParams{TextDocument: textDocument}, new(json.RawMessage)); err != nil {
		return err
	}
	return nil
}

// runEvent dispatches a clicked tag word ("definition", "references",
// "symbols", "impl", "typedef") to its LSP request (spec.md §4.3).
func (s *Server) runEvent(text string, wid int) error {
	if err := s.didChange(wid); err != nil {
		return err
	}
	sw, ok := s.wins[wid]
	if !ok {
		return nil
	}
	tdpp, err := sw.textDocPos()
	if err != nil {
		return err
	}
	textDocument := TextDocumentIdentifier{URI: protocolDocumentURI(sw.url)}

	switch text {
	case "definition":
		_, err = s.sendRequest(sw.client, MethodDefinition, sw.url, tdpp, new(json.RawMessage))
	case "references":
		_, err = s.sendRequest(sw.client, MethodReferences, sw.url, referenceParams{
			textDocumentPositionParams: tdpp,
			Context:                    referenceContext{IncludeDeclaration: true},
		}, new(json.RawMessage))
	case "symbols":
		_, err = s.sendRequest(sw.client, MethodDocumentSymbol, sw.url, documentSymbolParams{TextDocument: textDocument}, new(json.RawMessage))
	case "impl":
		_, err = s.sendRequest(sw.client, MethodImplementation, sw.url, tdpp, new(json.RawMessage))
	case "typedef":
		_, err = s.sendRequest(sw.client, MethodTypeDefinition, sw.url, tdpp, new(json.RawMessage))
	}
	return err
}

func renderDocumentSymbols(syms []documentSymbol, parents []string) []string {
	var out []string
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].Range != nil && syms[j].Range != nil {
			return syms[i].Range.Start.Line < syms[j].Range.Start.Line
		}
		return false
	})
	for _, sym := range syms {
		container := strings.Join(parents, "::")
		loc := ""
		switch {
		case sym.Location != nil:
			loc = locationToPlumb(*sym.Location)
		case sym.Range != nil:
			loc = fmt.Sprintf("?:%d", sym.Range.Start.Line+1)
		}
		if container != "" {
			container += "::"
		}
		out = append(out, fmt.Sprintf("%s%s (%d): %s", container, sym.Name, sym.Kind, loc))
		if len(sym.Children) > 0 {
			out = append(out, renderDocumentSymbols(sym.Children, append(parents, sym.Name))...)
		}
	}
	return out
}
