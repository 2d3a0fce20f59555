package bridge

import (
	"encoding/json"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LSP method names the coordinator issues or handles (spec.md §4.6/§4.7).
const (
	MethodInitialize         = "initialize"
	MethodInitialized        = "initialized"
	MethodDidOpen            = "textDocument/didOpen"
	MethodDidChange          = "textDocument/didChange"
	MethodDidClose           = "textDocument/didClose"
	MethodDidSave            = "textDocument/didSave"
	MethodHover              = "textDocument/hover"
	MethodCodeAction         = "textDocument/codeAction"
	MethodCodeActionResolve  = "codeAction/resolve"
	MethodCompletion         = "textDocument/completion"
	MethodSignatureHelp      = "textDocument/signatureHelp"
	MethodCodeLens           = "textDocument/codeLens"
	MethodCodeLensResolve    = "codeLens/resolve"
	MethodDefinition         = "textDocument/definition"
	MethodReferences         = "textDocument/references"
	MethodDocumentSymbol     = "textDocument/documentSymbol"
	MethodImplementation     = "textDocument/implementation"
	MethodTypeDefinition     = "textDocument/typeDefinition"
	MethodFormatting         = "textDocument/formatting"
	MethodSemanticTokensRange = "textDocument/semanticTokens/range"
	MethodExecuteCommand      = "workspace/executeCommand"
)

// Several LSP response shapes are tagged unions (Hover.contents,
// CompletionItem.documentation, CodeAction-vs-Command,
// WorkspaceEdit.documentChanges) that protocol_3_16 types them as
// interface{}/any, which encoding/json cannot unmarshal into a
// concrete type without help. Plain, unambiguous shapes (Position,
// Range, TextEdit, Diagnostic, Location, TextDocumentIdentifier) are
// aliased straight onto protocol_3_16; Command is a local struct (see
// below), and the union shapes get a narrow local type decoded by
// hand, the same approach taken for WorkspaceEdit in edits.go.
type (
	Position               = protocol.Position
	Range                  = protocol.Range
	TextEdit               = protocol.TextEdit
	Diagnostic             = protocol.Diagnostic
	Location               = protocol.Location
	TextDocumentIdentifier = protocol.TextDocumentIdentifier
)

// Command mirrors LSP's flat Command shape (title, command id,
// arguments); kept local since protocol_3_16's exact field tags for it
// were not confirmed in any grounding source available here.
type Command struct {
	Title     string            `json:"title"`
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// markupOrMarkedString decodes a Hover.contents value, which is a
// MarkupContent object, a single MarkedString, or an array of
// MarkedStrings. It only ever needs flattened text, per spec.md §4.7.
func markupOrMarkedString(raw json.RawMessage) string {
	var markup struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &markup); err == nil && markup.Value != "" {
		return markup.Value
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var langString struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &langString); err == nil && langString.Value != "" {
		return langString.Value
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			if s := markupOrMarkedString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return joinNonEmpty(parts)
	}
	return ""
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

// hoverResult is the local decode target for a textDocument/hover
// response.
type hoverResult struct {
	Contents json.RawMessage `json:"contents"`
}

// completionItem mirrors the flat fields of LSP's CompletionItem; the
// union-typed documentation field is decoded separately only when
// needed (never, per spec.md §4.7 — only label/filterText/detail/kind/
// deprecated/textEdit are surfaced).
type completionItem struct {
	Label            string          `json:"label"`
	FilterText       string          `json:"filterText"`
	Detail           string          `json:"detail"`
	Kind             *int            `json:"kind"`
	Deprecated       bool            `json:"deprecated"`
	InsertTextFormat *int            `json:"insertTextFormat"`
	TextEdit         json.RawMessage `json:"textEdit"`
	InsertText       string          `json:"insertText"`
}

const insertTextFormatSnippet = 2

func (c completionItem) filter() string {
	if c.FilterText != "" {
		return c.FilterText
	}
	return c.Label
}

// completionResponse decodes either a bare array or a CompletionList.
type completionResponse struct {
	Items        []completionItem `json:"items"`
	IsIncomplete bool             `json:"isIncomplete"`
}

func decodeCompletionResponse(raw json.RawMessage) ([]completionItem, error) {
	var list completionResponse
	if err := json.Unmarshal(raw, &list); err == nil && list.Items != nil {
		return list.Items, nil
	}
	var items []completionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// command, if present, is an object; Command.command (the older,
// bare-command shape) is a string. codeActionOrCommand distinguishes
// the two on decode.
type codeActionOrCommand struct {
	IsCommand bool

	// Command form.
	Title     string            `json:"title"`
	CommandID string            `json:"-"`
	Arguments []json.RawMessage `json:"-"`

	// CodeAction form.
	Kind       string          `json:"-"`
	Edit       json.RawMessage `json:"-"`
	Command    *codeActionOrCommand
	Diagnostics []Diagnostic   `json:"-"`
}

func decodeCodeActionResponse(raw json.RawMessage) ([]codeActionOrCommand, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make([]codeActionOrCommand, 0, len(entries))
	for _, entry := range entries {
		var probe struct {
			Title     string            `json:"title"`
			Command   json.RawMessage   `json:"command"`
			Arguments []json.RawMessage `json:"arguments"`
			Kind      string            `json:"kind"`
			Edit      json.RawMessage   `json:"edit"`
			Diagnostics []Diagnostic    `json:"diagnostics"`
		}
		if err := json.Unmarshal(entry, &probe); err != nil {
			return nil, err
		}

		// A bare Command has "command" as a JSON string; a CodeAction's
		// optional nested Command is a JSON object. Anything with
		// "kind"/"edit"/"diagnostics" is unambiguously a CodeAction.
		var commandIsString bool
		if len(probe.Command) > 0 && probe.Command[0] == '"' {
			commandIsString = true
		}
		if commandIsString && probe.Kind == "" && len(probe.Edit) == 0 {
			var id string
			_ = json.Unmarshal(probe.Command, &id)
			out = append(out, codeActionOrCommand{
				IsCommand: true,
				Title:     probe.Title,
				CommandID: id,
				Arguments: probe.Arguments,
			})
			continue
		}

		action := codeActionOrCommand{
			Title:       probe.Title,
			Kind:        probe.Kind,
			Edit:        probe.Edit,
			Diagnostics: probe.Diagnostics,
		}
		if len(probe.Command) > 0 && !commandIsString {
			var nested struct {
				Title     string            `json:"title"`
				Command   string            `json:"command"`
				Arguments []json.RawMessage `json:"arguments"`
			}
			if err := json.Unmarshal(probe.Command, &nested); err == nil {
				action.Command = &codeActionOrCommand{
					IsCommand: true,
					Title:     nested.Title,
					CommandID: nested.Command,
					Arguments: nested.Arguments,
				}
			}
		}
		out = append(out, action)
	}
	return out, nil
}

// signatureHelpResult decodes only what spec.md §4.7 surfaces: the
// active signature's label and documentation text.
type signatureHelpResult struct {
	ActiveSignature *int `json:"activeSignature"`
	Signatures      []struct {
		Label         string          `json:"label"`
		Documentation json.RawMessage `json:"documentation"`
	} `json:"signatures"`
}

func (s signatureHelpResult) activeText() string {
	idx := 0
	if s.ActiveSignature != nil {
		idx = *s.ActiveSignature
	}
	if idx < 0 || idx >= len(s.Signatures) {
		return ""
	}
	sig := s.Signatures[idx]
	text := sig.Label
	if len(sig.Documentation) > 0 {
		if doc := markupOrMarkedString(sig.Documentation); doc != "" {
			text += "\n" + doc
		}
	}
	return text
}

// codeLens mirrors the flat fields of LSP's CodeLens.
type codeLens struct {
	Range   Range           `json:"range"`
	Command *Command        `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// documentSymbol covers both the flat (SymbolInformation) and nested
// (DocumentSymbol) document-symbol response shapes.
type documentSymbol struct {
	Name          string           `json:"name"`
	Kind          int              `json:"kind"`
	ContainerName string           `json:"containerName"`
	Location      *Location        `json:"location"`
	Range         *Range           `json:"range"`
	Children      []documentSymbol `json:"children"`
}

// decodeGotoResponse decodes a definition/implementation/typeDefinition
// result: a single Location, a Location array, or a LocationLink
// array (only the target range/uri are used).
func decodeGotoResponse(raw json.RawMessage) ([]Location, error) {
	var single Location
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []Location{single}, nil
	}
	var locs []Location
	// A LocationLink array also decodes into []Location, but with empty
	// URIs; only accept the result when it carries a real uri.
	if err := json.Unmarshal(raw, &locs); err == nil && (len(locs) == 0 || locs[0].URI != "") {
		return locs, nil
	}
	var links []struct {
		TargetURI   protocol.DocumentUri `json:"targetUri"`
		TargetRange Range                `json:"targetRange"`
	}
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, err
	}
	out := make([]Location, len(links))
	for i, l := range links {
		out[i] = Location{URI: l.TargetURI, Range: l.TargetRange}
	}
	return out, nil
}

// serverCapabilities only probes presence of the handful of provider
// capabilities spec.md §4.4/§4.7 gate window-row verbs and
// format-on-put on; each provider field is a `bool | Options` union in
// the wire protocol, so presence (non-null) is all that's decoded.
type serverCapabilities struct {
	DefinitionProvider            json.RawMessage `json:"definitionProvider"`
	ImplementationProvider        json.RawMessage `json:"implementationProvider"`
	ReferencesProvider            json.RawMessage `json:"referencesProvider"`
	DocumentSymbolProvider        json.RawMessage `json:"documentSymbolProvider"`
	TypeDefinitionProvider        json.RawMessage `json:"typeDefinitionProvider"`
	DocumentFormattingProvider    json.RawMessage `json:"documentFormattingProvider"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null" && string(raw) != "false"
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}
