package bridge

import (
	"encoding/json"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// protocolDocumentURI is an alias of protocol.DocumentUri, named so
// call sites read naturally; values pass to protocol_3_16 structs
// without conversion.
type protocolDocumentURI = protocol.DocumentUri

// The request/notification parameter shapes below are local, plain
// JSON structs rather than protocol_3_16 equivalents: LSP's params
// types compose optional work-done/partial-result progress tokens
// this client never sets, and several (CompletionParams, CodeLens,
// DocumentSymbolResponse) touch the same tagged-union fields flagged
// in lsptypes.go. Defining the exact wire shape locally keeps every
// field here verified against spec.md/main.rs instead of guessed.

type textDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type textDocumentItem struct {
	URI        protocolDocumentURI `json:"uri"`
	LanguageID string              `json:"languageId"`
	Version    int32               `json:"version"`
	Text       string              `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didCloseParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type didSaveParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type versionedTextDocumentIdentifier struct {
	URI     protocolDocumentURI `json:"uri"`
	Version int32               `json:"version"`
}

type textDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []textDocumentContentChangeEvent `json:"contentChanges"`
}

type hoverParams struct {
	textDocumentPositionParams
}

type codeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Only        []string     `json:"only,omitempty"`
}

type codeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      codeActionContext      `json:"context"`
}

type completionContext struct {
	TriggerKind int `json:"triggerKind"`
}

type completionParams struct {
	textDocumentPositionParams
	Context completionContext `json:"context"`
}

type signatureHelpParams struct {
	textDocumentPositionParams
}

type codeLensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type documentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type referenceParams struct {
	textDocumentPositionParams
	Context referenceContext `json:"context"`
}

type semanticTokensRangeParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
}

type formattingOptions struct {
	TabSize                uint32 `json:"tabSize"`
	InsertSpaces           bool   `json:"insertSpaces"`
	TrimTrailingWhitespace bool   `json:"trimTrailingWhitespace"`
	InsertFinalNewline     bool   `json:"insertFinalNewline"`
	TrimFinalNewlines      bool   `json:"trimFinalNewlines"`
}

type documentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      formattingOptions      `json:"options"`
}

type initializeParams struct {
	ClientInfo        *clientInfo               `json:"clientInfo,omitempty"`
	RootURI           *protocolDocumentURI      `json:"rootUri"`
	WorkspaceFolders  []workspaceFolder         `json:"workspaceFolders,omitempty"`
	Capabilities      protocol.ClientCapabilities `json:"capabilities"`
	InitializationOptions interface{}           `json:"initializationOptions,omitempty"`
}

type clientInfo struct {
	Name string `json:"name"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type initializedParams struct{}

type executeCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}
