package lspclient

import (
	"encoding/json"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DecodeNotificationParams unmarshals a KindNotification Message's raw
// params into the protocol type matching its method, returning an
// interface{} the caller type-switches on. Unrecognized methods
// return the raw json.RawMessage unchanged (server notifications
// outside the enumerated set are logged, not acted on).
func DecodeNotificationParams(msg Message) (interface{}, error) {
	switch msg.Method {
	case "textDocument/publishDiagnostics":
		var p protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("lspclient: decode %s: %w", msg.Method, err)
		}
		return p, nil
	case "window/logMessage":
		var p protocol.LogMessageParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("lspclient: decode %s: %w", msg.Method, err)
		}
		return p, nil
	case "window/showMessage":
		var p protocol.ShowMessageParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("lspclient: decode %s: %w", msg.Method, err)
		}
		return p, nil
	case "$/progress":
		var p protocol.ProgressParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("lspclient: decode %s: %w", msg.Method, err)
		}
		return p, nil
	default:
		return msg.Params, nil
	}
}

// InitializeCapabilities is the ClientCapabilities document the
// coordinator declares on startup: text-document code-action resolve
// support with the standard action-kind set (spec.md §4.7, preserved
// from the original's lsp.rs Client::new).
func InitializeCapabilities() protocol.ClientCapabilities {
	resolveProps := []string{"edit"}
	kinds := []protocol.CodeActionKind{
		"",
		protocol.CodeActionKindQuickFix,
		protocol.CodeActionKindRefactor,
		protocol.CodeActionKindRefactorExtract,
		protocol.CodeActionKindRefactorInline,
		protocol.CodeActionKindRefactorRewrite,
		protocol.CodeActionKindSource,
		protocol.CodeActionKindSourceOrganizeImports,
	}
	return protocol.ClientCapabilities{
		TextDocument: &protocol.TextDocumentClientCapabilities{
			CodeAction: &protocol.CodeActionClientCapabilities{
				ResolveSupport: &protocol.ClientCodeActionResolveOptions{
					Properties: resolveProps,
				},
				CodeActionLiteralSupport: &protocol.ClientCodeActionLiteralOptions{
					CodeActionKind: protocol.ClientCodeActionKindOptions{
						ValueSet: kinds,
					},
				},
			},
		},
	}
}
