package lspclient_test

import (
	"testing"

	"github.com/acmelink/acmelink/lspclient"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDecodeNotificationParamsPublishDiagnostics(t *testing.T) {
	msg := lspclient.Message{
		Kind:   lspclient.KindNotification,
		Method: "textDocument/publishDiagnostics",
		Params: []byte(`{"uri":"file:///a.go","diagnostics":[]}`),
	}
	got, err := lspclient.DecodeNotificationParams(msg)
	require.NoError(t, err)
	params, ok := got.(protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	require.Equal(t, protocol.DocumentUri("file:///a.go"), params.URI)
}

func TestDecodeNotificationParamsUnknownMethodPassesThrough(t *testing.T) {
	msg := lspclient.Message{
		Kind:   lspclient.KindNotification,
		Method: "experimental/whatever",
		Params: []byte(`{"foo":1}`),
	}
	got, err := lspclient.DecodeNotificationParams(msg)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestInitializeCapabilitiesIncludesQuickFix(t *testing.T) {
	caps := lspclient.InitializeCapabilities()
	require.NotNil(t, caps.TextDocument)
	require.NotNil(t, caps.TextDocument.CodeAction)
	kinds := caps.TextDocument.CodeAction.CodeActionLiteralSupport.CodeActionKind.ValueSet
	require.Contains(t, kinds, protocol.CodeActionKindQuickFix)
}
