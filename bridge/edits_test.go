package bridge

import (
	"errors"
	"testing"

	"github.com/acmelink/acmelink/win"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestStripSnippetRemovesPlaceholdersAndFinalTabstop(t *testing.T) {
	require.Equal(t, "foo()", stripSnippet("foo(${1:arg})"))
	require.Equal(t, "done", stripSnippet("done$0"))
	require.Equal(t, "plain text", stripSnippet("plain text"))
}

func TestSpansWholeDocumentRequiresZeroStart(t *testing.T) {
	body := []byte("line1\nline2\nline3\n")
	e := protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: 1, Character: 0},
			End:   protocol.Position{Line: 3, Character: 0},
		},
	}
	require.False(t, spansWholeDocument(e, body))
}

func TestSpansWholeDocumentTrueWhenEndReachesEOF(t *testing.T) {
	body := []byte("line1\nline2\n")
	idx := win.NewNlOffsets(body)
	e := protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 2, Character: 0},
		},
	}
	require.Equal(t, idx.Len(), idx.LineToOffset(2, 0))
	require.True(t, spansWholeDocument(e, body))
}

func TestSortEditsDescendingOrdersByStartOffsetDescending(t *testing.T) {
	body := []byte("aaa\nbbb\nccc\n")
	idx := win.NewNlOffsets(body)
	edits := []protocol.TextEdit{
		{Range: protocol.Range{Start: protocol.Position{Line: 0, Character: 0}}},
		{Range: protocol.Range{Start: protocol.Position{Line: 2, Character: 0}}},
		{Range: protocol.Range{Start: protocol.Position{Line: 1, Character: 0}}},
	}

	sortEditsDescending(edits, idx)

	require.Equal(t, uint32(2), edits[0].Range.Start.Line)
	require.Equal(t, uint32(1), edits[1].Range.Start.Line)
	require.Equal(t, uint32(0), edits[2].Range.Start.Line)
}

func TestApplyWorkspaceEditPropagatesResolveError(t *testing.T) {
	wantErr := errors.New("no such window")
	edit := WorkspaceEdit{Changes: map[string][]protocol.TextEdit{
		"file:///a.go": {{NewText: "x"}},
	}}

	err := ApplyWorkspaceEdit(func(uri string) (*win.Win, error) {
		return nil, wantErr
	}, edit)

	require.ErrorIs(t, err, wantErr)
}

func TestApplyWorkspaceEditSkipsDocumentChangesWithoutURI(t *testing.T) {
	called := false
	edit := WorkspaceEdit{DocumentChanges: []TextDocumentEdit{{}}}

	err := ApplyWorkspaceEdit(func(uri string) (*win.Win, error) {
		called = true
		return nil, nil
	}, edit)

	require.NoError(t, err)
	require.False(t, called)
}
