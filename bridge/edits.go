package bridge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/acmelink/acmelink/win"
	"github.com/pmezard/go-difflib/difflib"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// snippetPlaceholder strips LSP snippet placeholders ("${1:name}",
// "$0") from a text edit's new_text before writing it into a plain
// editor buffer, which has no snippet-expansion concept.
var snippetPlaceholder = regexp.MustCompile(`\$\{\d+:\w+\}|\$0`)

func stripSnippet(s string) string {
	return snippetPlaceholder.ReplaceAllString(s, "")
}

// ApplyTextEdits applies a list of LSP TextEdits to the body of w, per
// spec.md §4.8.
func ApplyTextEdits(w *win.Win, edits []protocol.TextEdit) error {
	if len(edits) == 0 {
		return nil
	}

	body, err := w.ReadBody()
	if err != nil {
		return fmt.Errorf("bridge: apply edits: read body: %w", err)
	}

	if len(edits) == 1 && spansWholeDocument(edits[0], body) {
		if stripSnippet(edits[0].NewText) == string(body) {
			return nil
		}
		return applyWholeDocumentDiff(w, string(body), stripSnippet(edits[0].NewText))
	}

	return applyEditsByAddress(w, body, edits)
}

func spansWholeDocument(e protocol.TextEdit, body []byte) bool {
	if e.Range.Start.Line != 0 || e.Range.Start.Character != 0 {
		return false
	}
	idx := win.NewNlOffsets(body)
	endOffset := idx.LineToOffset(int(e.Range.End.Line), int(e.Range.End.Character))
	return endOffset >= idx.Len()
}

// applyWholeDocumentDiff applies a full-document replace as a minimal
// sequence of line-address writes, so the editor doesn't scroll to EOF
// on a whole-file reformat (spec.md §4.7's Put / §4.8).
func applyWholeDocumentDiff(w *win.Win, oldText, newText string) error {
	oldLines := difflib.SplitLines(oldText)
	newLines := difflib.SplitLines(newText)
	matcher := difflib.NewMatcher(oldLines, newLines)

	// Opcodes address lines of the old text, so they are applied last
	// to first: each write then leaves the lines before it unmoved.
	ops := matcher.GetOpCodes()
	for k := len(ops) - 1; k >= 0; k-- {
		op := ops[k]
		switch op.Tag {
		case 'e':
			continue
		case 'd':
			if err := w.SetAddr(fmt.Sprintf("%d,%d", op.I1+1, op.I2)); err != nil {
				return err
			}
			if _, err := w.Data.Write(nil); err != nil {
				return err
			}
		case 'i':
			// Insertion point between old lines I1 and I1+1: address
			// the end of line I1 by character offset, so the new
			// lines land without disturbing the existing line range.
			if err := w.SetAddr(fmt.Sprintf("%d+#0", op.I1)); err != nil {
				return err
			}
			if _, err := w.Data.Write([]byte(strings.Join(newLines[op.J1:op.J2], ""))); err != nil {
				return err
			}
		case 'r':
			if err := w.SetAddr(fmt.Sprintf("%d,%d", op.I1+1, op.I2)); err != nil {
				return err
			}
			if _, err := w.Data.Write([]byte(strings.Join(newLines[op.J1:op.J2], ""))); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyEditsByAddress writes nomark/mark to group the edits into a
// single undo step, then applies each edit in reverse document order
// so earlier offsets stay valid as later edits are written.
func applyEditsByAddress(w *win.Win, body []byte, edits []protocol.TextEdit) error {
	idx := win.NewNlOffsets(body)

	if err := w.Ctrl("nomark"); err != nil {
		return err
	}
	if err := w.Ctrl("mark"); err != nil {
		return err
	}

	ordered := make([]protocol.TextEdit, len(edits))
	copy(ordered, edits)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	sortEditsDescending(ordered, idx)

	for _, e := range ordered {
		soff := idx.LineToOffset(int(e.Range.Start.Line), int(e.Range.Start.Character))
		eoff := idx.LineToOffset(int(e.Range.End.Line), int(e.Range.End.Character))
		if err := w.SetAddr(fmt.Sprintf("#%d,#%d", soff, eoff)); err != nil {
			return err
		}
		if _, err := w.Data.Write([]byte(stripSnippet(e.NewText))); err != nil {
			return err
		}
	}
	return nil
}

// sortEditsDescending orders edits by start offset descending so that
// writing them in order never invalidates an offset computed against
// the original, unedited body.
func sortEditsDescending(edits []protocol.TextEdit, idx *win.NlOffsets) {
	offsetOf := func(e protocol.TextEdit) int {
		return idx.LineToOffset(int(e.Range.Start.Line), int(e.Range.Start.Character))
	}
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && offsetOf(edits[j]) > offsetOf(edits[j-1]); j-- {
			edits[j], edits[j-1] = edits[j-1], edits[j]
		}
	}
}

// WorkspaceEdit mirrors the wire shape of LSP's WorkspaceEdit, kept as
// a package-local plain-JSON struct rather than reusing
// protocol_3_16's version: the real type's documentChanges field is a
// tagged union of text-document edits and resource operations
// (create/rename/delete), and spec.md only ever needs the
// TextDocumentEdit arm of it (filtering the rest), which decodes
// cleanly against this narrower shape.
type WorkspaceEdit struct {
	Changes         map[string][]protocol.TextEdit `json:"changes,omitempty"`
	DocumentChanges []TextDocumentEdit             `json:"documentChanges,omitempty"`
}

// TextDocumentEdit is the one documentChanges arm spec.md applies.
// Resource operations (file create/rename/delete) have no
// textDocument.uri, decode with an empty URI and are skipped. Annotated
// edits decode as plain TextEdits; their annotationId is dropped.
type TextDocumentEdit struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Edits []protocol.TextEdit `json:"edits"`
}

// ApplyWorkspaceEdit routes a WorkspaceEdit's per-document edits
// through ApplyTextEdits. Only the DocumentChanges/Edits variant and
// the plain Changes map are supported; resource operations are skipped,
// and annotated edits are applied like plain edits, with no filtering
// on their annotation.
func ApplyWorkspaceEdit(resolve func(uri string) (*win.Win, error), edit WorkspaceEdit) error {
	if edit.Changes != nil {
		for uri, edits := range edit.Changes {
			w, err := resolve(uri)
			if err != nil {
				return err
			}
			if err := ApplyTextEdits(w, edits); err != nil {
				return err
			}
		}
		return nil
	}
	for _, dc := range edit.DocumentChanges {
		if dc.TextDocument.URI == "" {
			continue
		}
		w, err := resolve(dc.TextDocument.URI)
		if err != nil {
			return err
		}
		if err := ApplyTextEdits(w, dc.Edits); err != nil {
			return err
		}
	}
	return nil
}
