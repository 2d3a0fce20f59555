package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetHoverIgnoresMismatchedURL(t *testing.T) {
	s := &Server{currentHover: &windowHover{url: "file:///a.go", hover: "original"}}
	s.setHover("file:///b.go", func(h *windowHover) { h.hover = "changed" })
	require.Equal(t, "original", s.currentHover.hover)
}

func TestSetHoverMergesCodeActionsAndFiltersCompletionsByToken(t *testing.T) {
	s := &Server{currentHover: &windowHover{url: "file:///a.go"}}

	s.setHover("file:///a.go", func(h *windowHover) {
		h.codeActions = []codeActionOrCommand{{Title: "Organize imports"}}
		h.completion = []completionItem{
			{Label: "fmt.Println"},
			{Label: "os.Exit"},
		}
		h.token = "fmt"
	})

	require.Len(t, s.currentHover.actions, 2)
	require.Equal(t, actionCommand, s.currentHover.actions[0].kind)
	require.Equal(t, actionCompletion, s.currentHover.actions[1].kind)
	require.Equal(t, "fmt.Println", s.currentHover.actions[1].completion.Label)
	require.Contains(t, s.currentHover.body, "[Organize imports]")
	require.Contains(t, s.currentHover.body, "[insert] fmt.Println:")
}

func TestSetHoverCapsCompletionActionsAtTen(t *testing.T) {
	s := &Server{currentHover: &windowHover{url: "file:///a.go"}}

	var items []completionItem
	for i := 0; i < 20; i++ {
		items = append(items, completionItem{Label: "match"})
	}

	s.setHover("file:///a.go", func(h *windowHover) {
		h.completion = items
		h.token = "match"
	})

	require.Len(t, s.currentHover.actions, maxCompletionActions)
}

func TestSetHoverAppendsSentinelActionAddr(t *testing.T) {
	s := &Server{currentHover: &windowHover{url: "file:///a.go"}}
	s.setHover("file:///a.go", func(h *windowHover) {
		h.codeActions = []codeActionOrCommand{{Title: "Fix"}}
	})

	addrs := s.currentHover.actionAddrs
	require.NotEmpty(t, addrs)
	require.Equal(t, -1, addrs[len(addrs)-1].idx)
}
