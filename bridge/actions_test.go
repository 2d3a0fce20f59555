package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindRowAddrMatchesContainingRow(t *testing.T) {
	addr := []posID{{pos: 0, id: 1}, {pos: 20, id: 2}, {pos: 40, id: 0}}

	id, ok := findRowAddr(addr, 25)
	require.True(t, ok)
	require.Equal(t, 2, id)

	id, ok = findRowAddr(addr, 5)
	require.True(t, ok)
	require.Equal(t, 1, id)
}

func TestFindRowAddrSentinelNeverMatches(t *testing.T) {
	addr := []posID{{pos: 0, id: 1}, {pos: 40, id: 0}}

	_, ok := findRowAddr(addr, 45)
	require.False(t, ok)
}

func TestFindRowAddrEmpty(t *testing.T) {
	_, ok := findRowAddr(nil, 0)
	require.False(t, ok)
}

func TestFindActionAddrMatchesContainingSpan(t *testing.T) {
	addrs := []actionAddr{{pos: 0, idx: 0}, {pos: 10, idx: 1}, {pos: 20, idx: -1}}

	idx, ok := findActionAddr(addrs, 12)
	require.True(t, ok)
	require.Equal(t, 1, idx)
}

func TestFindActionAddrSentinelNeverMatches(t *testing.T) {
	addrs := []actionAddr{{pos: 0, idx: 0}, {pos: 20, idx: -1}}

	_, ok := findActionAddr(addrs, 25)
	require.False(t, ok)
}

func TestCmpLocationOrdersByURIThenPosition(t *testing.T) {
	a := Location{URI: "file:///a.go", Range: Range{Start: Position{Line: 3, Character: 0}}}
	b := Location{URI: "file:///a.go", Range: Range{Start: Position{Line: 5, Character: 0}}}
	c := Location{URI: "file:///b.go", Range: Range{Start: Position{Line: 0, Character: 0}}}

	require.Equal(t, -1, cmpLocation(a, b))
	require.Equal(t, 1, cmpLocation(b, a))
	require.Equal(t, -1, cmpLocation(a, c))
	require.Equal(t, 0, cmpLocation(a, a))
}

func TestLocationToPlumbStripsFileScheme(t *testing.T) {
	loc := Location{URI: "file:///home/user/main.go", Range: Range{Start: Position{Line: 9}}}
	require.Equal(t, "/home/user/main.go:10", locationToPlumb(loc))
}
