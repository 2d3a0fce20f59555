package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressStringWithPercentage(t *testing.T) {
	pct := uint32(42)
	p := Progress{Name: "gopls", Percentage: &pct, Message: "indexing", Title: "Loading"}
	require.Equal(t, "[42%] gopls:indexing (Loading)", p.String())
}

func TestProgressStringWithoutPercentage(t *testing.T) {
	p := Progress{Name: "gopls", Message: "indexing", Title: "Loading"}
	require.Equal(t, "[?%] gopls:indexing (Loading)", p.String())
}

func TestProgressKeyIsPerClient(t *testing.T) {
	require.Equal(t, "gopls-1", progressKey("gopls", 1))
	require.NotEqual(t, progressKey("gopls", 1), progressKey("rust-analyzer", 1))
}
