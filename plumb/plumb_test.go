package plumb_test

import (
	"path/filepath"
	"testing"

	"github.com/acmelink/acmelink/plumb"
	"github.com/stretchr/testify/require"
)

func TestSendLocationMissingPathIsNoop(t *testing.T) {
	c := &plumb.Client{}
	err := c.SendLocation(filepath.Join(t.TempDir(), "does-not-exist.go"), 4)
	require.NoError(t, err)
}
