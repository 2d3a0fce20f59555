package p9

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaceExplicit(t *testing.T) {
	t.Setenv("NAMESPACE", "/custom/ns")
	require.Equal(t, "/custom/ns", Namespace())
}

func TestNamespaceFromDisplay(t *testing.T) {
	os.Unsetenv("NAMESPACE")
	t.Setenv("USER", "alice")
	t.Setenv("DISPLAY", "myhost:10.0")
	require.Equal(t, "/tmp/ns.alice.myhost:10", Namespace())
}

func TestNamespaceDefaultDisplay(t *testing.T) {
	os.Unsetenv("NAMESPACE")
	os.Unsetenv("DISPLAY")
	t.Setenv("USER", "bob")
	require.Equal(t, "/tmp/ns.bob.:0", Namespace())
}
