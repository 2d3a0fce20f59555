package bridge_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/acmelink/acmelink/bridge"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "acmelink.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigParsesServers(t *testing.T) {
	path := writeConfig(t, `
[servers.gopls]
files = "\\.go$"
args = ["serve"]

[servers.rust-analyzer]
executable = "rust-analyzer"
files = "\\.rs$"
actions_on_put = ["source.organizeImports"]
`)

	servers, err := bridge.LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	require.Equal(t, []string{"serve"}, servers["gopls"].Args)
	require.Equal(t, "rust-analyzer", servers["rust-analyzer"].Executable)
	require.Equal(t, []string{"source.organizeImports"}, servers["rust-analyzer"].ActionsOnPut)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := bridge.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestToClientConfigsDefaultsExecutableAndFormatOnPut(t *testing.T) {
	servers := map[string]bridge.ClientConfig{
		"gopls": {Files: `\.go$`},
	}

	out, err := bridge.ToClientConfigs(servers)
	require.NoError(t, err)
	cfg := out["gopls"]
	require.Equal(t, "gopls", cfg.Executable)
	require.True(t, cfg.FormatOnPut)
	require.True(t, cfg.Files.MatchString("main.go"))
	require.False(t, cfg.Files.MatchString("main.rs"))
}

func TestToClientConfigsInvalidFilesRegex(t *testing.T) {
	servers := map[string]bridge.ClientConfig{
		"broken": {Files: "([unterminated"},
	}
	_, err := bridge.ToClientConfigs(servers)
	require.Error(t, err)
}

func TestToClientConfigsRespectsExplicitFormatOnPut(t *testing.T) {
	off := false
	servers := map[string]bridge.ClientConfig{
		"gopls": {FormatOnPut: &off},
	}
	out, err := bridge.ToClientConfigs(servers)
	require.NoError(t, err)
	require.False(t, out["gopls"].FormatOnPut)
}
