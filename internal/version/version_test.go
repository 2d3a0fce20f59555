package version_test

import (
	"testing"

	"github.com/acmelink/acmelink/internal/version"
	"github.com/stretchr/testify/require"
)

func TestGetVersionFallsBackToBuildInfo(t *testing.T) {
	v := version.GetVersion()
	require.NotEmpty(t, v)
}

func TestGetBuildInfoIncludesVersion(t *testing.T) {
	info := version.GetBuildInfo()
	require.Equal(t, version.GetVersion(), info.Version)
}
