package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestServiceConfigDefaults(t *testing.T) {
	home := setup(t)
	InitConfig()

	cfg, err := ServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:2000", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(home, ".local", "share", "grove-explorer"), cfg.DataDir)
	assert.Equal(t, "private", cfg.Explorer.PrivateGroupPath)
	assert.True(t, cfg.Explorer.Local)
	assert.Empty(t, cfg.Applications)
}

func TestServiceConfigFromFileAndEnv(t *testing.T) {
	home := setup(t)
	dir := filepath.Join(home, ".config", "grove-explorer")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
timeout: 5s
debug_delay: 100ms
applications:
  - cdn_package: "@youwol/viewer"
    display_name: Viewer
    parametrizations:
      - match:
          kind: data
        parameters:
          file: rawId
`), 0644))
	t.Setenv("GROVE_EXPLORER_BACKEND_URL", "http://platform:8080")
	InitConfig()

	cfg, err := ServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://platform:8080", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Explorer.DebugDelay)

	require.Len(t, cfg.Applications, 1)
	app := cfg.Applications[0]
	assert.Equal(t, "Viewer", app.DisplayName)
	require.Len(t, app.Parametrizations, 1)
	assert.Equal(t, "data", app.Parametrizations[0].Match["kind"])
	assert.Equal(t, "rawId", app.Parametrizations[0].Parameters["file"])
}

func TestApplicationsRequirePackage(t *testing.T) {
	setup(t)
	viper.Set("applications", []map[string]any{{"display_name": "Nameless"}})
	_, err := Applications()
	assert.ErrorContains(t, err, "cdn_package")
}
