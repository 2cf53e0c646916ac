package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "leapcurate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("backend", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.Int("port", 0, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	defer ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, DefaultTimeout, cfg.Backend.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Poll.Queue)
	assert.Equal(t, 2*time.Second, cfg.Poll.Batch)
	assert.Equal(t, "TB", cfg.Layout.Orientation)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "reject", cfg.Duplicates)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	defer ResetConfig()

	writeConfig(t, dir, `
backend:
  url: http://file:9000
  timeout: 5s
poll:
  batch: 10s
server:
  port: 9100
root_label: HR
`)
	t.Setenv("LEAPCURATE_BACKEND__URL", "http://env:9000")
	t.Setenv("LEAPCURATE_ROOT_LABEL", "People")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--backend", "http://flag:9000"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, "http://flag:9000", cfg.Backend.URL, "flag beats env")
	assert.Equal(t, "People", cfg.RootLabel, "env beats file")
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout, "file beats default")
	assert.Equal(t, 10*time.Second, cfg.Poll.Batch)
	assert.Equal(t, 9100, cfg.Server.Port, "unchanged flag does not override file")
	assert.Equal(t, 30*time.Second, cfg.Poll.Taxonomy, "default survives")
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeConfig(t, root, `
coverage:
  dimensions_file: dims.yaml
`)
	t.Chdir(nested)
	defer ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "leapcurate.yaml"), GetConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "dims.yaml"), cfg.Coverage.DimensionsFile)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	defer ResetConfig()

	other := t.TempDir()
	path := filepath.Join(other, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layout:\n  orientation: lr\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "LR", cfg.Layout.Orientation)
	assert.Equal(t, other, cfg.ProjectRoot)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad output", body: "output: yaml\n", wantErr: "output"},
		{name: "bad duplicates", body: "duplicates: merge\n", wantErr: "duplicates"},
		{name: "bad orientation", body: "layout:\n  orientation: RL\n", wantErr: "layout.orientation"},
		{name: "bad url", body: "backend:\n  url: not a url\n", wantErr: "backend.url"},
		{name: "zero node width", body: "layout:\n  node_width: 0\n", wantErr: "layout.node_width"},
		{name: "nameless dimension", body: "coverage:\n  dimensions:\n    - count: 3\n", wantErr: "coverage.dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			defer ResetConfig()
			writeConfig(t, dir, tt.body)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	defer ResetConfig()

	_, err := LoadConfig("does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestGetLogger_Fallback(t *testing.T) {
	l := GetLogger(context.Background())
	require.NotNil(t, l)

	cfg := &Config{Verbose: true}
	custom := NewLogger(cfg, os.Stderr)
	ctx := context.WithValue(context.Background(), LoggerKey(), custom)
	assert.Same(t, custom, GetLogger(ctx))
	assert.True(t, custom.Enabled(ctx, -4))
}
