package flags

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruteri/storageitem-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args []string, action func(cCtx *cli.Context)) {
	t.Helper()

	app := &cli.App{
		Name:  "test",
		Flags: append(UploadFlags, CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			action(cCtx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
}

func loadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	var err error
	runApp(t, args, func(cCtx *cli.Context) {
		cfg, err = LoadConfig(cCtx)
	})
	return cfg, err
}

func TestLoadConfig_FlagsOnly(t *testing.T) {
	cfg, err := loadConfig(t,
		"--storage", "local=file:///tmp/a",
		"--storage", "local=file:///tmp/b",
		"--storage", "cdn=s3://bucket",
		"--default-storage", "cdn",
		"--max-file-size", "2048",
		"--path-strategy", "dated",
	)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"local": {"file:///tmp/a", "file:///tmp/b"},
		"cdn":   {"s3://bucket"},
	}, cfg.StorageURIs())
	assert.Equal(t, "cdn", cfg.DefaultStorage)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, config.PathStrategyDated, cfg.PathStrategy)
	assert.Equal(t, config.DefaultUploadPath, cfg.UploadPath)
	assert.Equal(t, int64(config.DefaultMaxUploadBytes), cfg.MaxUploadBytes)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_storage: local
upload_path: /from/file
max_upload_bytes: 100
storages:
  local: file:///from-file
  archive: [file:///a, file:///b]
`), 0o600))

	cfg, err := loadConfig(t, "--config", path, "--storage", "local=file:///from-flag", "--max-upload-bytes", "200")
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.UploadPath, "unset flags keep file values")
	assert.Equal(t, int64(200), cfg.MaxUploadBytes)
	assert.Equal(t, config.Locations{"file:///from-flag"}, cfg.Storages["local"])
	assert.Equal(t, config.Locations{"file:///a", "file:///b"}, cfg.Storages["archive"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string][]string{
		"no storage":        nil,
		"bad storage flag":  {"--storage", "no-uri"},
		"undefined default": {"--storage", "local=file:///tmp", "--default-storage", "s3"},
		"relative path":     {"--storage", "local=file:///tmp", "--upload-path", "upload"},
		"missing file":      {"--config", "/nonexistent/config.yaml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(t, args...)
			require.Error(t, err)
		})
	}
}

func TestConfigureServer(t *testing.T) {
	runApp(t, []string{"--listen-addr", "0.0.0.0:9000", "--drain-seconds", "3", "--pprof"}, func(cCtx *cli.Context) {
		cfg := ConfigureServer(cCtx, SetupLogger(cCtx))

		assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
		assert.Equal(t, "127.0.0.1:8090", cfg.MetricsAddr)
		assert.Equal(t, 3*time.Second, cfg.DrainDuration)
		assert.True(t, cfg.EnablePprof)
		assert.NotNil(t, cfg.Log)
	})
}
