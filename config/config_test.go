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

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Server.Addr", cfg.Server.Addr, ":8080"},
		{"Server.DBType", cfg.Server.DBType, "sqlite"},
		{"Server.MaxUploadMB", cfg.Server.MaxUploadMB, int64(100)},
		{"Server.MediaTokenTTL", cfg.Server.MediaTokenTTL, 5 * time.Minute},
		{"Server.OrphanRetention", cfg.Server.OrphanRetention, 168 * time.Hour},
		{"Client.ChunkSize", cfg.Client.ChunkSize, 5},
		{"Client.Timeout", cfg.Client.Timeout, time.Duration(0)},
		{"Log.Level", cfg.Log.Level, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{"db_type", "MINIPLM_SERVER_DB_TYPE", "mysql", func(c Config) any { return c.Server.DBType }, "mysql"},
		{"client server", "MINIPLM_CLIENT_SERVER", "http://plm:9000", func(c Config) any { return c.Client.Server }, "http://plm:9000"},
		{"chunk size", "MINIPLM_CLIENT_CHUNK_SIZE", "8", func(c Config) any { return c.Client.ChunkSize }, 8},
		{"timeout", "MINIPLM_CLIENT_TIMEOUT", "30s", func(c Config) any { return c.Client.Timeout }, 30 * time.Second},
		{"signed media", "MINIPLM_SERVER_REQUIRE_SIGNED_MEDIA", "true", func(c Config) any { return c.Server.RequireSignedMedia }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv(tt.envKey, tt.envVal)
			require.NoError(t, Init(""))

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.field(cfg))
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "miniplm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  allowed_origins: ["http://localhost:3000"]
client:
  cache: /tmp/plm.db
log:
  level: debug
`), 0o644))

	require.NoError(t, Init(path))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/plm.db", cfg.Client.Cache)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Server.DBType)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	assert.Error(t, Init(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	viper.Set("server.db_type", "postgres")
	_, err := Load()
	assert.Error(t, err)

	viper.Reset()
	viper.Set("client.chunk_size", 0)
	_, err = Load()
	assert.Error(t, err)
}
