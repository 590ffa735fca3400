package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10000, cfg.MaxWSConnections)
	assert.Equal(t, "*", cfg.CORSAllowedOrigins)
	assert.Equal(t, 20, cfg.DBMaxConnections())
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://x:y@db:5432/z")
	t.Setenv("DB_MAX_CONNECTIONS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "postgres://x:y@db:5432/z", cfg.DatabaseURL())
	assert.Equal(t, 5, cfg.DBMaxConnections())
	assert.Equal(t, "https://app.example.com", cfg.CORSAllowedOrigins)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/api.yaml"
	require.NoError(t, os.WriteFile(path, []byte("server_addr: \":7070\"\nmax_ws_connections: 42\n"), 0644))
	t.Setenv("CONFIG_PATH", path)

	cfg := Load()
	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.Equal(t, 42, cfg.MaxWSConnections)
}
