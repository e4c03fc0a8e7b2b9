package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  shutdown_timeout: 5s
store:
  backend: redis
  addr: "localhost:6379"
  db: 2
engine:
  node_timeout: 10s
  max_steps: 25
kb_path: "testdata/kb.json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.Addr)
	assert.Equal(t, 2, cfg.Store.DB)
	assert.Equal(t, 10*time.Second, cfg.Engine.NodeTimeout)
	assert.Equal(t, 25, cfg.Engine.MaxSteps)
	assert.Equal(t, "testdata/kb.json", cfg.KBPath)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50, cfg.Engine.MaxSteps)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("nope/config.yaml")
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [broken"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := Default()

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base
		cfg.Store.Backend = "etcd"
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite without path", func(t *testing.T) {
		cfg := base
		cfg.Store = StoreConfig{Backend: BackendSQLite}
		assert.Error(t, cfg.Validate())
	})

	t.Run("mysql without dsn", func(t *testing.T) {
		cfg := base
		cfg.Store = StoreConfig{Backend: BackendMySQL}
		assert.Error(t, cfg.Validate())
	})

	t.Run("redis without addr", func(t *testing.T) {
		cfg := base
		cfg.Store = StoreConfig{Backend: BackendRedis}
		assert.Error(t, cfg.Validate())
	})

	t.Run("memory needs nothing", func(t *testing.T) {
		cfg := base
		cfg.Store = StoreConfig{Backend: BackendMemory}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("negative max steps", func(t *testing.T) {
		cfg := base
		cfg.Engine.MaxSteps = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty addr", func(t *testing.T) {
		cfg := base
		cfg.Server.Addr = ""
		assert.Error(t, cfg.Validate())
	})
}
