package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.VectorDB.Type)
	assert.Equal(t, 256, cfg.VectorDB.Dim)
	assert.Equal(t, "cosine", cfg.VectorDB.Distance)
	assert.Equal(t, "local", cfg.Embed.Provider)
	assert.Equal(t, 256, cfg.Embed.Dimensions)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 4, cfg.Analyzer.MaxWorkers)
	assert.Equal(t, 60*time.Second, cfg.Analyzer.BatchBudget)
	assert.Equal(t, 20, cfg.Analyzer.TopSections)
	assert.Equal(t, 10, cfg.Analyzer.TopSummaries)
	assert.Equal(t, 1000, cfg.Analyzer.ChunkSize)
	assert.Equal(t, 200, cfg.Analyzer.ChunkOverlap)
	assert.InDelta(t, 0.6, cfg.Analyzer.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Analyzer.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.1, cfg.Analyzer.ProximityWeight, 1e-9)
	assert.False(t, cfg.Queue.Enable)

	// 默认配置会落盘一份
	_, err = os.Stat(configPath)
	assert.NoError(t, err)
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9090
storage:
  type: minio
  endpoint: localhost:9000
  bucket: test-bucket
vectordb:
  type: faiss
  dim: 128
analyzer:
  max_workers: 2
  batch_budget: 30s
  top_sections: 5
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, "test-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "faiss", cfg.VectorDB.Type)
	assert.Equal(t, 128, cfg.VectorDB.Dim)
	assert.Equal(t, 2, cfg.Analyzer.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.Analyzer.BatchBudget)
	assert.Equal(t, 5, cfg.Analyzer.TopSections)

	// 文件未覆盖的部分保留默认值
	assert.Equal(t, "cosine", cfg.VectorDB.Distance)
	assert.Equal(t, 10, cfg.Analyzer.TopSummaries)
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Type)
}

func TestLoadAPIKeyExpansion(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embed:
  provider: remote
  api_key: ${TEST_EMBED_API_KEY}
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	t.Setenv("TEST_EMBED_API_KEY", "sk-test-123")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123", cfg.Embed.APIKey)
}

func TestLoadInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a map"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}
