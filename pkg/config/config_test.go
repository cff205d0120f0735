package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUsesConservativeValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./data/extract", cfg.OutputBasePath)
	assert.Greater(t, cfg.RequestedNumThreads, 0)
	assert.Equal(t, 1000, cfg.SmallComponentSize)
	assert.False(t, cfg.ParseConditionals)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extract.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_path: /data/region.osm.pbf
threads: 4
small_component_size: 500
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/region.osm.pbf", cfg.InputPath)
	assert.Equal(t, 4, cfg.RequestedNumThreads)
	assert.Equal(t, 500, cfg.SmallComponentSize)
	// Fields the file doesn't mention keep Default()'s values.
	assert.Equal(t, "./data/extract", cfg.OutputBasePath)
}

func TestLoadFallsBackToNumCPUOnNonPositiveThreads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extract.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Greater(t, cfg.RequestedNumThreads, 0)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
