package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLFlattensNestedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yaml")
	content := `
renderengine:
  type: PATHCPU
  seed: 42
sampler:
  type: SOBOL
  sobol:
    bucketsize: 16
    adaptive:
      strength: 0.5
path:
  pathdepth:
    total: 10
batch:
  haltdebug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	props, err := LoadYAML(path)
	require.NoError(t, err)

	assert.Equal(t, "PATHCPU", props["renderengine.type"])
	assert.Equal(t, "42", props["renderengine.seed"])
	assert.Equal(t, "SOBOL", props["sampler.type"])
	assert.Equal(t, "16", props["sampler.sobol.bucketsize"])
	assert.Equal(t, "0.5", props["sampler.sobol.adaptive.strength"])
	assert.Equal(t, "10", props["path.pathdepth.total"])
	assert.Equal(t, "true", props["batch.haltdebug"])
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
