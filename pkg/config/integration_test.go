package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/renderer"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
)

// TestLoadYAMLIntoParseConfigWiresSamplerAndLightStrategyGroups round-trips
// a YAML document through LoadYAML and pkg/renderer.ParseConfig, checking
// the sampler.*, lightstrategy.* and path.* groups land on the fields that
// actually drive an engine's sampler/strategy construction, not just on
// ParsedConfig.Raw.
func TestLoadYAMLIntoParseConfigWiresSamplerAndLightStrategyGroups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yaml")
	content := `
lightstrategy:
  type: POWER
sampler:
  type: METROPOLIS
  metropolis:
    largestepprob: 0.3
path:
  pathdepth:
    total: 8
  russianroulette:
    depth: 2
    cap: 0.15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	props, err := LoadYAML(path)
	require.NoError(t, err)

	cfg, err := renderer.ParseConfig(props)
	require.NoError(t, err)

	assert.Equal(t, lightstrategy.Power, cfg.LightStrategyType)
	assert.Equal(t, sampler.Metropolis, cfg.SamplerType)
	assert.Equal(t, 0.3, cfg.Metropolis.LargeMutationProbability)
	assert.Equal(t, 8, cfg.Path.MaxDepth)
	assert.Equal(t, 2, cfg.Path.RRDepth)
	assert.Equal(t, 0.15, cfg.Path.RRCap)
}
