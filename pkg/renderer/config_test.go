package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/film"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

func TestParseConfigSamplerAndLightStrategyGroups(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{
		"lightstrategy.type":                     "POWER",
		"sampler.type":                           "METROPOLIS",
		"sampler.imagesamples.enable":             "false",
		"sampler.sobol.adaptive.strength":         "0.5",
		"sampler.sobol.bucketsize":                "32",
		"sampler.metropolis.largestepprob":        "0.25",
		"sampler.metropolis.maxconsecutivereject": "100",
		"path.pathdepth.total":                    "12",
		"path.russianroulette.depth":               "3",
		"path.russianroulette.cap":                 "0.1",
		"path.clamping.variance.maxvalue":          "5",
		"tilepath.sampling.aa.size":                "4",
		"rtpathcpu.zoomphase.size":                 "16",
		"rtpathcpu.zoomphase.weight":               "2",
	})
	require.NoError(t, err)

	assert.Equal(t, lightstrategy.Power, cfg.LightStrategyType)
	assert.Equal(t, sampler.Metropolis, cfg.SamplerType)
	assert.False(t, cfg.ImageSamplesEnable)
	assert.Equal(t, 0.5, cfg.Sobol.AdaptiveStrength)
	assert.Equal(t, 32, cfg.Sobol.BucketSize)
	assert.Equal(t, 0.25, cfg.Metropolis.LargeMutationProbability)
	assert.Equal(t, 100, cfg.Metropolis.MaxRejects)
	assert.Equal(t, 12, cfg.Path.MaxDepth)
	assert.Equal(t, 3, cfg.Path.RRDepth)
	assert.Equal(t, 0.1, cfg.Path.RRCap)
	assert.Equal(t, 5.0, cfg.Path.VarianceClampMax)
	assert.Equal(t, 4, cfg.TilePath.AASize)
	assert.Equal(t, 16, cfg.Zoom.ZoomFactor)
	assert.Equal(t, 2.0, cfg.Zoom.ZoomWeight)
}

func TestParseConfigBuildsDLSCParamsForCacheStrategy(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{
		"lightstrategy.type":                                    "DLS_CACHE",
		"lightstrategy.dlscache.visibility.maxpathdepth":        "6",
		"lightstrategy.dlscache.visibility.maxsamplecount":      "50000",
		"lightstrategy.dlscache.visibility.targethitrate":       "0.9",
		"lightstrategy.dlscache.visibility.lookup.radius":       "0.25",
		"lightstrategy.dlscache.visibility.lookup.normalangle":  "60",
		"lightstrategy.dlscache.entry.warmupsamples":            "24",
		"lightstrategy.dlscache.entry.maxpasses":                "1024",
		"lightstrategy.dlscache.entry.convergencethreshold":     "0.01",
		"lightstrategy.dlscache.persistent.file":                "cache.dlsc",
		"lightstrategy.dlscache.persistent.safesave":            "true",
	})
	require.NoError(t, err)

	require.NotNil(t, cfg.DLSC)
	assert.Equal(t, 6, cfg.DLSC.Visibility.MaxPathDepth)
	assert.Equal(t, 50000, cfg.DLSC.Visibility.MaxSampleCount)
	assert.Equal(t, 0.9, cfg.DLSC.Visibility.TargetHitRate)
	assert.Equal(t, 0.25, cfg.DLSC.Visibility.LookupRadius)
	assert.InDelta(t, 0.5, cfg.DLSC.Visibility.LookupNormalCos, 1e-12) // cos 60°
	assert.Equal(t, 24, cfg.DLSC.Entry.WarmupSamples)
	assert.Equal(t, 1024, cfg.DLSC.Entry.MaxPasses)
	assert.Equal(t, 0.01, cfg.DLSC.Entry.ConvergenceThreshold)
	assert.Equal(t, "cache.dlsc", cfg.DLSC.Persistent.FileName)
	assert.True(t, cfg.DLSC.Persistent.SafeSave)

	// Other strategies leave the cache unconfigured.
	plain, err := ParseConfig(map[string]string{"lightstrategy.type": "POWER"})
	require.NoError(t, err)
	assert.Nil(t, plain.DLSC)
}

func TestParseConfigRejectsUnknownLightStrategyType(t *testing.T) {
	_, err := ParseConfig(map[string]string{"lightstrategy.type": "BOGUS"})
	assert.Error(t, err)
}

func TestParseConfigRejectsUnknownSamplerType(t *testing.T) {
	_, err := ParseConfig(map[string]string{"sampler.type": "BOGUS"})
	assert.Error(t, err)
}

func TestBuildSamplerFactoryDispatchesOnSamplerType(t *testing.T) {
	f := film.NewFilm(4, 4, film.ChannelRadiancePixelNormalized)

	cfg := DefaultConfig()
	cfg.SamplerType = sampler.Random
	factory, shared := BuildSamplerFactory(cfg, f, 4, 4, 2)
	require.NotNil(t, factory(0))
	assert.Nil(t, shared)

	cfg.SamplerType = sampler.Sobol
	factory, shared = BuildSamplerFactory(cfg, f, 4, 4, 2)
	require.NotNil(t, factory(0))
	require.NotNil(t, shared)

	cfg.SamplerType = sampler.TilePath
	factory, shared = BuildSamplerFactory(cfg, f, 4, 4, 2)
	require.NotNil(t, factory(0))
	require.NotNil(t, shared)
}

func TestApplyPathConfigUpdatesSceneBeforePreprocess(t *testing.T) {
	sc := scene.NewDefaultScene()
	sc.SamplingConfig.MaxDepth = 5
	sc.SamplingConfig.RussianRouletteMinBounces = 2

	cfg := DefaultConfig()
	cfg.LightStrategyType = lightstrategy.Uniform
	cfg.Path.MaxDepth = 9
	cfg.Path.RRCap = 0.2

	ApplyPathConfig(sc, cfg)

	assert.Equal(t, lightstrategy.Uniform, sc.LightStrategyType)
	assert.Equal(t, 9, sc.SamplingConfig.MaxDepth)
	assert.Equal(t, 0.2, sc.SamplingConfig.RussianRouletteCap)
	// RRDepth was left unset (0) in cfg.Path, so the scene's prior value
	// must survive untouched.
	assert.Equal(t, 2, sc.SamplingConfig.RussianRouletteMinBounces)

	require.NoError(t, sc.Preprocess())
	assert.NotNil(t, sc.LightStrategy)
}
