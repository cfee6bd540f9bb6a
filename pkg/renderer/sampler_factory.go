package renderer

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// BuildSamplerFactory constructs the SamplerFactory (and any cross-worker
// SharedData it closes over) for the configured sampler.type, per spec.md
// §6's sampler.* group. Samplers that partition work across workers (Sobol,
// TilePath, RTPathCPU) share one SharedData instance built here; Random and
// Metropolis need none and return a nil second value.
func BuildSamplerFactory(cfg Config, film core.Film, width, height, numWorkers int) (SamplerFactory, sampler.SharedData) {
	switch cfg.SamplerType {
	case sampler.Random:
		factory := func(threadIndex int) core.Sampler {
			return sampler.NewRandomSampler(cfg.Seed+uint32(threadIndex), film, cfg.ImageSamplesEnable)
		}
		return factory, nil

	case sampler.Metropolis:
		factory := func(threadIndex int) core.Sampler {
			return sampler.NewMetropolisSampler(cfg.Metropolis, cfg.Seed+uint32(threadIndex), film)
		}
		return factory, nil

	case sampler.TilePath:
		shared := sampler.NewTilePathSharedData(width, height, 0)
		factory := func(threadIndex int) core.Sampler {
			return sampler.NewTilePathSampler(cfg.TilePath, shared, film)
		}
		return factory, shared

	case sampler.RTPathCPU:
		shared := sampler.NewInteractiveSharedData(width, height, cfg.Seed, numWorkers)
		factory := func(threadIndex int) core.Sampler {
			return sampler.NewInteractiveSampler(cfg.Zoom, shared, film, width, height, cfg.Seed+uint32(threadIndex))
		}
		return factory, shared

	default: // sampler.Sobol
		shared := sampler.NewSobolSharedData(cfg.Seed, width, height, cfg.Sobol.BucketSize)
		factory := func(threadIndex int) core.Sampler {
			return sampler.NewSobolSampler(cfg.Sobol, shared, film)
		}
		return factory, shared
	}
}

// ApplyPathConfig copies the path.* group's depth/RR/clamp knobs onto a
// scene's SamplingConfig, and lightstrategy.type onto the scene, so a
// ParsedConfig's sampler/path/lightstrategy groups reach the objects that
// actually consult them. Call this before Scene.Preprocess (i.e. before
// RenderEngine.Start/EndEdit). A zero value in cfg.Path (an unset key) leaves
// the scene's own prior value untouched.
func ApplyPathConfig(sc *scene.Scene, cfg Config) {
	sc.LightStrategyType = cfg.LightStrategyType
	if cfg.Path.MaxDepth > 0 {
		sc.SamplingConfig.MaxDepth = cfg.Path.MaxDepth
	}
	if cfg.Path.RRDepth > 0 {
		sc.SamplingConfig.RussianRouletteMinBounces = cfg.Path.RRDepth
	}
	if cfg.Path.RRCap > 0 {
		sc.SamplingConfig.RussianRouletteCap = cfg.Path.RRCap
	}
	if cfg.Path.VarianceClampMax > 0 {
		sc.SamplingConfig.VarianceClampMax = cfg.Path.VarianceClampMax
	}
}
