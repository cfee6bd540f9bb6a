// Package renderer implements the RenderEngine: the state machine and
// worker pool that drives a Sampler/PathTracer/Film triple to convergence,
// plus a progressive/tiled compatibility layer for interactive front ends.
// It implements spec.md §4.7 and the concurrency model of §5.
package renderer

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/dlsc"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
)

// DefaultLogger implements core.Logger on top of log/slog, so progress
// messages come out structured and leveled like the rest of a host
// application's logs while integrator/engine code keeps the simple Printf
// seam.
type DefaultLogger struct {
	logger *slog.Logger
}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	dl.logger.Info(fmt.Sprintf(strings.TrimRight(format, "\n"), args...))
}

// NewDefaultLogger creates a logger backed by the process-wide slog default.
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{logger: slog.Default()}
}

// EngineType enumerates the renderengine.type values of spec.md §6's
// configuration table. Only the CPU path-space variants are implemented;
// the OCL and FILESAVER variants are out of scope for a host-only core.
type EngineType int

const (
	PathCPU EngineType = iota
	BiDirCPU
	BiDirVMCPU
	LightCPU
	TilePathCPU
	RTPathCPU
)

func (t EngineType) String() string {
	switch t {
	case PathCPU:
		return "PATHCPU"
	case BiDirCPU:
		return "BIDIRCPU"
	case BiDirVMCPU:
		return "BIDIRVMCPU"
	case LightCPU:
		return "LIGHTCPU"
	case TilePathCPU:
		return "TILEPATHCPU"
	case RTPathCPU:
		return "RTPATHCPU"
	default:
		return "UNKNOWN"
	}
}

// ParseEngineType maps a renderengine.type config value to an EngineType,
// returning a ConfigError for unrecognized values per spec.md §7.
func ParseEngineType(s string) (EngineType, error) {
	switch s {
	case "PATHCPU", "":
		return PathCPU, nil
	case "BIDIRCPU":
		return BiDirCPU, nil
	case "BIDIRVMCPU":
		return BiDirVMCPU, nil
	case "LIGHTCPU":
		return LightCPU, nil
	case "TILEPATHCPU":
		return TilePathCPU, nil
	case "RTPATHCPU":
		return RTPathCPU, nil
	default:
		return PathCPU, core.NewRenderError(core.ConfigError, "renderengine.type", fmt.Errorf("unrecognized engine type %q", s))
	}
}

// PathConfig bundles spec.md §6's `path.*` group, used to populate a scene's
// SamplingConfig before the engine is started. pathdepth.diffuse/glossy/
// specular and hybridbackforward.enable are not modeled here: this renderer
// has no per-event-type depth bookkeeping or separate hybrid back/forward
// pass for them to drive, so they are left reachable only via
// ParsedConfig.Get rather than wired to a field with no consumer.
type PathConfig struct {
	MaxDepth int     // path.pathdepth.total
	RRDepth  int     // path.russianroulette.depth
	RRCap    float64 // path.russianroulette.cap; <= 0 defaults to 0.05

	VarianceClampMax float64 // path.clamping.variance.maxvalue
}

// Config bundles the engine-level knobs of spec.md §6's `renderengine.*`,
// `batch.*` and `scene.epsilon.*` groups, plus the sampler.*, path.* and
// lightstrategy.* groups that parameterize the sampler/integrator/strategy
// an engine is built with.
type Config struct {
	Type EngineType
	Seed uint32

	NumWorkers int // 0 = one worker per logical core

	HaltSPP        int     // batch.haltspp; 0 = unbounded
	HaltDebugSecs  float64 // batch.haltdebug; 0 = unbounded
	ConvergedAtOne bool    // halt once every pixel's noise estimate reads 0 (converged)

	EpsilonMin float64 // scene.epsilon.min
	EpsilonMax float64 // scene.epsilon.max

	ScreenRefreshInterval float64 // screen.refresh.interval, seconds

	// DLSC configures the direct-light sampling cache built at Start, per
	// spec.md §4.7's "build caches (DLSC, ...)" startup step. Nil disables
	// it: the scene's default light strategy (log-power, set by
	// Scene.Preprocess) is used unchanged.
	DLSC *dlsc.Params

	LightStrategyType lightstrategy.Type // lightstrategy.type

	SamplerType        sampler.Type // sampler.type
	ImageSamplesEnable bool         // sampler.imagesamples.enable

	Sobol      sampler.SobolParams
	Metropolis sampler.MetropolisParams
	TilePath   sampler.TilePathParams
	Zoom       sampler.InteractiveParams

	Path PathConfig
}

// DefaultConfig mirrors the defaults a renderer would ship absent explicit
// configuration.
func DefaultConfig() Config {
	return Config{
		Type:               PathCPU,
		NumWorkers:         0,
		HaltSPP:            0,
		ConvergedAtOne:     true,
		EpsilonMin:         1e-4,
		EpsilonMax:         1e8,
		LightStrategyType:  lightstrategy.LogPower,
		SamplerType:        sampler.Sobol,
		ImageSamplesEnable: true,
		Sobol:              sampler.DefaultSobolParams(),
		Metropolis:         sampler.DefaultMetropolisParams(),
		TilePath:           sampler.DefaultTilePathParams(),
		Zoom:               sampler.DefaultInteractiveParams(),
	}
}

// ParsedConfig is the Config that ParseConfig builds from the key-value map
// of spec.md §6. Unknown keys are tolerated (not an error) per §6's "unknown keys are
// tolerated at parse time" rule, but are retained in Raw so a query API can
// still reach them.
type ParsedConfig struct {
	Config
	Raw map[string]string
}

// ParseConfig reads the renderengine.*, batch.*, scene.epsilon.*,
// lightstrategy.*, sampler.*, path.*, tilepath.* and rtpathcpu.zoomphase.*
// keys out of a flat configuration map, defaulting anything absent.
func ParseConfig(props map[string]string) (ParsedConfig, error) {
	cfg := DefaultConfig()

	if v, ok := props["renderengine.type"]; ok {
		t, err := ParseEngineType(v)
		if err != nil {
			return ParsedConfig{}, err
		}
		cfg.Type = t
	}
	if v, ok := props["renderengine.seed"]; ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "renderengine.seed", err)
		}
		cfg.Seed = uint32(n)
	}
	if v, ok := props["batch.haltspp"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "batch.haltspp", err)
		}
		cfg.HaltSPP = n
	}
	if v, ok := props["batch.haltdebug"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "batch.haltdebug", err)
		}
		cfg.HaltDebugSecs = f
	}
	if v, ok := props["scene.epsilon.min"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "scene.epsilon.min", err)
		}
		cfg.EpsilonMin = f
	}
	if v, ok := props["scene.epsilon.max"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "scene.epsilon.max", err)
		}
		cfg.EpsilonMax = f
	}
	if v, ok := props["screen.refresh.interval"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "screen.refresh.interval", err)
		}
		cfg.ScreenRefreshInterval = f
	}

	if v, ok := props["lightstrategy.type"]; ok {
		t, err := lightstrategy.ParseType(v)
		if err != nil {
			return ParsedConfig{}, err
		}
		cfg.LightStrategyType = t
	}
	if cfg.LightStrategyType == lightstrategy.DLSCCache {
		params, err := parseDLSCParams(props)
		if err != nil {
			return ParsedConfig{}, err
		}
		cfg.DLSC = &params
	}

	if v, ok := props["sampler.type"]; ok {
		t, err := sampler.ParseType(v)
		if err != nil {
			return ParsedConfig{}, err
		}
		cfg.SamplerType = t
	}
	if v, ok := props["sampler.imagesamples.enable"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ParsedConfig{}, core.NewRenderError(core.ConfigError, "sampler.imagesamples.enable", err)
		}
		cfg.ImageSamplesEnable = b
	}
	if err := parseFloatInto(props, "sampler.sobol.adaptive.strength", &cfg.Sobol.AdaptiveStrength); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseFloatInto(props, "sampler.sobol.adaptive.userimportanceweight", &cfg.Sobol.AdaptiveUserImportanceWeight); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "sampler.sobol.bucketsize", &cfg.Sobol.BucketSize); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "sampler.sobol.tilesize", &cfg.Sobol.TileSize); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "sampler.sobol.supersampling", &cfg.Sobol.SuperSampling); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "sampler.sobol.overlapping", &cfg.Sobol.Overlapping); err != nil {
		return ParsedConfig{}, err
	}

	if err := parseFloatInto(props, "sampler.metropolis.largestepprob", &cfg.Metropolis.LargeMutationProbability); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseFloatInto(props, "sampler.metropolis.imagemutationrate", &cfg.Metropolis.ImageMutationRange); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "sampler.metropolis.maxconsecutivereject", &cfg.Metropolis.MaxRejects); err != nil {
		return ParsedConfig{}, err
	}

	if err := parseIntInto(props, "path.pathdepth.total", &cfg.Path.MaxDepth); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "path.russianroulette.depth", &cfg.Path.RRDepth); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseFloatInto(props, "path.russianroulette.cap", &cfg.Path.RRCap); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseFloatInto(props, "path.clamping.variance.maxvalue", &cfg.Path.VarianceClampMax); err != nil {
		return ParsedConfig{}, err
	}

	if err := parseIntInto(props, "tilepath.sampling.aa.size", &cfg.TilePath.AASize); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseIntInto(props, "rtpathcpu.zoomphase.size", &cfg.Zoom.ZoomFactor); err != nil {
		return ParsedConfig{}, err
	}
	if err := parseFloatInto(props, "rtpathcpu.zoomphase.weight", &cfg.Zoom.ZoomWeight); err != nil {
		return ParsedConfig{}, err
	}

	return ParsedConfig{Config: cfg, Raw: props}, nil
}

// parseDLSCParams reads the lightstrategy.dlscache.* sub-keys (visibility,
// entry and persistent groups) over dlsc.DefaultParams, used when
// lightstrategy.type selects DLS_CACHE.
func parseDLSCParams(props map[string]string) (dlsc.Params, error) {
	params := dlsc.DefaultParams()

	if err := parseIntInto(props, "lightstrategy.dlscache.visibility.maxpathdepth", &params.Visibility.MaxPathDepth); err != nil {
		return params, err
	}
	if err := parseIntInto(props, "lightstrategy.dlscache.visibility.maxsamplecount", &params.Visibility.MaxSampleCount); err != nil {
		return params, err
	}
	if err := parseFloatInto(props, "lightstrategy.dlscache.visibility.targethitrate", &params.Visibility.TargetHitRate); err != nil {
		return params, err
	}
	if err := parseFloatInto(props, "lightstrategy.dlscache.visibility.lookup.radius", &params.Visibility.LookupRadius); err != nil {
		return params, err
	}
	if v, ok := props["lightstrategy.dlscache.visibility.lookup.normalangle"]; ok {
		deg, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, core.NewRenderError(core.ConfigError, "lightstrategy.dlscache.visibility.lookup.normalangle", err)
		}
		params.Visibility.LookupNormalCos = math.Cos(deg * math.Pi / 180.0)
	}

	if err := parseIntInto(props, "lightstrategy.dlscache.entry.warmupsamples", &params.Entry.WarmupSamples); err != nil {
		return params, err
	}
	if err := parseIntInto(props, "lightstrategy.dlscache.entry.maxpasses", &params.Entry.MaxPasses); err != nil {
		return params, err
	}
	if err := parseFloatInto(props, "lightstrategy.dlscache.entry.convergencethreshold", &params.Entry.ConvergenceThreshold); err != nil {
		return params, err
	}

	if v, ok := props["lightstrategy.dlscache.persistent.file"]; ok {
		params.Persistent.FileName = v
	}
	if v, ok := props["lightstrategy.dlscache.persistent.safesave"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return params, core.NewRenderError(core.ConfigError, "lightstrategy.dlscache.persistent.safesave", err)
		}
		params.Persistent.SafeSave = b
	}

	return params, nil
}

// parseFloatInto parses props[key] as a float64 into dst if present, leaving
// dst at its default otherwise.
func parseFloatInto(props map[string]string, key string, dst *float64) error {
	v, ok := props[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return core.NewRenderError(core.ConfigError, key, err)
	}
	*dst = f
	return nil
}

// parseIntInto parses props[key] as an int into dst if present, leaving dst
// at its default otherwise.
func parseIntInto(props map[string]string, key string, dst *int) error {
	v, ok := props[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return core.NewRenderError(core.ConfigError, key, err)
	}
	*dst = n
	return nil
}

// Get returns the raw string value of a configuration key and whether it
// was present, for callers that need a key outside the groups Config
// parses itself (e.g. path.pathdepth.diffuse or lightstrategy.dlscache.*),
// satisfying the "reachable via a query API" requirement for
// unknown/unparsed keys.
func (p ParsedConfig) Get(key string) (string, bool) {
	v, ok := p.Raw[key]
	return v, ok
}
