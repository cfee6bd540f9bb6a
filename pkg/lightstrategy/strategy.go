package lightstrategy

import (
	"fmt"
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Type enumerates the light-selection strategies a scene can configure,
// matching the lightstrategy.type config group of spec.md §6. LogPower is
// the zero value, matching the engine's existing default when no strategy
// is configured.
type Type int

const (
	LogPower Type = iota
	Uniform
	Power
	DLSCCache
)

func (t Type) String() string {
	switch t {
	case Uniform:
		return "UNIFORM"
	case Power:
		return "POWER"
	case LogPower:
		return "LOGPOWER"
	case DLSCCache:
		return "DLS_CACHE"
	default:
		return "UNKNOWN"
	}
}

// ParseType maps a lightstrategy.type config value to a Type, matching the
// ParseEngineType pattern in pkg/renderer/config.go.
func ParseType(s string) (Type, error) {
	switch s {
	case "UNIFORM":
		return Uniform, nil
	case "POWER":
		return Power, nil
	case "LOGPOWER", "":
		return LogPower, nil
	case "DLS_CACHE":
		return DLSCCache, nil
	default:
		return LogPower, core.NewRenderError(core.ConfigError, "lightstrategy.type", fmt.Errorf("unrecognized light strategy %q", s))
	}
}

// DLSCLookup is the narrow interface the DLSC-backed strategy needs from
// pkg/dlsc, kept here (rather than importing pkg/dlsc directly) so
// lightstrategy has no dependency on the cache's build pipeline — only on
// its lookup result.
type DLSCLookup interface {
	// Lookup returns a per-light importance distribution for a shading
	// point/normal, or false if no nearby cache entry covers it (in which
	// case the caller falls back to the Fallback strategy).
	Lookup(point, normal core.Vec3, isVolume bool) (*LightsDistribution, bool)
}

// Strategy selects which light to importance-sample for next-event
// estimation at a given shading point, and reports the PDF of any
// particular light having been selected (needed by MIS to combine against
// BSDF sampling).
type Strategy struct {
	strategyType Type
	global       *LightsDistribution
	dlsc         DLSCLookup
	fallback     *LightsDistribution
}

// NewUniformStrategy builds a strategy that picks among n lights with
// equal probability.
func NewUniformStrategy(n int) *Strategy {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return &Strategy{strategyType: Uniform, global: NewLightsDistribution(weights)}
}

// NewPowerStrategy builds a strategy weighted by each light's estimated
// emitted power (so bright lights are sampled more often). An infinite
// light's Power grows with sceneRadius² (it represents flux over a sphere
// enclosing the scene), so its weight is rescaled by 1/sceneRadius² to keep
// its selection probability from growing quadratically with scene size.
func NewPowerStrategy(lights []core.Emitter, sceneRadius float64) *Strategy {
	weights := make([]float64, len(lights))
	for i, l := range lights {
		w := l.Power(sceneRadius)
		if l.IsEnvironmental() && sceneRadius > 0 {
			w /= sceneRadius * sceneRadius
		}
		weights[i] = w
	}
	return &Strategy{strategyType: Power, global: NewLightsDistribution(weights)}
}

// NewLogPowerStrategy builds a strategy weighted by log(1+power), which
// compresses the dynamic range between a dim fill light and a blazing sun
// so the dim light still gets sampled occasionally — the default fallback
// when a DLSC is active, since DLSC importance already captures the
// geometric variation power-weighting alone misses.
func NewLogPowerStrategy(lights []core.Emitter, sceneRadius float64) *Strategy {
	weights := make([]float64, len(lights))
	for i, l := range lights {
		weights[i] = math.Log(1 + l.Power(sceneRadius))
	}
	return &Strategy{strategyType: LogPower, global: NewLightsDistribution(weights)}
}

// NewDLSCStrategy builds a strategy that consults a direct-light sampling
// cache first and falls back to fallback (typically log-power) when the
// cache has no nearby entry — the fallback choice is fixed at
// construction time, never re-chosen per query.
func NewDLSCStrategy(dlsc DLSCLookup, fallback *Strategy) *Strategy {
	return &Strategy{strategyType: DLSCCache, dlsc: dlsc, fallback: fallback.global, global: fallback.global}
}

// Sample selects a light index and returns the combined selection PDF.
func (s *Strategy) Sample(point, normal core.Vec3, isVolume bool, u float64) (index int, pdf float64) {
	dist := s.distributionFor(point, normal, isVolume)
	if dist == nil || dist.Len() == 0 {
		return -1, 0
	}
	return dist.Sample(u)
}

// PDF returns the selection probability the strategy would assign to the
// given light index at the given shading point, for MIS weighting.
func (s *Strategy) PDF(point, normal core.Vec3, isVolume bool, index int) float64 {
	dist := s.distributionFor(point, normal, isVolume)
	if dist == nil {
		return 0
	}
	return dist.PDF(index)
}

// SampleEmission selects a light index from the strategy's global,
// position-independent distribution, for light-path emission sampling
// where there is no shading point yet to condition a DLSC lookup on.
func (s *Strategy) SampleEmission(u float64) (index int, pdf float64) {
	if s.global == nil || s.global.Len() == 0 {
		return -1, 0
	}
	return s.global.Sample(u)
}

// EmissionPDF returns the selection probability SampleEmission would
// assign to the given light index.
func (s *Strategy) EmissionPDF(index int) float64 {
	if s.global == nil {
		return 0
	}
	return s.global.PDF(index)
}

func (s *Strategy) distributionFor(point, normal core.Vec3, isVolume bool) *LightsDistribution {
	if s.strategyType == DLSCCache && s.dlsc != nil {
		if dist, ok := s.dlsc.Lookup(point, normal, isVolume); ok {
			return dist
		}
		return s.fallback
	}
	return s.global
}
