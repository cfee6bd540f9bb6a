package sampler

import (
	"fmt"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Type enumerates the sampler.type config group of spec.md §6. Sobol is the
// zero value, matching the production default documented on SobolSampler.
type Type int

const (
	Sobol Type = iota
	Random
	Metropolis
	TilePath
	RTPathCPU
)

func (t Type) String() string {
	switch t {
	case Random:
		return "RANDOM"
	case Sobol:
		return "SOBOL"
	case Metropolis:
		return "METROPOLIS"
	case TilePath:
		return "TILEPATHSAMPLER"
	case RTPathCPU:
		return "RTPATHCPUSAMPLER"
	default:
		return "UNKNOWN"
	}
}

// ParseType maps a sampler.type config value to a Type, matching the
// ParseEngineType pattern in pkg/renderer/config.go.
func ParseType(s string) (Type, error) {
	switch s {
	case "RANDOM":
		return Random, nil
	case "SOBOL", "":
		return Sobol, nil
	case "METROPOLIS":
		return Metropolis, nil
	case "TILEPATHSAMPLER":
		return TilePath, nil
	case "RTPATHCPUSAMPLER":
		return RTPathCPU, nil
	default:
		return Sobol, core.NewRenderError(core.ConfigError, "sampler.type", fmt.Errorf("unrecognized sampler type %q", s))
	}
}
