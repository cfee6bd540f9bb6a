// Package config loads the flat key-value configuration of spec.md §6
// (renderengine.*, sampler.*, path.*, lightstrategy.*, ...) from a YAML
// document (parsed with gopkg.in/yaml.v3). A render
// config is naturally nested ("sampler: { sobol: { bucketsize: 16 } }"),
// so LoadYAML flattens the parsed document into the dotted-key form every
// other part of this repo's configuration layer already expects
// (pkg/renderer.ParseConfig, pkg/sampler, pkg/integrator, pkg/lightstrategy).
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML configuration file and flattens it into the same
// dotted-key map[string]string shape spec.md §6's config table uses, so it
// can be handed directly to pkg/renderer.ParseConfig (or any other group's
// own parser). Unknown keys are preserved, never rejected, per §6.
func LoadYAML(filename string) (map[string]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

// flatten walks a decoded YAML document, joining nested map keys with "."
// to produce the dotted keys spec.md §6's groups are named with
// (e.g. "sobol: {bucketsize: 16}" under "sampler" becomes
// "sampler.sobol.bucketsize" = "16").
func flatten(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinKey(prefix, k), v[k], out)
		}
	case map[interface{}]interface{}:
		// yaml.v3 decodes non-string-keyed maps this way in some documents;
		// normalize to string keys.
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprintf("%v", k)] = val
		}
		flatten(prefix, m, out)
	default:
		if prefix != "" {
			out[prefix] = scalarToString(node)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func scalarToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
