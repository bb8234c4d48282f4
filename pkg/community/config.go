package community

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the process-level defaults for the community
// detection engine, loaded from the environment the way
// brain-core's clustering activity loads its own tunables: small
// getenv-backed helpers with defaults, not a generic config framework.
type EngineConfig struct {
	DefaultRandomness     float64
	DefaultMaxClusterSize int
	DefaultMaxLevels      int
	RateLimitPerSecond    float64
}

// LoadEngineConfigFromEnv reads COMMUNITY_* environment variables,
// falling back to sensible defaults for anything unset or invalid.
func LoadEngineConfigFromEnv() EngineConfig {
	return EngineConfig{
		DefaultRandomness:     getenvFloat("COMMUNITY_RANDOMNESS", DefaultRandomness),
		DefaultMaxClusterSize: getenvInt("COMMUNITY_MAX_CLUSTER_SIZE", 500),
		DefaultMaxLevels:      getenvInt("COMMUNITY_MAX_LEVELS", 4),
		RateLimitPerSecond:    getenvFloat("COMMUNITY_RATE_LIMIT_PER_SECOND", 5),
	}
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

// HierarchicalPreset names a resolution/max-cluster-size combination a
// caller can select by name (e.g. "fine", "coarse") instead of supplying
// raw numbers on every request.
type HierarchicalPreset struct {
	Name           string  `yaml:"name"`
	Resolution     float64 `yaml:"resolution"`
	MaxClusterSize int     `yaml:"maxClusterSize"`
	MaxLevels      int     `yaml:"maxLevels"`
}

type hierarchicalPresetsFile struct {
	Presets []HierarchicalPreset `yaml:"presets"`
}

// LoadHierarchicalPresets reads a YAML file of named presets. Absent any
// such file, callers fall back to DefaultLeidenConfig and EngineConfig
// defaults; this is an optional batch-job convenience, not a required
// configuration surface.
func LoadHierarchicalPresets(path string) (map[string]HierarchicalPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("community: reading presets file: %w", err)
	}
	var parsed hierarchicalPresetsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("community: parsing presets file: %w", err)
	}
	out := make(map[string]HierarchicalPreset, len(parsed.Presets))
	for _, p := range parsed.Presets {
		out[p.Name] = p
	}
	return out, nil
}
