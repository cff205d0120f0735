// Package config loads the extractor's CLI-level configuration the way the
// teacher loads its own: github.com/spf13/viper reading a config file plus
// environment overrides, per pkg/util.ReadConfig in the original repo.
package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the CLI-level configuration surface of spec.md 6: everything an
// operator can set to steer one extraction run.
type Config struct {
	// InputPath is the source .osm.pbf file.
	InputPath string `mapstructure:"input_path"`
	// ProfilePath is loaded from the config file but not read by the
	// pipeline; every run uses the built-in DefaultProfile.
	ProfilePath string `mapstructure:"profile_path"`
	// OutputBasePath is the path prefix for every .osrm.* artifact
	// (spec.md 6's on-disk layout).
	OutputBasePath string `mapstructure:"output_base_path"`

	// RequestedNumThreads bounds worker-pool fan-out; 0 means "use
	// runtime.NumCPU()".
	RequestedNumThreads int `mapstructure:"threads"`

	// ParseConditionals gates whether "restriction:conditional"-tagged
	// relations are resolved at all; when false, a relation carrying only
	// a conditional tag is skipped and a plain "restriction" tag's
	// condition string is never attached to the resolved restriction.
	ParseConditionals bool `mapstructure:"parse_conditionals"`
	// UseMetadata gates interning a way's ref (route number) string into
	// the shared name pool as CompressedEdgeMeta.RefID; when false, RefID
	// stays zero for every edge.
	UseMetadata       bool `mapstructure:"use_metadata"`
	UseLocationsCache bool `mapstructure:"use_locations_cache"`

	// SmallComponentSize is the SCC-size threshold below which a component
	// is flagged tiny (spec.md 4.I).
	SmallComponentSize int `mapstructure:"small_component_size"`

	// LeafBoundingBoxRadiusKM is the distance each segment's bounding box
	// is padded by on every side before insertion into the spatial index's
	// R-tree (spec.md 4.J); a non-positive value selects spatial.Build's
	// 0.5 km default.
	LeafBoundingBoxRadiusKM float64 `mapstructure:"leaf_bbox_radius_km"`
	// WriteDebugGeometry, when set, additionally dumps every compressed
	// edge's geometry as an encoded polyline (osrmio.WriteGeometryDebugPolylines)
	// alongside the regular artifact set, for manual inspection.
	WriteDebugGeometry bool `mapstructure:"write_debug_geometry"`
}

// Default returns the configuration used when no config file is present,
// matching the conservative defaults spec.md 6 assumes.
func Default() Config {
	return Config{
		OutputBasePath:          "./data/extract",
		RequestedNumThreads:     runtime.NumCPU(),
		ParseConditionals:       false,
		UseMetadata:             true,
		UseLocationsCache:       false,
		SmallComponentSize:      1000,
		LeafBoundingBoxRadiusKM: 0.3,
		WriteDebugGeometry:      false,
	}
}

// Load reads configPath (a viper-supported format: yaml/json/toml) merged
// over Default(), the same "read a config file, fall through to
// programmatic defaults" shape as the teacher's ReadConfig.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("GRAPHEXTRACT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("fatal error config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.RequestedNumThreads <= 0 {
		cfg.RequestedNumThreads = runtime.NumCPU()
	}
	return cfg, nil
}
