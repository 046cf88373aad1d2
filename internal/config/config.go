// Package config loads the schedit configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
	"github.com/OpenTraceLab/schedit/pkg/kicad/export"
	"github.com/OpenTraceLab/schedit/pkg/kicad/library"
	"github.com/OpenTraceLab/schedit/pkg/kicad/placement"
)

// Config holds all schedit configuration.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	Layout  LayoutConfig  `yaml:"layout"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// LibraryConfig lists where symbol libraries are looked up.
type LibraryConfig struct {
	SearchPaths []string `yaml:"search_paths"`
}

// LayoutConfig holds the placement defaults (mm).
type LayoutConfig struct {
	GridSize         float64 `yaml:"grid_size"`
	RelativeDistance float64 `yaml:"relative_distance"`
	GroupSpacing     float64 `yaml:"group_spacing"`
	GroupColumns     int     `yaml:"group_columns"`
	GroupStartX      float64 `yaml:"group_start_x"`
	GroupStartY      float64 `yaml:"group_start_y"`
}

// ExportConfig configures the kicad-cli bridge.
type ExportConfig struct {
	KiCadCLI string `yaml:"kicad_cli"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Environment variables read by applyEnvOverrides. The KiCad ones are the
// variables KiCad itself sets for its stock symbol libraries.
var symbolDirEnv = []string{
	"KICAD_SYMBOL_DIR",
	"KICAD9_SYMBOL_DIR",
	"KICAD8_SYMBOL_DIR",
	"KICAD7_SYMBOL_DIR",
}

const logLevelEnv = "SCHEDIT_LOG_LEVEL"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutConfig{
			GridSize:         placement.DefaultGridSize,
			RelativeDistance: placement.DefaultRelativeDistance,
			GroupSpacing:     placement.DefaultGroupSpacing,
			GroupColumns:     placement.DefaultGroupColumns,
			GroupStartX:      placement.DefaultGroupStart,
			GroupStartY:      placement.DefaultGroupStart,
		},
		Export: ExportConfig{
			KiCadCLI: export.DefaultCLI,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate rejects layout values the placement engine cannot use.
func (c *Config) Validate() error {
	l := c.Layout
	switch {
	case l.GridSize <= 0:
		return fmt.Errorf("layout.grid_size must be positive, got %g", l.GridSize)
	case l.RelativeDistance <= 0:
		return fmt.Errorf("layout.relative_distance must be positive, got %g", l.RelativeDistance)
	case l.GroupSpacing <= 0:
		return fmt.Errorf("layout.group_spacing must be positive, got %g", l.GroupSpacing)
	case l.GroupColumns <= 0:
		return fmt.Errorf("layout.group_columns must be positive, got %d", l.GroupColumns)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// KiCad library dirs go after the configured ones, skipping repeats
	seen := make(map[string]bool, len(c.Library.SearchPaths))
	for _, p := range c.Library.SearchPaths {
		seen[p] = true
	}
	for _, name := range symbolDirEnv {
		if dir := os.Getenv(name); dir != "" && !seen[dir] {
			seen[dir] = true
			c.Library.SearchPaths = append(c.Library.SearchPaths, dir)
		}
	}

	if level := os.Getenv(logLevelEnv); level != "" {
		c.Logging.Level = level
	}
}

// EditorOptions converts the configuration into editor options.
func (c *Config) EditorOptions() editor.Options {
	return editor.Options{
		Library: library.Config{SearchPaths: c.Library.SearchPaths},
		Layout: editor.Layout{
			GridSize:         c.Layout.GridSize,
			RelativeDistance: c.Layout.RelativeDistance,
			GroupSpacing:     c.Layout.GroupSpacing,
			GroupColumns:     c.Layout.GroupColumns,
			GroupStartX:      c.Layout.GroupStartX,
			GroupStartY:      c.Layout.GroupStartY,
		},
		KiCadCLI: c.Export.KiCadCLI,
	}
}
