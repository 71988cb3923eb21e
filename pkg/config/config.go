// Package config provides configuration loading and management for ridgetrace.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"ridgetrace/pkg/centerline"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Extraction thresholds for ridge traversal
	Extraction struct {
		// Thigh is the minimum tubeness of a seed voxel
		Thigh float64 `yaml:"thigh"`

		// Dmin is the minimum length in voxels of an accepted trace
		Dmin int `yaml:"dmin"`

		// Mlow is the minimum centrality score needed to keep tracing
		Mlow float64 `yaml:"mlow"`

		// Tlow is the tubeness below which a step counts as low quality
		Tlow float64 `yaml:"tlow"`

		// MaxBelowTlow is the number of consecutive low quality steps tolerated
		MaxBelowTlow int `yaml:"maxBelowTlow"`

		// MinMeanTube is the minimum mean tubeness of an accepted trace
		MinMeanTube float64 `yaml:"minMeanTube"`

		// TreeMin is the length a secondary tree must exceed to be kept
		TreeMin int `yaml:"treeMin"`
	} `yaml:"extraction"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel scans
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveSlices writes JPEG previews of the mask next to the outputs
		SaveSlices bool `yaml:"saveSlices"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	p := centerline.DefaultParams()
	cfg.Extraction.Thigh = p.Thigh
	cfg.Extraction.Dmin = p.Dmin
	cfg.Extraction.Mlow = p.Mlow
	cfg.Extraction.Tlow = p.Tlow
	cfg.Extraction.MaxBelowTlow = p.MaxBelowTlow
	cfg.Extraction.MinMeanTube = p.MinMeanTube
	cfg.Extraction.TreeMin = p.TreeMin

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.SaveSlices = false
	cfg.Output.Verbose = false

	return cfg
}

// Params converts the extraction section into centerline parameters
func (c *Config) Params() centerline.Params {
	return centerline.Params{
		Thigh:        c.Extraction.Thigh,
		Dmin:         c.Extraction.Dmin,
		Mlow:         c.Extraction.Mlow,
		Tlow:         c.Extraction.Tlow,
		MaxBelowTlow: c.Extraction.MaxBelowTlow,
		MinMeanTube:  c.Extraction.MinMeanTube,
		TreeMin:      c.Extraction.TreeMin,
		Workers:      c.Processing.NumCores,
	}
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
