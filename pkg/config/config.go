// Package config provides configuration loading and management for rbffit.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"rbfinterp/pkg/interpolation"
	"rbfinterp/pkg/rbf"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Kernel selects the radial basis function
	Kernel struct {
		// Name is one of rbf.Names()
		Name string `yaml:"name"`

		// Parameters is the kernel's parameter vector, nugget last
		Parameters []float64 `yaml:"parameters"`
	} `yaml:"kernel"`

	// Model parameters
	Model struct {
		// Dim is the spatial dimension, 1 to 3
		Dim int `yaml:"dim"`

		// Degree of the polynomial trend; -1 for none
		Degree int `yaml:"degree"`

		// Nugget overrides the kernel's nugget when not nil
		Nugget *float64 `yaml:"nugget,omitempty"`
	} `yaml:"model"`

	// Solver parameters
	Solver struct {
		// Tolerance is the maximum absolute residual at the data sites
		Tolerance float64 `yaml:"tolerance"`

		// MaxIterations caps the Krylov iterations of one fit
		MaxIterations int `yaml:"maxIterations"`

		// Restart is the Krylov subspace size
		Restart int `yaml:"restart"`

		// DomainSize is the number of sites per fine domain
		DomainSize int `yaml:"domainSize"`

		// Overlap is the ratio of borrowed to owned sites in a fine domain;
		// zero disables borrowing
		Overlap float64 `yaml:"overlap"`

		// CoarseSize is the number of sites on the coarse level
		CoarseSize int `yaml:"coarseSize"`

		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`
	} `yaml:"solver"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Kernel.Name = "biharmonic"
	cfg.Kernel.Parameters = []float64{1.0, 0.0}

	cfg.Model.Dim = 3
	cfg.Model.Degree = 0

	opts := interpolation.DefaultOptions()
	cfg.Solver.Tolerance = 1e-4
	cfg.Solver.MaxIterations = opts.MaxIterations
	cfg.Solver.Restart = opts.Restart
	cfg.Solver.DomainSize = opts.DomainSize
	cfg.Solver.Overlap = opts.Overlap
	cfg.Solver.CoarseSize = opts.CoarseSize
	cfg.Solver.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Verbose = true

	return cfg
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
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

// BuildModel constructs the kernel and model described by the configuration.
func (c *Config) BuildModel() (*rbf.Model, error) {
	kernel, err := rbf.New(c.Kernel.Name, c.Kernel.Parameters)
	if err != nil {
		return nil, err
	}
	model, err := rbf.NewModel(kernel, c.Model.Dim, c.Model.Degree)
	if err != nil {
		return nil, err
	}
	if c.Model.Nugget != nil {
		if err := model.SetNugget(*c.Model.Nugget); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// FitterOptions returns the solver section as interpolation.Options.
func (c *Config) FitterOptions() interpolation.Options {
	overlap := c.Solver.Overlap
	if overlap == 0 {
		overlap = interpolation.NoOverlap
	}
	return interpolation.Options{
		DomainSize:    c.Solver.DomainSize,
		Overlap:       overlap,
		CoarseSize:    c.Solver.CoarseSize,
		Restart:       c.Solver.Restart,
		MaxIterations: c.Solver.MaxIterations,
		Workers:       c.Solver.NumCores,
		Verbose:       c.Output.Verbose,
	}
}
