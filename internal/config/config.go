// Package config provides simulation configuration loading for diffsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/diffsim/internal/constants"
	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/epidemics"
	"github.com/nvandessel/diffsim/internal/graph"
	"github.com/nvandessel/diffsim/internal/trends"
	"github.com/nvandessel/diffsim/internal/visualization"
	"gopkg.in/yaml.v3"
)

// SimConfig describes one simulation run.
type SimConfig struct {
	// Model is the registry name of the diffusion model ("icep", "seir").
	Model string `json:"model" yaml:"model"`

	// Seed seeds the engine's random source.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Iterations is the number of Iteration calls, iteration 0 included.
	Iterations int `json:"iterations" yaml:"iterations"`

	// IncludeStatus keeps per-node status deltas in the results.
	IncludeStatus bool `json:"include_status" yaml:"include_status"`

	// Graph selects the topology.
	Graph GraphConfig `json:"graph" yaml:"graph"`

	// Parameters configures the model.
	Parameters ParametersConfig `json:"parameters" yaml:"parameters"`

	// Initial selects the starting statuses.
	Initial diffusion.InitialStatus `json:"initial" yaml:"initial"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Output selects how trends are rendered.
	Output OutputConfig `json:"output" yaml:"output"`
}

// GraphConfig selects where the graph comes from.
type GraphConfig struct {
	// Source is "jsonl", "sqlite" or "generator".
	Source constants.GraphSource `json:"source" yaml:"source"`

	// Path is the JSONL directory or SQLite file. Relative paths are
	// resolved against the config file's directory. Supports ${VAR}.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Directed treats stored edges as ordered pairs.
	Directed bool `json:"directed" yaml:"directed"`

	// Generator describes a synthetic graph when Source is "generator".
	Generator *graph.Spec `json:"generator,omitempty" yaml:"generator,omitempty"`
}

// ParametersConfig holds the three parameter namespaces.
type ParametersConfig struct {
	Model map[string]float64           `json:"model,omitempty" yaml:"model,omitempty"`
	Nodes map[string]map[string]string `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges map[string][]EdgeValue       `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// EdgeValue is one edge-level parameter entry.
type EdgeValue struct {
	Source string  `json:"source" yaml:"source"`
	Target string  `json:"target" yaml:"target"`
	Value  float64 `json:"value" yaml:"value"`
}

// LoggingConfig configures diffsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .diffsim/decisions.jsonl.
	Level string `json:"level" yaml:"level"`

	// Dir is where decisions.jsonl is written. Defaults to .diffsim.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// OutputConfig configures trend rendering.
type OutputConfig struct {
	// Format is "text", "csv", "json" or "html".
	Format string `json:"format" yaml:"format"`

	// Kind is "node_count" or "status_delta".
	Kind string `json:"kind" yaml:"kind"`

	// Path writes the rendering to a file instead of stdout.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns a SimConfig with sensible defaults. The model and graph
// still have to be chosen.
func Default() *SimConfig {
	return &SimConfig{
		Iterations:    constants.DefaultIterations,
		IncludeStatus: true,
		Logging: LoggingConfig{
			Level: constants.DefaultLogLevel,
		},
		Output: OutputConfig{
			Format: constants.DefaultOutputFormat,
			Kind:   constants.DefaultTrendKind,
		},
	}
}

// Load loads configuration from path, or defaults when path is empty, and
// applies environment variable overrides.
// Order: defaults -> file -> environment variables
func Load(path string) (*SimConfig, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Graph.Path = expandEnvVars(config.Graph.Path)
	if config.Graph.Path != "" && !filepath.IsAbs(config.Graph.Path) {
		config.Graph.Path = filepath.Join(filepath.Dir(path), config.Graph.Path)
	}

	return config, nil
}

// Validate checks that the configuration is structurally valid. Model
// parameter ranges are checked later, when the engine is built.
func (c *SimConfig) Validate() error {
	if _, err := epidemics.New(c.Model); err != nil {
		return err
	}

	if c.Iterations < 0 || c.Iterations > constants.MaxIterations {
		return fmt.Errorf("iterations must be between 0 and %d, got %d", constants.MaxIterations, c.Iterations)
	}

	if !c.Graph.Source.Valid() {
		return fmt.Errorf("invalid graph source: %q (valid: jsonl, sqlite, generator)", c.Graph.Source)
	}
	switch c.Graph.Source {
	case constants.SourceJSONL, constants.SourceSQLite:
		if c.Graph.Path == "" {
			return fmt.Errorf("graph source %s requires a path", c.Graph.Source)
		}
	case constants.SourceGenerator:
		if c.Graph.Generator == nil {
			return fmt.Errorf("graph source generator requires a generator section")
		}
		if err := c.Graph.Generator.Validate(); err != nil {
			return fmt.Errorf("invalid generator: %w", err)
		}
	}

	for name, values := range c.Parameters.Edges {
		for i, ev := range values {
			if ev.Source == "" || ev.Target == "" {
				return fmt.Errorf("edge parameter %s entry %d: source and target are required", name, i)
			}
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	format, err := visualization.ParseFormat(c.Output.Format)
	if err != nil {
		return err
	}
	if format == visualization.FormatDOT {
		return fmt.Errorf("output format dot renders graphs, not trends")
	}
	if _, err := trends.ParseKind(c.Output.Kind); err != nil {
		return err
	}

	return nil
}

// ToDiffusion converts the parameter and initial-status sections into the
// engine's configuration.
func (c *SimConfig) ToDiffusion() diffusion.Config {
	cfg := diffusion.Config{
		Model:   c.Parameters.Model,
		Nodes:   c.Parameters.Nodes,
		Initial: c.Initial,
	}
	if len(c.Parameters.Edges) > 0 {
		cfg.Edges = make(map[string]map[diffusion.Pair]float64, len(c.Parameters.Edges))
		for name, values := range c.Parameters.Edges {
			m := make(map[diffusion.Pair]float64, len(values))
			for _, ev := range values {
				m[diffusion.Pair{U: ev.Source, V: ev.Target}] = ev.Value
			}
			cfg.Edges[name] = m
		}
	}
	return cfg
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SimConfig) error {
	if v := os.Getenv(constants.EnvLogLevel); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv(constants.EnvSeed); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", constants.EnvSeed, err)
		}
		config.Seed = n
	}

	if v := os.Getenv(constants.EnvIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", constants.EnvIterations, err)
		}
		config.Iterations = n
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
