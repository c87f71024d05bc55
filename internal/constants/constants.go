// Package constants provides named constants used throughout the diffsim codebase.
// This centralizes defaults and magic values for better maintainability.
package constants

// Run defaults
const (
	// DefaultIterations is the number of iterations run when none is configured,
	// including iteration 0 (the seeded starting state).
	DefaultIterations = 100

	// MaxIterations bounds a single run. Longer horizons should be split.
	MaxIterations = 1_000_000

	// DefaultLogLevel is the operational log level.
	DefaultLogLevel = "info"

	// DefaultOutputFormat is the trend format written to stdout.
	DefaultOutputFormat = "text"

	// DefaultTrendKind selects the series rendered by default.
	DefaultTrendKind = "node_count"
)

// Graph data conventions shared by the store and graph loaders.
const (
	// NodeKind is the store kind used for simulation nodes.
	NodeKind = "node"

	// ContactEdgeKind is the store kind used for simulation edges.
	ContactEdgeKind = "contact"
)

// Environment variable names read by the config loader.
const (
	EnvLogLevel   = "DIFFSIM_LOG_LEVEL"
	EnvSeed       = "DIFFSIM_SEED"
	EnvIterations = "DIFFSIM_ITERATIONS"
)
