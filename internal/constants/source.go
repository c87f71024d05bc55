package constants

// GraphSource identifies where a run's graph comes from.
type GraphSource string

const (
	// SourceJSONL reads nodes.jsonl and edges.jsonl from a directory.
	SourceJSONL GraphSource = "jsonl"

	// SourceSQLite reads a graph database built by `diffsim graph import`.
	SourceSQLite GraphSource = "sqlite"

	// SourceGenerator builds a synthetic graph.
	SourceGenerator GraphSource = "generator"
)

// Valid returns true if the source is a recognized value.
func (s GraphSource) Valid() bool {
	switch s {
	case SourceJSONL, SourceSQLite, SourceGenerator:
		return true
	}
	return false
}

// String returns the string representation of the source.
func (s GraphSource) String() string {
	return string(s)
}
