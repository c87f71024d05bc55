package store

import (
	"path/filepath"
)

const (
	// DataDirName is the per-project directory holding graph data.
	DataDirName = ".diffsim"

	// NodesFile and EdgesFile are the JSONL file names used by import/export.
	NodesFile = "nodes.jsonl"
	EdgesFile = "edges.jsonl"

	// DBFile is the SQLite graph database file name.
	DBFile = "graph.db"
)

// LocalDataPath returns the path to the local .diffsim directory
// for the given project root.
func LocalDataPath(projectRoot string) string {
	return filepath.Join(projectRoot, DataDirName)
}

// DefaultDBPath returns the SQLite graph database path for projectRoot.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(LocalDataPath(projectRoot), DBFile)
}
