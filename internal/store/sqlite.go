// Package store provides graph storage implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteGraphStore implements GraphStore using SQLite for persistence.
// Graphs imported once can be reused across many simulation runs.
type SQLiteGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteGraphStore opens (or creates) the graph database at dbPath.
func NewSQLiteGraphStore(dbPath string) (*SQLiteGraphStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteGraphStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteGraphStore) Path() string {
	return s.dbPath
}

// AddNode adds a node to the store. Re-adding an existing ID replaces its
// content but keeps its original sequence.
func (s *SQLiteGraphStore) AddNode(ctx context.Context, node Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return "", fmt.Errorf("node ID is required")
	}

	content, err := marshalMap(node.Content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	metadata, err := marshalMap(node.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, kind, content, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			content = excluded.content,
			metadata = excluded.metadata
	`, node.ID, node.Kind, content, metadata)
	if err != nil {
		return "", fmt.Errorf("failed to add node: %w", err)
	}

	return node.ID, nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *SQLiteGraphStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, kind, content, metadata FROM nodes WHERE id = ?`, id)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return node, nil
}

// DeleteNode removes a node; its edges are removed by the foreign key cascade.
func (s *SQLiteGraphStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// QueryNodes returns nodes matching the predicate, in insertion order.
// "kind" and "id" are filtered in SQL; other keys are matched against
// content and metadata in Go.
func (s *SQLiteGraphStore) QueryNodes(ctx context.Context, predicate map[string]interface{}) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, kind, content, metadata FROM nodes WHERE 1=1`
	var args []interface{}
	if kind, ok := predicate["kind"].(string); ok {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if id, ok := predicate["id"].(string); ok {
		query += " AND id = ?"
		args = append(args, id)
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if matchesPredicate(*node, predicate) {
			nodes = append(nodes, *node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	return nodes, nil
}

// AddEdge adds an edge to the store. An edge with the same source, target
// and kind is updated in place.
func (s *SQLiteGraphStore) AddEdge(ctx context.Context, edge Edge) error {
	if err := validateEdge(edge); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, err := marshalMap(edge.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edges (source, target, kind, weight, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, target, kind) DO UPDATE SET
			weight = excluded.weight,
			metadata = excluded.metadata
	`, edge.Source, edge.Target, edge.Kind, edge.Weight, metadata)
	if err != nil {
		return fmt.Errorf("failed to add edge: %w", err)
	}

	return nil
}

// RemoveEdge removes an edge matching source, target, and kind.
func (s *SQLiteGraphStore) RemoveEdge(ctx context.Context, source, target, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM edges WHERE source = ? AND target = ? AND kind = ?
	`, source, target, kind)
	if err != nil {
		return fmt.Errorf("failed to remove edge: %w", err)
	}

	return nil
}

// GetEdges returns edges connected to a node, in insertion order.
func (s *SQLiteGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction, kind string) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	var args []interface{}

	switch direction {
	case DirectionOutbound:
		query = `SELECT source, target, kind, weight, metadata FROM edges WHERE source = ?`
		args = append(args, nodeID)
	case DirectionInbound:
		query = `SELECT source, target, kind, weight, metadata FROM edges WHERE target = ?`
		args = append(args, nodeID)
	case DirectionBoth:
		query = `SELECT source, target, kind, weight, metadata FROM edges WHERE (source = ? OR target = ?)`
		args = append(args, nodeID, nodeID)
	default:
		return nil, fmt.Errorf("unknown direction: %q", direction)
	}

	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY seq"

	return s.queryEdges(ctx, query, args...)
}

// AllEdges returns every edge in insertion order.
func (s *SQLiteGraphStore) AllEdges(ctx context.Context) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx, `SELECT source, target, kind, weight, metadata FROM edges ORDER BY seq`)
}

func (s *SQLiteGraphStore) queryEdges(ctx context.Context, query string, args ...interface{}) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := make([]Edge, 0)
	for rows.Next() {
		var edge Edge
		var metadataJSON sql.NullString

		if err := rows.Scan(&edge.Source, &edge.Target, &edge.Kind, &edge.Weight, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if metadataJSON.Valid {
			var metadata map[string]interface{}
			if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err == nil {
				edge.Metadata = metadata
			}
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return edges, nil
}

// Sync is a no-op: every write is committed immediately.
func (s *SQLiteGraphStore) Sync(ctx context.Context) error {
	return nil
}

// Close closes the underlying database.
func (s *SQLiteGraphStore) Close() error {
	return s.db.Close()
}

// Helper functions

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*Node, error) {
	var node Node
	var content, metadata sql.NullString
	if err := row.Scan(&node.ID, &node.Kind, &content, &metadata); err != nil {
		return nil, err
	}
	if content.Valid {
		if err := json.Unmarshal([]byte(content.String), &node.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content: %w", err)
		}
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &node.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &node, nil
}

func marshalMap(m map[string]interface{}) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
