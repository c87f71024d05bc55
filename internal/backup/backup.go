// Package backup writes and restores compressed snapshots of a contact
// graph database.
//
// A snapshot file is one JSON header line followed by a gzip-compressed
// JSON payload. The header carries a SHA-256 checksum of the compressed
// bytes and the node and edge counts, so listings never decompress.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/diffsim/internal/store"
)

// FormatVersion is the snapshot format written by Write.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// filePrefix and fileExt name snapshot files inside a backup directory.
const (
	filePrefix = "graph-"
	fileExt    = ".snap"
)

// Snapshot is the payload of a snapshot file.
type Snapshot struct {
	CreatedAt time.Time    `json:"created_at"`
	Nodes     []store.Node `json:"nodes"`
	Edges     []store.Edge `json:"edges"`
}

// Header is the plain-text first line of a snapshot file.
type Header struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// Info describes a snapshot file found by List.
type Info struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Header Header `json:"header"`
}

// DefaultDir returns the snapshot directory for a project root.
func DefaultDir(projectRoot string) string {
	return filepath.Join(store.LocalDataPath(projectRoot), "backups")
}

// GeneratePath creates a timestamped snapshot filename in dir.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, filePrefix+now.UTC().Format("20060102-150405.000")+fileExt)
}

// Backup writes every node and edge of gs to path, in insertion order.
func Backup(ctx context.Context, gs store.GraphStore, path string) (*Header, error) {
	nodes, err := gs.QueryNodes(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	edges, err := gs.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}

	snap := &Snapshot{
		CreatedAt: time.Now().UTC(),
		Nodes:     nodes,
		Edges:     edges,
	}
	return Write(path, snap)
}

// Write stores snap at path as a header line plus gzip payload.
func Write(path string, snap *Snapshot) (*Header, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := &Header{
		Version:   FormatVersion,
		CreatedAt: snap.CreatedAt,
		Checksum:  checksum(compressed.Bytes()),
		NodeCount: len(snap.Nodes),
		EdgeCount: len(snap.Edges),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	var file bytes.Buffer
	file.Write(headerBytes)
	file.WriteByte('\n')
	file.Write(compressed.Bytes())
	if err := os.WriteFile(path, file.Bytes(), 0600); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	return header, nil
}

// ReadHeader reads only the header line of a snapshot file.
func ReadHeader(path string) (*Header, error) {
	header, _, err := open(path, false)
	return header, err
}

// Verify checks the payload checksum without decompressing.
func Verify(path string) error {
	_, _, err := open(path, true)
	return err
}

// Read verifies and decompresses a snapshot file.
func Read(path string) (*Snapshot, error) {
	_, compressed, err := open(path, true)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(decompressed) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var snap Snapshot
	if err := json.Unmarshal(decompressed, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

// open parses the header and, when withPayload is set, reads the
// compressed payload and checks it against the header checksum.
func open(path string, withPayload bool) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(headerLine), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported snapshot version: %d", header.Version)
	}
	if !withPayload {
		return &header, nil, nil
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressed); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return &header, compressed, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// RestoreMode controls how restore handles existing data.
type RestoreMode string

const (
	// RestoreMerge skips nodes that already exist (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	NodesRestored int `json:"nodes_restored"`
	NodesSkipped  int `json:"nodes_skipped"`
	EdgesRestored int `json:"edges_restored"`
	EdgesSkipped  int `json:"edges_skipped"`
}

// Restore loads a snapshot file into gs.
func Restore(ctx context.Context, gs store.GraphStore, path string, mode RestoreMode) (*RestoreResult, error) {
	snap, err := Read(path)
	if err != nil {
		return nil, err
	}

	if mode == RestoreReplace {
		existing, err := gs.QueryNodes(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to query nodes: %w", err)
		}
		for _, n := range existing {
			if err := gs.DeleteNode(ctx, n.ID); err != nil {
				return nil, fmt.Errorf("failed to clear node %s: %w", n.ID, err)
			}
		}
	}

	result := &RestoreResult{}
	for _, node := range snap.Nodes {
		if mode == RestoreMerge {
			existing, err := gs.GetNode(ctx, node.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check existing node %s: %w", node.ID, err)
			}
			if existing != nil {
				result.NodesSkipped++
				continue
			}
		}
		if _, err := gs.AddNode(ctx, node); err != nil {
			return nil, fmt.Errorf("failed to restore node %s: %w", node.ID, err)
		}
		result.NodesRestored++
	}

	for _, edge := range snap.Edges {
		if err := gs.AddEdge(ctx, edge); err != nil {
			if mode == RestoreMerge {
				result.EdgesSkipped++
				continue
			}
			return nil, fmt.Errorf("failed to restore edge %s->%s: %w", edge.Source, edge.Target, err)
		}
		result.EdgesRestored++
	}

	if err := gs.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync after restore: %w", err)
	}
	return result, nil
}

// List returns the snapshots in dir, newest first. Files whose header
// cannot be read are skipped.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var snaps []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		header, err := ReadHeader(path)
		if err != nil {
			continue
		}
		snaps = append(snaps, Info{Path: path, Size: fi.Size(), Header: *header})
	}

	// Timestamp is embedded in the name.
	sort.Slice(snaps, func(i, j int) bool {
		return filepath.Base(snaps[i].Path) > filepath.Base(snaps[j].Path)
	})
	return snaps, nil
}

// Prune keeps the keep most recent snapshots in dir and deletes the rest.
func Prune(dir string, keep int) (deleted []string, err error) {
	snaps, err := List(dir)
	if err != nil {
		return nil, err
	}
	if keep < 0 || len(snaps) <= keep {
		return nil, nil
	}
	for _, s := range snaps[keep:] {
		if err := os.Remove(s.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(s.Path), err)
		}
		deleted = append(deleted, s.Path)
	}
	return deleted, nil
}
