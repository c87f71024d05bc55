package store

import (
	"path/filepath"
	"testing"
)

func TestLocalDataPath(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"relative root", ".", filepath.Join(".", ".diffsim")},
		{"absolute root", "/tmp/project", filepath.Join("/tmp/project", ".diffsim")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalDataPath(tt.root); got != tt.want {
				t.Errorf("LocalDataPath(%q) = %v, want %v", tt.root, got, tt.want)
			}
		})
	}
}

func TestDefaultDBPath(t *testing.T) {
	got := DefaultDBPath("/tmp/project")
	want := filepath.Join("/tmp/project", ".diffsim", "graph.db")
	if got != want {
		t.Errorf("DefaultDBPath() = %v, want %v", got, want)
	}
}
