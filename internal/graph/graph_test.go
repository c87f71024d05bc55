package graph

import (
	"context"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/nvandessel/diffsim/internal/store"
)

func TestBuilder_Undirected(t *testing.T) {
	g := NewBuilder(false).
		AddEdge("a", "b").
		AddEdge("b", "a"). // same edge
		AddEdge("a", "c").
		AddNode("d").
		Build()

	if g.Directed() {
		t.Error("expected undirected graph")
	}
	if got, want := g.Nodes(), []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}

	tests := []struct {
		node string
		want []string
	}{
		{"a", []string{"b", "c"}},
		{"b", []string{"a"}},
		{"c", []string{"a"}},
		{"d", nil},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			if got := g.Neighbors(tt.node); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Neighbors(%s) = %v, want %v", tt.node, got, tt.want)
			}
			if got := g.Predecessors(tt.node); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Predecessors(%s) = %v, want %v", tt.node, got, tt.want)
			}
		})
	}
}

func TestBuilder_Directed(t *testing.T) {
	g := NewBuilder(true).
		AddEdge("a", "b").
		AddEdge("b", "a").
		AddEdge("c", "a").
		AddEdge("a", "b"). // parallel edge collapses
		Build()

	if !g.Directed() {
		t.Error("expected directed graph")
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
	if got := g.Neighbors("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Neighbors(a) = %v, want [b]", got)
	}
	if got := g.Predecessors("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Predecessors(a) = %v, want [b c]", got)
	}
	if got := g.Neighbors("c"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Neighbors(c) = %v, want [a]", got)
	}
	if got := g.Predecessors("c"); len(got) != 0 {
		t.Errorf("Predecessors(c) = %v, want empty", got)
	}
}

func TestBuilder_SelfLoop(t *testing.T) {
	g := NewBuilder(false).AddEdge("a", "a").Build()
	if got := g.Neighbors("a"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Neighbors(a) = %v, want [a]", got)
	}
}

func TestCommunityAndThresholds(t *testing.T) {
	g := NewBuilder(false).
		SetCommunity("a", "x").
		AddEdge("a", "b").
		SetEdgeThreshold("a", "b", 0.3).
		Build()

	if c, ok := g.Community("a"); !ok || c != "x" {
		t.Errorf("Community(a) = %q, %v; want x, true", c, ok)
	}
	if _, ok := g.Community("b"); ok {
		t.Error("Community(b) should be unset")
	}
	th := g.EdgeThresholds()
	if th[[2]string{"a", "b"}] != 0.3 {
		t.Errorf("threshold(a,b) = %v, want 0.3", th[[2]string{"a", "b"}])
	}
	th[[2]string{"a", "b"}] = 0.9
	if g.EdgeThresholds()[[2]string{"a", "b"}] != 0.3 {
		t.Error("EdgeThresholds must return a copy")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	s.AddNode(ctx, store.Node{ID: "n2", Metadata: map[string]interface{}{"community": float64(2)}})
	s.AddNode(ctx, store.Node{ID: "n1", Metadata: map[string]interface{}{"community": "left"}})
	s.AddNode(ctx, store.Node{ID: "n3"})
	s.AddEdge(ctx, store.Edge{Source: "n1", Target: "n2", Metadata: map[string]interface{}{"threshold": 0.6}})
	s.AddEdge(ctx, store.Edge{Source: "n2", Target: "n3"})

	g, err := Load(ctx, s, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := g.Nodes(), []string{"n2", "n1", "n3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if c, _ := g.Community("n2"); c != "2" {
		t.Errorf("Community(n2) = %q, want 2", c)
	}
	if c, _ := g.Community("n1"); c != "left" {
		t.Errorf("Community(n1) = %q, want left", c)
	}
	if got := g.Neighbors("n2"); !reflect.DeepEqual(got, []string{"n1", "n3"}) {
		t.Errorf("Neighbors(n2) = %v, want [n1 n3]", got)
	}
	if th := g.EdgeThresholds()[[2]string{"n1", "n2"}]; th != 0.6 {
		t.Errorf("threshold(n1,n2) = %v, want 0.6", th)
	}
}

func TestLoad_BadThreshold(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	s.AddNode(ctx, store.Node{ID: "a"})
	s.AddNode(ctx, store.Node{ID: "b"})
	s.AddEdge(ctx, store.Edge{Source: "a", Target: "b", Metadata: map[string]interface{}{"threshold": "high"}})

	if _, err := Load(ctx, s, false); err == nil {
		t.Error("expected error for non-numeric threshold")
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		spec      Spec
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{"cycle", Spec{Kind: KindCycle, N: 4}, 4, 4, false},
		{"cycle of one", Spec{Kind: KindCycle, N: 1}, 1, 0, false},
		{"complete undirected", Spec{Kind: KindComplete, N: 5}, 5, 10, false},
		{"complete directed", Spec{Kind: KindComplete, N: 4, Directed: true}, 4, 12, false},
		{"erdos renyi p=0", Spec{Kind: KindErdosRenyi, N: 10, P: 0}, 10, 0, false},
		{"erdos renyi p=1", Spec{Kind: KindErdosRenyi, N: 6, P: 1}, 6, 15, false},
		{"planted partition isolated blocks", Spec{Kind: KindPlantedPartition, N: 6, P: 1, POut: 0, Communities: 2}, 6, 6, false},
		{"unknown kind", Spec{Kind: "lattice", N: 3}, 0, 0, true},
		{"bad p", Spec{Kind: KindErdosRenyi, N: 3, P: 2}, 0, 0, true},
		{"planted partition without communities", Spec{Kind: KindPlantedPartition, N: 3}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Generate(tt.spec, rand.New(rand.NewPCG(1, 1)))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if g.Len() != tt.wantNodes {
				t.Errorf("Len() = %d, want %d", g.Len(), tt.wantNodes)
			}
			if g.EdgeCount() != tt.wantEdges {
				t.Errorf("EdgeCount() = %d, want %d", g.EdgeCount(), tt.wantEdges)
			}
		})
	}
}

func TestGenerate_CommunitiesAreContiguousBlocks(t *testing.T) {
	g, err := Generate(Spec{Kind: KindCycle, N: 4, Communities: 2}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := map[string]string{"0": "0", "1": "0", "2": "1", "3": "1"}
	for id, c := range want {
		if got, _ := g.Community(id); got != c {
			t.Errorf("Community(%s) = %q, want %q", id, got, c)
		}
	}
}

func TestGenerate_SeededIsReproducible(t *testing.T) {
	spec := Spec{Kind: KindErdosRenyi, N: 50, P: 0.1}
	g1, _ := Generate(spec, rand.New(rand.NewPCG(7, 7)))
	g2, _ := Generate(spec, rand.New(rand.NewPCG(7, 7)))
	for _, id := range g1.Nodes() {
		if !reflect.DeepEqual(g1.Neighbors(id), g2.Neighbors(id)) {
			t.Fatalf("neighbors of %s differ between seeded runs", id)
		}
	}
}
