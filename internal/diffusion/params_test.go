package diffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/diffsim/internal/graph"
)

func testSchema() ParamSchema {
	return ParamSchema{
		Model: []ParamSpec{
			{Name: "beta", Min: 0, Max: 1},
			{Name: "tp_rate", Min: 0, Max: 1, Integral: true, Default: Defaults(1)},
			{Name: "bias", Min: -1, Max: 1, Optional: true},
		},
		Nodes: []string{"com"},
		Edges: []ParamSpec{{Name: "threshold", Min: 0, Max: 1}},
	}
}

func TestResolveParams(t *testing.T) {
	g := graph.NewBuilder(false).AddEdge("a", "b").Build()

	tests := []struct {
		name     string
		cfg      Config
		wantCode ConfigErrorCode
	}{
		{"valid", Config{Model: map[string]float64{"beta": 0.5}}, ""},
		{"missing required", Config{}, ErrCodeMissingParameter},
		{"unknown model param", Config{Model: map[string]float64{"beta": 0.5, "delta": 1}}, ErrCodeUnknownParameter},
		{"above range", Config{Model: map[string]float64{"beta": 1.5}}, ErrCodeOutOfRange},
		{"below range", Config{Model: map[string]float64{"beta": -0.1}}, ErrCodeOutOfRange},
		{"non-integral", Config{Model: map[string]float64{"beta": 0.5, "tp_rate": 0.5}}, ErrCodeOutOfRange},
		{"unknown node param", Config{
			Model: map[string]float64{"beta": 0.5},
			Nodes: map[string]map[string]string{"group": {"a": "x"}},
		}, ErrCodeUnknownParameter},
		{"node param for missing node", Config{
			Model: map[string]float64{"beta": 0.5},
			Nodes: map[string]map[string]string{"com": {"z": "x"}},
		}, ErrCodeUnknownNode},
		{"unknown edge param", Config{
			Model: map[string]float64{"beta": 0.5},
			Edges: map[string]map[Pair]float64{"weight": {{U: "a", V: "b"}: 0.1}},
		}, ErrCodeUnknownParameter},
		{"edge endpoint missing", Config{
			Model: map[string]float64{"beta": 0.5},
			Edges: map[string]map[Pair]float64{"threshold": {{U: "a", V: "z"}: 0.1}},
		}, ErrCodeUnknownNode},
		{"edge value out of range", Config{
			Model: map[string]float64{"beta": 0.5},
			Edges: map[string]map[Pair]float64{"threshold": {{U: "a", V: "b"}: 2}},
		}, ErrCodeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolveParams(testSchema(), tt.cfg, g)
			if tt.wantCode == "" {
				require.NoError(t, err)
				require.NotNil(t, p)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Equal(t, tt.wantCode, ConfigErrorCodeOf(err))
		})
	}
}

func TestResolveParams_Defaults(t *testing.T) {
	g := graph.NewBuilder(false).AddNode("a").Build()

	p, err := ResolveParams(testSchema(), Config{Model: map[string]float64{"beta": 0.2}}, g)
	require.NoError(t, err)

	assert.Equal(t, 0.2, p.Float("beta"))
	assert.Equal(t, 1.0, p.Float("tp_rate"), "declared default applies")
	assert.False(t, p.Has("bias"), "optional parameter without default stays unset")
	assert.Equal(t, map[string]float64{"beta": 0.2, "tp_rate": 1}, p.Model())
}

func TestParams_EdgeLookup(t *testing.T) {
	cfg := Config{
		Model: map[string]float64{"beta": 0.5},
		Edges: map[string]map[Pair]float64{
			"threshold": {{U: "v", V: "u"}: 0.4},
		},
	}

	t.Run("undirected finds both orders", func(t *testing.T) {
		g := graph.NewBuilder(false).AddEdge("u", "v").Build()
		p, err := ResolveParams(testSchema(), cfg, g)
		require.NoError(t, err)

		got, ok := p.Edge("threshold", "u", "v")
		assert.True(t, ok)
		assert.Equal(t, 0.4, got)

		got, ok = p.Edge("threshold", "v", "u")
		assert.True(t, ok)
		assert.Equal(t, 0.4, got)
	})

	t.Run("directed finds only configured order", func(t *testing.T) {
		g := graph.NewBuilder(true).AddEdge("u", "v").AddEdge("v", "u").Build()
		p, err := ResolveParams(testSchema(), cfg, g)
		require.NoError(t, err)

		_, ok := p.Edge("threshold", "u", "v")
		assert.False(t, ok)

		got, ok := p.Edge("threshold", "v", "u")
		assert.True(t, ok)
		assert.Equal(t, 0.4, got)
	})

	t.Run("configured order wins over reverse", func(t *testing.T) {
		g := graph.NewBuilder(false).AddEdge("u", "v").Build()
		both := Config{
			Model: map[string]float64{"beta": 0.5},
			Edges: map[string]map[Pair]float64{
				"threshold": {{U: "u", V: "v"}: 0.1, {U: "v", V: "u"}: 0.9},
			},
		}
		p, err := ResolveParams(testSchema(), both, g)
		require.NoError(t, err)

		got, _ := p.Edge("threshold", "u", "v")
		assert.Equal(t, 0.1, got)
		got, _ = p.Edge("threshold", "v", "u")
		assert.Equal(t, 0.9, got)
	})

	t.Run("unset parameter", func(t *testing.T) {
		g := graph.NewBuilder(false).AddEdge("u", "v").Build()
		p, err := ResolveParams(testSchema(), Config{Model: map[string]float64{"beta": 0.5}}, g)
		require.NoError(t, err)
		_, ok := p.Edge("threshold", "u", "v")
		assert.False(t, ok)
	})
}

func TestParams_Node(t *testing.T) {
	g := graph.NewBuilder(false).AddEdge("a", "b").Build()
	p, err := ResolveParams(testSchema(), Config{
		Model: map[string]float64{"beta": 0.5},
		Nodes: map[string]map[string]string{"com": {"a": "left"}},
	}, g)
	require.NoError(t, err)

	c, ok := p.Node("com", "a")
	assert.True(t, ok)
	assert.Equal(t, "left", c)

	_, ok = p.Node("com", "b")
	assert.False(t, ok)
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Code: ErrCodeUnknownNode, Message: "node not in graph", Parameter: "com", Node: "z"}
	assert.Equal(t, "UNKNOWN_NODE: node not in graph (parameter=com, node=z)", err.Error())
	assert.False(t, IsStateError(err))
}
