package diffusion

import (
	"fmt"
	"math"
	"sort"
)

// ParamSpec declares one model-level or edge-level scalar parameter.
type ParamSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Min         float64  `json:"min" yaml:"min"`
	Max         float64  `json:"max" yaml:"max"`
	Integral    bool     `json:"integral,omitempty" yaml:"integral,omitempty"`
	Optional    bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	Default     *float64 `json:"default,omitempty" yaml:"default,omitempty"`
}

// Defaults returns a pointer to v, for use as ParamSpec.Default.
func Defaults(v float64) *float64 {
	return &v
}

// check validates v against the declared range.
func (s ParamSpec) check(v float64) error {
	if math.IsNaN(v) || v < s.Min || v > s.Max {
		return &ConfigError{
			Code:      ErrCodeOutOfRange,
			Message:   fmt.Sprintf("value %v outside [%v, %v]", v, s.Min, s.Max),
			Parameter: s.Name,
		}
	}
	if s.Integral && v != math.Trunc(v) {
		return &ConfigError{
			Code:      ErrCodeOutOfRange,
			Message:   fmt.Sprintf("value %v must be an integer in [%v, %v]", v, s.Min, s.Max),
			Parameter: s.Name,
		}
	}
	return nil
}

// ParamSchema lists the parameters a model recognizes in each namespace.
// Node-level parameters are free-form string annotations.
type ParamSchema struct {
	Model []ParamSpec `json:"model"`
	Nodes []string    `json:"nodes,omitempty"`
	Edges []ParamSpec `json:"edges,omitempty"`
}

// Pair is an edge key. For undirected graphs (U,V) and (V,U) name the same
// edge, but lookups still try the configured order first.
type Pair struct {
	U string `json:"source" yaml:"source"`
	V string `json:"target" yaml:"target"`
}

// Config is the unresolved model configuration handed to NewEngine.
type Config struct {
	// Model holds model-level scalars by name.
	Model map[string]float64

	// Nodes holds node-level annotations: parameter -> node -> value.
	Nodes map[string]map[string]string

	// Edges holds edge-level overrides: parameter -> pair -> value.
	Edges map[string]map[Pair]float64

	// Initial selects the starting statuses.
	Initial InitialStatus
}

// Params is the resolved, validated parameter store. It is read-only once
// the engine is built.
type Params struct {
	directed bool
	model    map[string]float64
	nodes    map[string]map[string]string
	edges    map[string]map[Pair]float64
}

// Float returns a model-level parameter. Optional parameters without a
// default that were not configured read as 0.
func (p *Params) Float(name string) float64 {
	return p.model[name]
}

// Has reports whether a model-level parameter is set.
func (p *Params) Has(name string) bool {
	_, ok := p.model[name]
	return ok
}

// Model returns a copy of the model-level parameters in effect.
func (p *Params) Model() map[string]float64 {
	out := make(map[string]float64, len(p.model))
	for k, v := range p.model {
		out[k] = v
	}
	return out
}

// Node returns the node-level annotation name for id.
func (p *Params) Node(name, id string) (string, bool) {
	v, ok := p.nodes[name][id]
	return v, ok
}

// Edge returns the edge-level value name for (u, v). The configured (u, v)
// entry wins; (v, u) is consulted only on undirected graphs.
func (p *Params) Edge(name, u, v string) (float64, bool) {
	m := p.edges[name]
	if m == nil {
		return 0, false
	}
	if val, ok := m[Pair{U: u, V: v}]; ok {
		return val, true
	}
	if p.directed {
		return 0, false
	}
	val, ok := m[Pair{U: v, V: u}]
	return val, ok
}

// ResolveParams validates cfg against schema and the graph, applies
// defaults, and returns the parameter store. All failures are
// *ConfigError values.
func ResolveParams(schema ParamSchema, cfg Config, g Graph) (*Params, error) {
	p := &Params{
		directed: g.Directed(),
		model:    make(map[string]float64, len(schema.Model)),
		nodes:    make(map[string]map[string]string),
		edges:    make(map[string]map[Pair]float64),
	}

	known := make(map[string]bool, len(schema.Model))
	for _, spec := range schema.Model {
		known[spec.Name] = true
	}
	for _, name := range sortedKeys(cfg.Model) {
		if !known[name] {
			return nil, &ConfigError{Code: ErrCodeUnknownParameter, Message: "model parameter not recognized", Parameter: name}
		}
	}

	for _, spec := range schema.Model {
		v, ok := cfg.Model[spec.Name]
		switch {
		case ok:
			if err := spec.check(v); err != nil {
				return nil, err
			}
			p.model[spec.Name] = v
		case spec.Default != nil:
			p.model[spec.Name] = *spec.Default
		case spec.Optional:
		default:
			return nil, &ConfigError{Code: ErrCodeMissingParameter, Message: "required model parameter not set", Parameter: spec.Name}
		}
	}

	nodeNames := make(map[string]bool, len(schema.Nodes))
	for _, name := range schema.Nodes {
		nodeNames[name] = true
	}
	for _, name := range sortedKeys(cfg.Nodes) {
		if !nodeNames[name] {
			return nil, &ConfigError{Code: ErrCodeUnknownParameter, Message: "node parameter not recognized", Parameter: name}
		}
		values := cfg.Nodes[name]
		resolved := make(map[string]string, len(values))
		for _, id := range sortedKeys(values) {
			if !g.Has(id) {
				return nil, &ConfigError{Code: ErrCodeUnknownNode, Message: "node not in graph", Parameter: name, Node: id}
			}
			resolved[id] = values[id]
		}
		p.nodes[name] = resolved
	}

	edgeSpecs := make(map[string]ParamSpec, len(schema.Edges))
	for _, spec := range schema.Edges {
		edgeSpecs[spec.Name] = spec
	}
	for _, name := range sortedKeys(cfg.Edges) {
		spec, ok := edgeSpecs[name]
		if !ok {
			return nil, &ConfigError{Code: ErrCodeUnknownParameter, Message: "edge parameter not recognized", Parameter: name}
		}
		values := cfg.Edges[name]
		resolved := make(map[Pair]float64, len(values))
		for pair, v := range values {
			for _, id := range []string{pair.U, pair.V} {
				if !g.Has(id) {
					return nil, &ConfigError{Code: ErrCodeUnknownNode, Message: "edge endpoint not in graph", Parameter: name, Node: id}
				}
			}
			if err := spec.check(v); err != nil {
				return nil, err
			}
			resolved[pair] = v
		}
		p.edges[name] = resolved
	}

	return p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
