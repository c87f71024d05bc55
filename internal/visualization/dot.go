// Package visualization renders diffusion runs: the graph colored by node
// status, and the per-status trends as CSV, JSON, text or an HTML chart.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/graph"
)

// Format specifies the output format for rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat maps a name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON, FormatHTML, FormatCSV, FormatText:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// statusColors maps common status names to colors usable in both DOT and SVG.
var statusColors = map[string]string{
	"Susceptible": "steelblue",
	"Exposed":     "goldenrod",
	"Infected":    "tomato",
	"Removed":     "mediumseagreen",
}

var fallbackColors = []string{"slateblue", "orchid", "darkcyan", "sienna", "gray"}

// colorFor picks the color of a status; unknown names cycle through the
// fallback palette by table position.
func colorFor(name string, position int) string {
	if c, ok := statusColors[name]; ok {
		return c
	}
	return fallbackColors[position%len(fallbackColors)]
}

// tableColors returns the color of every status code in table.
func tableColors(table *diffusion.StatusTable) map[diffusion.Status]string {
	colors := make(map[diffusion.Status]string, table.Len())
	for i, e := range table.Entries() {
		colors[e.Code] = colorFor(e.Name, i)
	}
	return colors
}

// RenderDOT produces a Graphviz DOT representation of g with every node
// filled by the color of its status.
func RenderDOT(g *graph.Graph, table *diffusion.StatusTable, status map[string]diffusion.Status) string {
	colors := tableColors(table)

	var b strings.Builder
	kind, arrow := "graph", "--"
	if g.Directed() {
		kind, arrow = "digraph", "->"
	}
	b.WriteString(kind + " diffsim {\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n\n")

	for _, id := range g.Nodes() {
		s, ok := status[id]
		if !ok {
			s = table.Default()
		}
		tooltip := table.Name(s)
		if c, ok := g.Community(id); ok {
			tooltip += " community=" + c
		}
		b.WriteString(fmt.Sprintf("  %q [fillcolor=%q, tooltip=%q];\n", id, colors[s], tooltip))
	}
	b.WriteString("\n")

	for _, e := range CollectEdges(g) {
		b.WriteString(fmt.Sprintf("  %q %s %q;\n", e[0], arrow, e[1]))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderGraphJSON produces a JSON graph representation with nodes and edges
// arrays.
func RenderGraphJSON(g *graph.Graph, table *diffusion.StatusTable, status map[string]diffusion.Status) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0, g.Len())
	for _, id := range g.Nodes() {
		s, ok := status[id]
		if !ok {
			s = table.Default()
		}
		entry := map[string]interface{}{
			"id":     id,
			"status": table.Name(s),
		}
		if c, ok := g.Community(id); ok {
			entry["community"] = c
		}
		jsonNodes = append(jsonNodes, entry)
	}

	edges := CollectEdges(g)
	jsonEdges := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"source": e[0],
			"target": e[1],
		})
	}

	return map[string]interface{}{
		"directed":   g.Directed(),
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

// CollectEdges lists every edge once, in node order. Undirected edges are
// reported from the endpoint that comes first.
func CollectEdges(g *graph.Graph) [][2]string {
	seen := make(map[[2]string]bool)
	var result [][2]string
	for _, u := range g.Nodes() {
		for _, v := range g.Neighbors(u) {
			key := [2]string{u, v}
			if !g.Directed() && v < u {
				key = [2]string{v, u}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, [2]string{u, v})
		}
	}
	return result
}
