package simulation

import (
	"sort"

	"github.com/nvandessel/diffsim/internal/diffusion"
)

// Infected builds an initial status that seeds ids as Infected.
func Infected(ids ...string) diffusion.InitialStatus {
	return diffusion.InitialStatus{
		Nodes: map[string][]string{diffusion.InfectedStatus: ids},
	}
}

// SameCommunity assigns every id to one community under the com node
// parameter.
func SameCommunity(label string, ids []string) map[string]map[string]string {
	com := make(map[string]string, len(ids))
	for _, id := range ids {
		com[id] = label
	}
	return map[string]map[string]string{"com": com}
}

// NodesIn returns the nodes whose final status is name, sorted.
func NodesIn(result *Result, name string) []string {
	code, ok := result.Table.Code(name)
	if !ok {
		return nil
	}
	var ids []string
	for id, s := range result.Final {
		if s == code {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
