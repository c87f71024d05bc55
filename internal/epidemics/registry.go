// Package epidemics is the registry of the diffusion models shipped with
// diffsim.
package epidemics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/epidemics/icep"
	"github.com/nvandessel/diffsim/internal/epidemics/seir"
)

var registry = map[string]func() diffusion.Rule{
	icep.Name: func() diffusion.Rule { return icep.New() },
	seir.Name: func() diffusion.Rule { return seir.New() },
}

// Description is a one-line summary per model, for listings.
var Description = map[string]string{
	icep.Name: "Independent cascades with community embeddedness and permeability",
	seir.Name: "Susceptible-Exposed-Infected-Removed with exponential hazards",
}

// New returns the rule registered under name (case-insensitive).
func New(name string) (diffusion.Rule, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names returns the registered model names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
