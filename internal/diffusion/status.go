package diffusion

import (
	"fmt"
)

// Status is a model-specific compartment code. A code only has meaning
// together with the StatusTable of the model that defines it.
type Status int

// StatusEntry names one compartment of a model.
type StatusEntry struct {
	Name string `json:"name" yaml:"name"`
	Code Status `json:"code" yaml:"code"`
}

// StatusTable is the ordered set of compartments a model publishes. The
// first entry is the default status assigned to unseeded nodes.
type StatusTable struct {
	entries []StatusEntry
	byName  map[string]Status
	byCode  map[Status]string
}

// NewStatusTable builds a table from entries. It panics on an empty table or
// a duplicated name or code, since tables are declared once per model.
func NewStatusTable(entries ...StatusEntry) *StatusTable {
	if len(entries) == 0 {
		panic("diffusion: empty status table")
	}
	t := &StatusTable{
		entries: make([]StatusEntry, len(entries)),
		byName:  make(map[string]Status, len(entries)),
		byCode:  make(map[Status]string, len(entries)),
	}
	copy(t.entries, entries)
	for _, e := range entries {
		if _, dup := t.byName[e.Name]; dup {
			panic(fmt.Sprintf("diffusion: duplicate status name %q", e.Name))
		}
		if _, dup := t.byCode[e.Code]; dup {
			panic(fmt.Sprintf("diffusion: duplicate status code %d", e.Code))
		}
		t.byName[e.Name] = e.Code
		t.byCode[e.Code] = e.Name
	}
	return t
}

// Entries returns the table in declaration order.
func (t *StatusTable) Entries() []StatusEntry {
	out := make([]StatusEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns status names in declaration order.
func (t *StatusTable) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of statuses.
func (t *StatusTable) Len() int {
	return len(t.entries)
}

// Default returns the status given to nodes without an explicit one.
func (t *StatusTable) Default() Status {
	return t.entries[0].Code
}

// Code looks up a status by name.
func (t *StatusTable) Code(name string) (Status, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Name returns the name of code, or a placeholder for unknown codes.
func (t *StatusTable) Name(code Status) string {
	if n, ok := t.byCode[code]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(code))
}

// Contains reports whether code belongs to the table.
func (t *StatusTable) Contains(code Status) bool {
	_, ok := t.byCode[code]
	return ok
}
