// Package orggraph holds the read-only organization snapshot the chain
// builder walks: employees keyed by identity, linked by reports-to edges.
package orggraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
)

// Capability flags an employee may carry.
const (
	CapabilityBuyer          = "buyer"
	CapabilityFinanceOfficer = "finance_officer"
)

// Employee is a graph node. Values are copies; the graph never hands out
// references into its own storage.
type Employee struct {
	Identity     string
	Name         string
	Title        string
	Department   string
	ReportsTo    string // empty marks the organization root
	Level        int
	Capabilities []string
}

// HasCapability reports whether e carries the named flag.
func (e Employee) HasCapability(name string) bool {
	for _, c := range e.Capabilities {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Graph is immutable after New and safe for concurrent readers.
type Graph struct {
	byID        map[string]Employee
	departments map[string][]string
	dangling    []string
}

// NormalizeIdentity is the key form used for every lookup.
func NormalizeIdentity(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// New builds a graph. Duplicate or empty identities are rejected; reports-to
// references to unknown identities are kept and reported by Dangling.
func New(employees []Employee) (*Graph, error) {
	g := &Graph{
		byID:        make(map[string]Employee, len(employees)),
		departments: make(map[string][]string),
	}
	for i, e := range employees {
		id := NormalizeIdentity(e.Identity)
		if id == "" {
			return nil, fmt.Errorf("employee %d has empty identity", i)
		}
		if _, dup := g.byID[id]; dup {
			return nil, fmt.Errorf("duplicate employee identity %s", id)
		}
		e.Identity = id
		e.ReportsTo = NormalizeIdentity(e.ReportsTo)
		e.Capabilities = append([]string(nil), e.Capabilities...)
		g.byID[id] = e
		g.departments[e.Department] = append(g.departments[e.Department], id)
	}
	for _, e := range g.byID {
		if e.ReportsTo == "" {
			continue
		}
		if _, ok := g.byID[e.ReportsTo]; !ok {
			g.dangling = append(g.dangling, e.Identity)
		}
	}
	for _, ids := range g.departments {
		sort.Strings(ids)
	}
	sort.Strings(g.dangling)
	return g, nil
}

// FromConfig builds a graph from the directory file's employee records.
func FromConfig(f *config.DirectoryFile) (*Graph, error) {
	employees := make([]Employee, 0, len(f.Employees))
	for _, e := range f.Employees {
		employees = append(employees, Employee{
			Identity:     e.Identity,
			Name:         e.Name,
			Title:        e.Title,
			Department:   e.Department,
			ReportsTo:    e.ReportsTo,
			Level:        e.Level,
			Capabilities: e.Capabilities,
		})
	}
	return New(employees)
}

// Len returns the number of employees.
func (g *Graph) Len() int {
	return len(g.byID)
}

// FindByIdentity returns the employee, or false when the identity is unknown.
func (g *Graph) FindByIdentity(id string) (Employee, bool) {
	e, ok := g.byID[NormalizeIdentity(id)]
	if !ok {
		return Employee{}, false
	}
	return e.clone(), true
}

// Lookup is FindByIdentity with a typed NotFound error.
func (g *Graph) Lookup(id string) (Employee, error) {
	e, ok := g.FindByIdentity(id)
	if !ok {
		return Employee{}, errors.NotFound("employee", id)
	}
	return e, nil
}

// UpwardPath walks reports-to links starting at the node above id. The walk
// stops at the root, at a reference to an unknown identity, or at a node
// already visited. An unknown id yields an empty path.
func (g *Graph) UpwardPath(id string) []Employee {
	start, ok := g.byID[NormalizeIdentity(id)]
	if !ok {
		return nil
	}
	visited := map[string]bool{start.Identity: true}
	var path []Employee
	next := start.ReportsTo
	for next != "" && !visited[next] {
		e, ok := g.byID[next]
		if !ok {
			break
		}
		visited[next] = true
		path = append(path, e.clone())
		next = e.ReportsTo
	}
	return path
}

// Departments returns department names in sorted order.
func (g *Graph) Departments() []string {
	out := make([]string, 0, len(g.departments))
	for d := range g.departments {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Members returns the employees of a department sorted by identity.
func (g *Graph) Members(department string) []Employee {
	ids := g.departments[department]
	out := make([]Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.byID[id].clone())
	}
	return out
}

// WithCapability returns employees carrying the flag, sorted by identity.
func (g *Graph) WithCapability(name string) []Employee {
	var out []Employee
	for _, e := range g.byID {
		if e.HasCapability(name) {
			out = append(out, e.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Identities returns every identity in sorted order.
func (g *Graph) Identities() []string {
	out := make([]string, 0, len(g.byID))
	for id := range g.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Dangling lists employees whose reports-to points at an unknown identity.
func (g *Graph) Dangling() []string {
	return append([]string(nil), g.dangling...)
}

func (e Employee) clone() Employee {
	e.Capabilities = append([]string(nil), e.Capabilities...)
	return e
}
