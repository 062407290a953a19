// Package theta implements substitutions that turn flat result rows back into
// structured terms.
//
// A Theta maps pattern variables to terms (other variables, templates or
// ground terms) or to result columns. Dependencies between variables are
// kept in a directed acyclic graph over variable names, and Instantiate
// replays a row through the graph in topological order.
package theta

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

var (
	// ErrCycle is returned by Add when the insertion would create a
	// dependency cycle. It indicates a broken mapping rule.
	ErrCycle = errors.New("theta: dependency cycle")
	// ErrDecode is returned by Instantiate when a row value cannot be
	// decoded into the kind of its variable.
	ErrDecode = errors.New("theta: cannot decode row value")
)

// Column is a value read from the result row column Name.
type Column struct {
	Name string
}

// Theta is a substitution. The zero value is not usable; use New.
type Theta struct {
	terms    map[model.Variable]model.Term
	columns  map[model.Variable]string
	defaults map[model.Variable]model.Term
	homonyms map[string][]model.Variable
	nodes    map[string]int64
	names    []string
	graph    *simple.DirectedGraph
}

// New creates an empty substitution.
func New() *Theta {
	return &Theta{
		terms:    make(map[model.Variable]model.Term),
		columns:  make(map[model.Variable]string),
		defaults: make(map[model.Variable]model.Term),
		homonyms: make(map[string][]model.Variable),
		nodes:    make(map[string]int64),
		graph:    simple.NewDirectedGraph(),
	}
}

func (th *Theta) node(name string) graph.Node {
	if id, ok := th.nodes[name]; ok {
		return th.graph.Node(id)
	}
	id := int64(len(th.names))
	th.nodes[name] = id
	th.names = append(th.names, name)
	n := simple.Node(id)
	th.graph.AddNode(n)
	return n
}

func (th *Theta) register(v model.Variable) graph.Node {
	for _, h := range th.homonyms[v.Name] {
		if h == v {
			return th.node(v.Name)
		}
	}
	th.homonyms[v.Name] = append(th.homonyms[v.Name], v)
	return th.node(v.Name)
}

// Add records that v takes value, which is either a model.Term or a Column.
// A later Add for the same variable replaces its value.
func (th *Theta) Add(v model.Variable, value any) error {
	switch x := value.(type) {
	case Column:
		th.register(v)
		delete(th.terms, v)
		th.columns[v] = x.Name
		return nil
	case model.Term:
		to := th.register(v)
		for _, dep := range model.Variables(x) {
			if dep.Name == v.Name {
				return fmt.Errorf("%w: %s depends on itself", ErrCycle, v)
			}
			th.register(dep)
			from := th.node(dep.Name)
			if th.graph.HasEdgeFromTo(from.ID(), to.ID()) {
				continue
			}
			if topo.PathExistsIn(th.graph, to, from) {
				return fmt.Errorf("%w: %s and %s", ErrCycle, v, dep)
			}
			th.graph.SetEdge(th.graph.NewEdge(from, to))
		}
		delete(th.columns, v)
		th.terms[v] = x
		return nil
	}
	return fmt.Errorf("theta: unsupported value %T for %s", value, v)
}

// AddDefault records the value v takes when nothing else resolves it. A nil
// term makes v resolve to absent.
func (th *Theta) AddDefault(v model.Variable, t model.Term) {
	th.register(v)
	th.defaults[v] = t
}

// Column returns the column v is read from.
func (th *Theta) Column(v model.Variable) (string, bool) {
	name, ok := th.columns[v]
	return name, ok
}

// Columns returns every column name in registration order.
func (th *Theta) Columns() []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range th.names {
		for _, v := range th.homonyms[name] {
			if c, ok := th.columns[v]; ok && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Resolve applies the recorded term values to t. Variables read from
// columns are left in place.
func (th *Theta) Resolve(t model.Term) model.Term {
	return model.Instantiate(t, model.Bindings(th.terms))
}

// order returns the variable names in topological order, ties broken by
// registration order.
func (th *Theta) order() ([]string, error) {
	sorted, err := topo.SortStabilized(th.graph, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	names := make([]string, len(sorted))
	for i, n := range sorted {
		names[i] = th.names[n.ID()]
	}
	return names, nil
}

// Instantiate resolves every variable it can from row. The returned bindings
// map a variable to nil when it resolved to absent; unresolved variables are
// missing. Instantiate does not modify th.
func (th *Theta) Instantiate(row rdf.Row) (model.Bindings, error) {
	names, err := th.order()
	if err != nil {
		return nil, err
	}
	out := make(model.Bindings)
	for _, name := range names {
		var (
			best  model.Term
			score = -1
		)
		for _, v := range th.homonyms[name] {
			val, ok, err := th.candidate(v, row, out)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if s := th.freeVariables(v); score < 0 || s < score {
				best, score = val, s
			}
		}
		if score < 0 {
			for _, v := range th.homonyms[name] {
				if def, ok := th.defaults[v]; ok {
					best, score = def, 0
					break
				}
			}
		}
		if score < 0 {
			continue
		}
		for _, v := range th.homonyms[name] {
			if best == nil || v.Type.Includes(best.Kind()) {
				out[v] = best
			}
		}
	}
	return out, nil
}

// candidate computes the value v gets from its own record, if any.
func (th *Theta) candidate(v model.Variable, row rdf.Row, resolved model.Bindings) (model.Term, bool, error) {
	if col, ok := th.columns[v]; ok {
		raw, present := row[col]
		if !present || raw == nil {
			return nil, false, nil
		}
		t, err := Decode(raw, v.Type)
		if err != nil {
			return nil, false, err
		}
		return t, true, nil
	}
	rec, ok := th.terms[v]
	if !ok {
		return nil, false, nil
	}
	if u, isVar := rec.(model.Variable); isVar {
		val, done := resolved[u]
		return val, done, nil
	}
	for _, dep := range model.Variables(rec) {
		if _, done := resolved[dep]; !done {
			return nil, false, nil
		}
	}
	return model.Instantiate(rec, resolved), true, nil
}

// freeVariables ranks the record of v: columns and ground terms have none,
// templates have as many as they contain.
func (th *Theta) freeVariables(v model.Variable) int {
	if rec, ok := th.terms[v]; ok {
		return len(model.Variables(rec))
	}
	return 0
}
