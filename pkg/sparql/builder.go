package sparql

import (
	"fmt"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// TypeError reports a term used in a position it cannot occupy. It is raised
// with panic: an ill-typed node is a bug in the code building the query.
type TypeError struct {
	Op       string
	Position string
	Value    any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("sparql: %s: bad %s: %v", e.Op, e.Position, e.Value)
}

// NewSelect creates a SELECT query projecting the given variables (none
// means SELECT *).
func NewSelect(vars ...*rdf.Variable) *Query {
	q := &Query{Form: QueryFormSelect, Where: &GraphPattern{Type: GraphPatternTypeGroup}}
	for _, v := range vars {
		q.Project(v, nil)
	}
	return q
}

// NewAsk creates an ASK query.
func NewAsk() *Query {
	return &Query{Form: QueryFormAsk, Where: &GraphPattern{Type: GraphPatternTypeGroup}}
}

// Project appends a projection item; a nil expression projects v itself.
func (q *Query) Project(v *rdf.Variable, expr Expression) {
	if v == nil {
		panic(&TypeError{Op: "project", Position: "variable", Value: v})
	}
	for _, p := range q.Projection {
		if p.Variable.Name == v.Name {
			return
		}
	}
	q.Projection = append(q.Projection, &Projection{Variable: v, Expression: expr})
}

// Projects reports whether v is projected (SELECT * projects everything).
func (q *Query) Projects(v *rdf.Variable) bool {
	if len(q.Projection) == 0 {
		return true
	}
	for _, p := range q.Projection {
		if p.Variable.Name == v.Name {
			return true
		}
	}
	return false
}

// Prefix registers a prefix used by the encoder for IRIs in its namespace.
func (q *Query) Prefix(name, namespace string) {
	if q.Prefixes == nil {
		q.Prefixes = make(map[string]string)
	}
	q.Prefixes[name] = namespace
}

// Order appends an ORDER BY condition.
func (q *Query) Order(expr any, descending bool) {
	q.OrderBy = append(q.OrderBy, &OrderCondition{Expression: E(expr), Descending: descending})
}

// SetLimit sets the LIMIT clause.
func (q *Query) SetLimit(n int) { q.Limit = &n }

// SetOffset sets the OFFSET clause.
func (q *Query) SetOffset(n int) { q.Offset = &n }

// Page returns a shallow copy of q with the given limit and offset. The
// graph pattern is shared and must not be modified through the copy.
func (q *Query) Page(limit, offset int) *Query {
	page := *q
	page.cursor = nil
	page.Limit = &limit
	page.Offset = &offset
	return &page
}

// AsAsk returns an ASK query over the graph pattern of q. The pattern is
// shared.
func (q *Query) AsAsk() *Query {
	return &Query{
		Form:        QueryFormAsk,
		Where:       q.Where,
		Prefixes:    q.Prefixes,
		alwaysFalse: q.alwaysFalse,
	}
}

// AsCount returns a query counting the solutions of q into v. q itself
// becomes a sub-select and is left unchanged.
func (q *Query) AsCount(v *rdf.Variable) *Query {
	if q.Form != QueryFormSelect {
		panic(&TypeError{Op: "count", Position: "query", Value: q.Form})
	}
	count := *q
	count.cursor = nil
	count.Nest()
	count.Projection = nil
	count.Project(v, Count(nil, false))
	return &count
}

// Current returns the graph pattern new elements are appended to.
func (q *Query) Current() *GraphPattern {
	if n := len(q.cursor); n > 0 {
		return q.cursor[n-1]
	}
	return q.Where
}

func (q *Query) append(e Element) {
	gp := q.Current()
	gp.Elements = append(gp.Elements, e)
}

// Triple appends a triple pattern to the current graph pattern.
func (q *Query) Triple(s, p, o rdf.Term) {
	switch s.(type) {
	case *rdf.NamedNode, *rdf.BlankNode, *rdf.Variable:
	default:
		panic(&TypeError{Op: "triple", Position: "subject", Value: s})
	}
	switch p.(type) {
	case *rdf.NamedNode, *rdf.Variable:
	default:
		panic(&TypeError{Op: "triple", Position: "predicate", Value: p})
	}
	if o == nil {
		panic(&TypeError{Op: "triple", Position: "object", Value: o})
	}
	q.append(&TriplePattern{Subject: s, Predicate: p, Object: o})
}

// Bind appends BIND (expr AS ?v).
func (q *Query) Bind(expr any, v *rdf.Variable) {
	if v == nil {
		panic(&TypeError{Op: "bind", Position: "variable", Value: v})
	}
	q.append(&Bind{Expression: E(expr), Variable: v})
}

// Filter appends FILTER (expr).
func (q *Query) Filter(expr any) {
	q.append(&Filter{Expression: E(expr)})
}

// Comment appends a comment line.
func (q *Query) Comment(format string, args ...any) {
	q.append(&Comment{Text: fmt.Sprintf(format, args...)})
}

// Values appends a VALUES block over vars; rows are added with Add.
func (q *Query) Values(vars ...*rdf.Variable) *Values {
	for _, v := range vars {
		if v == nil {
			panic(&TypeError{Op: "values", Position: "variable", Value: v})
		}
	}
	values := &Values{Variables: vars}
	q.append(values)
	return values
}

// Add appends a row; nil terms are UNDEF.
func (v *Values) Add(row ...rdf.Term) *Values {
	if len(row) != len(v.Variables) {
		panic(&TypeError{Op: "values", Position: "row", Value: row})
	}
	for _, t := range row {
		switch t.(type) {
		case nil, *rdf.NamedNode, *rdf.Literal, *rdf.BlankNode:
		default:
			panic(&TypeError{Op: "values", Position: "row term", Value: t})
		}
	}
	v.Rows = append(v.Rows, row)
	return v
}

// SubSelect appends a nested SELECT query.
func (q *Query) SubSelect(inner *Query) {
	if inner == nil || inner.Form != QueryFormSelect {
		panic(&TypeError{Op: "subselect", Position: "query", Value: inner})
	}
	q.append(&SubSelect{Query: inner})
}

// Nest moves the body of q into a sub-select and leaves q selecting the
// projected variables from it. Modifiers, ordering, limit and offset move
// with the body; prefixes stay.
func (q *Query) Nest() *Query {
	if q.Form != QueryFormSelect {
		panic(&TypeError{Op: "nest", Position: "query", Value: q.Form})
	}
	inner := &Query{
		Form:        QueryFormSelect,
		Distinct:    q.Distinct,
		Reduced:     q.Reduced,
		Projection:  q.Projection,
		Where:       q.Where,
		OrderBy:     q.OrderBy,
		Limit:       q.Limit,
		Offset:      q.Offset,
		alwaysFalse: q.alwaysFalse,
	}
	q.Distinct, q.Reduced, q.alwaysFalse = false, false, false
	q.Projection = nil
	for _, p := range inner.Projection {
		q.Projection = append(q.Projection, &Projection{Variable: p.Variable})
	}
	q.Where = &GraphPattern{Type: GraphPatternTypeGroup, Elements: []Element{&SubSelect{Query: inner}}}
	q.OrderBy, q.Limit, q.Offset = nil, nil, nil
	q.cursor = nil
	return inner
}

// region runs fn with a fresh pattern of type t as current and returns the
// pattern when fn succeeds.
func (q *Query) region(t GraphPatternType, fn func() error) (*GraphPattern, error) {
	gp := &GraphPattern{Type: t}
	q.cursor = append(q.cursor, gp)
	defer func() { q.cursor = q.cursor[:len(q.cursor)-1] }()
	if err := fn(); err != nil {
		return nil, err
	}
	return gp, nil
}

func (q *Query) scoped(t GraphPatternType, fn func() error) error {
	gp, err := q.region(t, fn)
	if err != nil {
		return err
	}
	q.append(gp)
	return nil
}

// Group runs fn inside a nested { } group.
func (q *Query) Group(fn func() error) error {
	return q.scoped(GraphPatternTypeGroup, fn)
}

// Optional runs fn inside an OPTIONAL { } block.
func (q *Query) Optional(fn func() error) error {
	return q.scoped(GraphPatternTypeOptional, fn)
}

// FilterNotExists runs fn inside a FILTER NOT EXISTS { } block.
func (q *Query) FilterNotExists(fn func() error) error {
	return q.scoped(GraphPatternTypeFilterNotExists, fn)
}

// Union is an open UNION region. Branches are stashed in the union and the
// union itself reaches the query only when the enclosing Union call
// succeeds.
type Union struct {
	q  *Query
	gp *GraphPattern
}

// Union runs fn with a new union region. An empty union is dropped.
func (q *Query) Union(fn func(u *Union) error) error {
	u := &Union{q: q, gp: &GraphPattern{Type: GraphPatternTypeUnion}}
	if err := fn(u); err != nil {
		return err
	}
	if len(u.gp.Elements) > 0 {
		q.append(u.gp)
	}
	return nil
}

// Branch runs fn as one alternative of the union. A failing branch is
// discarded; branches already committed are left untouched.
func (u *Union) Branch(fn func() error) error {
	gp, err := u.q.region(GraphPatternTypeGroup, fn)
	if err != nil {
		return err
	}
	u.gp.Elements = append(u.gp.Elements, gp)
	return nil
}

// Len returns the number of committed branches.
func (u *Union) Len() int {
	return len(u.gp.Elements)
}

// WhereIsEmpty reports whether the top-level graph pattern has no elements.
func (q *Query) WhereIsEmpty() bool {
	return len(q.Where.Elements) == 0
}

// SetFalse turns q into a query with no solutions.
func (q *Query) SetFalse() {
	q.Where = &GraphPattern{Type: GraphPatternTypeGroup}
	q.cursor = nil
	q.alwaysFalse = true
}

// IsFalse reports whether q was turned into an always-false query.
func (q *Query) IsFalse() bool {
	return q.alwaysFalse
}

// String encodes the query as SPARQL text.
func (q *Query) String() string {
	return Encode(q)
}
