package sparql

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

const indentUnit = "  "

var localNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_\-]*)$`)

type prefix struct {
	name      string
	namespace string
}

type encoder struct {
	b        strings.Builder
	prefixes []prefix
}

// Encode renders q as SPARQL text. Output depends only on q: elements are
// written in insertion order and prefixes sorted by name.
func Encode(q *Query) string {
	e := &encoder{}
	names := make([]string, 0, len(q.Prefixes))
	for name := range q.Prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.prefixes = append(e.prefixes, prefix{name: name, namespace: q.Prefixes[name]})
		e.b.WriteString("PREFIX " + name + ": <" + q.Prefixes[name] + ">\n")
	}
	e.query(q, 0)
	return e.b.String()
}

func (e *encoder) line(depth int, s string) {
	e.b.WriteString(strings.Repeat(indentUnit, depth))
	e.b.WriteString(s)
	e.b.WriteByte('\n')
}

func (e *encoder) query(q *Query, depth int) {
	switch q.Form {
	case QueryFormAsk:
		e.line(depth, "ASK")
	default:
		head := "SELECT"
		if q.Distinct {
			head += " DISTINCT"
		} else if q.Reduced {
			head += " REDUCED"
		}
		if len(q.Projection) == 0 {
			head += " *"
		}
		for _, p := range q.Projection {
			if p.Expression == nil {
				head += " " + p.Variable.String()
			} else {
				head += " (" + e.expr(p.Expression, true) + " AS " + p.Variable.String() + ")"
			}
		}
		e.line(depth, head)
	}

	e.line(depth, "WHERE {")
	if q.alwaysFalse {
		e.line(depth+1, "FILTER (false)")
	} else {
		e.elements(q.Where.Elements, depth+1)
	}
	e.line(depth, "}")

	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, c := range q.OrderBy {
			s := e.expr(c.Expression, true)
			if _, ok := c.Expression.(*TermExpression); !ok {
				s = "(" + s + ")"
			}
			if c.Descending {
				s = "DESC" + ensureParens(s)
			}
			parts[i] = s
		}
		e.line(depth, "ORDER BY "+strings.Join(parts, " "))
	}
	if q.Limit != nil {
		e.line(depth, "LIMIT "+strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		e.line(depth, "OFFSET "+strconv.Itoa(*q.Offset))
	}
}

func ensureParens(s string) string {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s
	}
	return "(" + s + ")"
}

func (e *encoder) elements(elements []Element, depth int) {
	for _, el := range elements {
		switch x := el.(type) {
		case *TriplePattern:
			e.line(depth, e.term(x.Subject)+" "+e.term(x.Predicate)+" "+e.term(x.Object)+" .")
		case *Bind:
			e.line(depth, "BIND ("+e.expr(x.Expression, true)+" AS "+x.Variable.String()+")")
		case *Filter:
			e.line(depth, "FILTER ("+e.expr(x.Expression, true)+")")
		case *Comment:
			e.line(depth, "# "+strings.ReplaceAll(x.Text, "\n", " "))
		case *Values:
			e.values(x, depth)
		case *SubSelect:
			e.line(depth, "{")
			e.query(x.Query, depth+1)
			e.line(depth, "}")
		case *GraphPattern:
			e.pattern(x, depth)
		}
	}
}

func (e *encoder) pattern(gp *GraphPattern, depth int) {
	switch gp.Type {
	case GraphPatternTypeUnion:
		for i, branch := range gp.Elements {
			if i > 0 {
				e.line(depth, "UNION")
			}
			if sub, ok := branch.(*GraphPattern); ok && sub.Type == GraphPatternTypeGroup {
				e.block(depth, "{", sub.Elements)
			} else {
				e.block(depth, "{", []Element{branch})
			}
		}
	case GraphPatternTypeOptional:
		e.block(depth, "OPTIONAL {", gp.Elements)
	case GraphPatternTypeFilterNotExists:
		e.block(depth, "FILTER NOT EXISTS {", gp.Elements)
	default:
		e.block(depth, "{", gp.Elements)
	}
}

func (e *encoder) block(depth int, open string, elements []Element) {
	e.line(depth, open)
	e.elements(elements, depth+1)
	e.line(depth, "}")
}

func (e *encoder) values(v *Values, depth int) {
	vars := make([]string, len(v.Variables))
	for i, x := range v.Variables {
		vars[i] = x.String()
	}
	e.line(depth, "VALUES ("+strings.Join(vars, " ")+") {")
	for _, row := range v.Rows {
		cells := make([]string, len(row))
		for i, t := range row {
			if t == nil {
				cells[i] = "UNDEF"
			} else {
				cells[i] = e.term(t)
			}
		}
		e.line(depth+1, "("+strings.Join(cells, " ")+")")
	}
	e.line(depth, "}")
}

func (e *encoder) term(t rdf.Term) string {
	switch x := t.(type) {
	case *rdf.NamedNode:
		return e.iri(x.IRI)
	case *rdf.Literal:
		if x.Language == "" && x.Datatype != nil && x.Datatype.IRI != rdf.XSDString.IRI {
			return `"` + rdf.EscapeString(x.Value) + `"^^` + e.iri(x.Datatype.IRI)
		}
		return x.String()
	default:
		return t.String()
	}
}

// iri writes the IRI in prefixed form when the longest matching namespace
// leaves a simple local name.
func (e *encoder) iri(iri string) string {
	best := -1
	for i, p := range e.prefixes {
		if strings.HasPrefix(iri, p.namespace) && localNameRegexp.MatchString(iri[len(p.namespace):]) {
			if best < 0 || len(p.namespace) > len(e.prefixes[best].namespace) {
				best = i
			}
		}
	}
	if best < 0 {
		return rdf.NewNamedNode(iri).String()
	}
	p := e.prefixes[best]
	return p.name + ":" + iri[len(p.namespace):]
}

// expr renders an expression; binary expressions are parenthesized unless
// top is set (the caller already supplies parentheses).
func (e *encoder) expr(x Expression, top bool) string {
	switch x := x.(type) {
	case *TermExpression:
		return e.term(x.Term)
	case *UnaryExpression:
		return x.Operator.String() + e.expr(x.Operand, false)
	case *BinaryExpression:
		s := e.expr(x.Left, false) + " " + x.Operator.String() + " " + e.expr(x.Right, false)
		if top {
			return s
		}
		return "(" + s + ")"
	case *FunctionCallExpression:
		args := make([]string, len(x.Arguments))
		for i, a := range x.Arguments {
			args[i] = e.expr(a, true)
		}
		return x.Function + "(" + strings.Join(args, ", ") + ")"
	case *AggregateExpression:
		arg := "*"
		if x.Argument != nil {
			arg = e.expr(x.Argument, true)
		}
		if x.Distinct {
			arg = "DISTINCT " + arg
		}
		return x.Function + "(" + arg + ")"
	default:
		return ""
	}
}
