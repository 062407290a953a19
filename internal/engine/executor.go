package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aleksaelezovic/kifql/internal/graph"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// blankPrefix names the hidden variables standing for blank nodes in
// patterns.
const blankPrefix = "_:"

type executor struct {
	ctx   context.Context
	graph *graph.Graph
	eval  *Evaluator
}

// query evaluates a SELECT query: pattern, aggregation, ORDER BY,
// projection, DISTINCT, then OFFSET and LIMIT.
func (x *executor) query(q *sparql.Query) ([]rdf.Row, error) {
	if q.IsFalse() {
		return nil, nil
	}
	rows, err := x.group(q.Where, []rdf.Row{{}})
	if err != nil {
		return nil, err
	}
	aggregated := hasAggregate(q)
	if aggregated {
		if rows, err = x.aggregate(q, rows); err != nil {
			return nil, err
		}
	}
	x.order(q.OrderBy, rows)
	rows = x.project(q, rows, aggregated)
	if q.Distinct {
		rows = applyDistinct(rows)
	}
	return slice(rows, q.Offset, q.Limit), nil
}

func (x *executor) group(gp *sparql.GraphPattern, input []rdf.Row) ([]rdf.Row, error) {
	rows := input
	var (
		filters   []sparql.Expression
		notExists []*sparql.GraphPattern
		err       error
	)
	for _, el := range gp.Elements {
		if err := x.ctx.Err(); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		switch el := el.(type) {
		case *sparql.TriplePattern:
			rows, err = x.triple(el, rows)
		case *sparql.Bind:
			rows, err = x.bind(el, rows)
		case *sparql.Filter:
			filters = append(filters, el.Expression)
		case *sparql.Values:
			rows = joinValues(el, rows)
		case *sparql.SubSelect:
			var inner []rdf.Row
			inner, err = x.query(el.Query)
			rows = join(rows, inner)
		case *sparql.Comment:
		case *sparql.GraphPattern:
			switch el.Type {
			case sparql.GraphPatternTypeGroup:
				rows, err = x.group(el, rows)
			case sparql.GraphPatternTypeUnion:
				rows, err = x.union(el, rows)
			case sparql.GraphPatternTypeOptional:
				rows, err = x.optional(el, rows)
			case sparql.GraphPatternTypeFilterNotExists:
				notExists = append(notExists, el)
			default:
				err = fmt.Errorf("unsupported graph pattern type: %d", el.Type)
			}
		default:
			err = fmt.Errorf("unsupported element: %T", el)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(filters) == 0 && len(notExists) == 0 {
		return rows, nil
	}

	out := make([]rdf.Row, 0, len(rows))
next:
	for _, row := range rows {
		for _, f := range filters {
			if !x.eval.Test(f, row) {
				continue next
			}
		}
		for _, gp := range notExists {
			found, err := x.group(gp, []rdf.Row{row})
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				continue next
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// patternTerm maps blank nodes in patterns to hidden variables.
func patternTerm(t rdf.Term) rdf.Term {
	if b, ok := t.(*rdf.BlankNode); ok {
		return rdf.NewVariable(blankPrefix + b.ID)
	}
	return t
}

func (x *executor) triple(tp *sparql.TriplePattern, rows []rdf.Row) ([]rdf.Row, error) {
	pattern := [3]rdf.Term{patternTerm(tp.Subject), patternTerm(tp.Predicate), patternTerm(tp.Object)}
	var out []rdf.Row
	for _, row := range rows {
		if err := x.ctx.Err(); err != nil {
			return nil, err
		}
		var bound [3]rdf.Term
		for i, t := range pattern {
			bound[i] = t
			if v, ok := t.(*rdf.Variable); ok {
				if value, ok := row[v.Name]; ok {
					bound[i] = value
				}
			}
		}
		triples, err := x.graph.All(bound[0], bound[1], bound[2])
		if err != nil {
			return nil, fmt.Errorf("failed to match %s %s %s: %w", tp.Subject, tp.Predicate, tp.Object, err)
		}
	match:
		for _, t := range triples {
			ext := extend(row)
			for i, value := range [3]rdf.Term{t.Subject, t.Predicate, t.Object} {
				v, ok := bound[i].(*rdf.Variable)
				if !ok {
					continue
				}
				if prev, ok := ext[v.Name]; ok && !prev.Equals(value) {
					continue match
				}
				ext[v.Name] = value
			}
			out = append(out, ext)
		}
	}
	return out, nil
}

func (x *executor) bind(b *sparql.Bind, rows []rdf.Row) ([]rdf.Row, error) {
	out := make([]rdf.Row, 0, len(rows))
	for _, row := range rows {
		if _, ok := row[b.Variable.Name]; ok {
			return nil, fmt.Errorf("BIND to already bound variable ?%s", b.Variable.Name)
		}
		ext := extend(row)
		if value, err := x.eval.Evaluate(b.Expression, row); err == nil {
			ext[b.Variable.Name] = value
		}
		out = append(out, ext)
	}
	return out, nil
}

func (x *executor) union(gp *sparql.GraphPattern, rows []rdf.Row) ([]rdf.Row, error) {
	var out []rdf.Row
	for _, el := range gp.Elements {
		branch, ok := el.(*sparql.GraphPattern)
		if !ok {
			branch = &sparql.GraphPattern{Type: sparql.GraphPatternTypeGroup, Elements: []sparql.Element{el}}
		}
		found, err := x.group(branch, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (x *executor) optional(gp *sparql.GraphPattern, rows []rdf.Row) ([]rdf.Row, error) {
	var out []rdf.Row
	for _, row := range rows {
		found, err := x.group(gp, []rdf.Row{row})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			out = append(out, row)
			continue
		}
		out = append(out, found...)
	}
	return out, nil
}

func extend(row rdf.Row) rdf.Row {
	ext := make(rdf.Row, len(row)+3)
	for k, v := range row {
		ext[k] = v
	}
	return ext
}

// merge returns the union of two compatible solutions.
func merge(a, b rdf.Row) (rdf.Row, bool) {
	for k, v := range b {
		if prev, ok := a[k]; ok && !prev.Equals(v) {
			return nil, false
		}
	}
	out := extend(a)
	for k, v := range b {
		out[k] = v
	}
	return out, true
}

func join(left, right []rdf.Row) []rdf.Row {
	var out []rdf.Row
	for _, l := range left {
		for _, r := range right {
			if m, ok := merge(l, r); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func joinValues(v *sparql.Values, rows []rdf.Row) []rdf.Row {
	right := make([]rdf.Row, 0, len(v.Rows))
	for _, values := range v.Rows {
		r := make(rdf.Row, len(values))
		for i, t := range values {
			if t != nil {
				r[v.Variables[i].Name] = t
			}
		}
		right = append(right, r)
	}
	return join(rows, right)
}

func hasAggregate(q *sparql.Query) bool {
	for _, p := range q.Projection {
		if _, ok := p.Expression.(*sparql.AggregateExpression); ok {
			return true
		}
	}
	return false
}

// aggregate folds all solutions into the single group of a query without
// GROUP BY.
func (x *executor) aggregate(q *sparql.Query, rows []rdf.Row) ([]rdf.Row, error) {
	out := rdf.Row{}
	for _, p := range q.Projection {
		if p.Expression == nil {
			continue
		}
		agg, ok := p.Expression.(*sparql.AggregateExpression)
		if !ok || !strings.EqualFold(agg.Function, sparql.FuncCount) {
			return nil, fmt.Errorf("unsupported aggregate projection ?%s", p.Variable.Name)
		}
		count := 0
		seen := make(map[string]bool)
		for _, row := range rows {
			key := bindingSignature(row)
			if agg.Argument != nil {
				value, err := x.eval.Evaluate(agg.Argument, row)
				if err != nil {
					continue
				}
				key = termSignature(value)
			}
			if agg.Distinct {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			count++
		}
		out[p.Variable.Name] = rdf.NewIntegerLiteral(int64(count))
	}
	return []rdf.Row{out}, nil
}

func (x *executor) order(conditions []*sparql.OrderCondition, rows []rdf.Row) {
	if len(conditions) == 0 {
		return
	}
	keys := make([][]rdf.Term, len(rows))
	for i, row := range rows {
		keys[i] = make([]rdf.Term, len(conditions))
		for j, c := range conditions {
			if value, err := x.eval.Evaluate(c.Expression, row); err == nil {
				keys[i][j] = value
			}
		}
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for j, c := range conditions {
			cmp := orderTerms(keys[idx[a]][j], keys[idx[b]][j])
			if c.Descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	sorted := make([]rdf.Row, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}

func (x *executor) project(q *sparql.Query, rows []rdf.Row, aggregated bool) []rdf.Row {
	out := make([]rdf.Row, len(rows))
	for i, row := range rows {
		r := make(rdf.Row, len(row))
		if len(q.Projection) == 0 {
			for k, v := range row {
				if !strings.HasPrefix(k, blankPrefix) {
					r[k] = v
				}
			}
		}
		for _, p := range q.Projection {
			if p.Expression != nil && !aggregated {
				if value, err := x.eval.Evaluate(p.Expression, row); err == nil {
					r[p.Variable.Name] = value
				}
				continue
			}
			if value, ok := row[p.Variable.Name]; ok {
				r[p.Variable.Name] = value
			}
		}
		out[i] = r
	}
	return out
}

func slice(rows []rdf.Row, offset, limit *int) []rdf.Row {
	if offset != nil && *offset > 0 {
		if *offset >= len(rows) {
			return nil
		}
		rows = rows[*offset:]
	}
	if limit != nil && *limit >= 0 && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

// applyDistinct removes duplicate solutions, keeping the first occurrence.
func applyDistinct(rows []rdf.Row) []rdf.Row {
	seen := make(map[string]bool)
	var unique []rdf.Row
	for _, row := range rows {
		sig := bindingSignature(row)
		if !seen[sig] {
			seen[sig] = true
			unique = append(unique, row)
		}
	}
	return unique
}

// bindingSignature creates a unique string representation of a solution
func bindingSignature(row rdf.Row) string {
	parts := make([]string, 0, len(row))
	for name, term := range row {
		parts = append(parts, name+"="+termSignature(term))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func termSignature(term rdf.Term) string {
	return fmt.Sprintf("%d:%s", term.Type(), term.String())
}
