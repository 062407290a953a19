package wikidata

import (
	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
	"github.com/aleksaelezovic/kifql/pkg/theta"
)

// Columns added by the annotation post-amble.
const (
	RankVar              = "rank"
	QualifierPropertyVar = "qualifier_property"
	QualifierValueVar    = "qualifier_value"
	ReferenceVar         = "reference"
	ReferencePropertyVar = "reference_property"
	ReferenceValueVar    = "reference_value"
)

// postAmble wraps an annotated query so that every statement node is joined
// with its rank, qualifiers and references, one per row, rows of the same
// statement adjacent.
func postAmble(ctx mapping.Context) error {
	if !ctx.Filter().Annotated {
		return nil
	}
	q := ctx.Query()
	q.Nest()

	var (
		stmt  = rdf.NewVariable(StatementVar)
		r     = rdf.NewVariable(RankVar)
		qprop = rdf.NewVariable(QualifierPropertyVar)
		qval  = rdf.NewVariable(QualifierValueVar)
		ref   = rdf.NewVariable(ReferenceVar)
		rprop = rdf.NewVariable(ReferencePropertyVar)
		rval  = rdf.NewVariable(ReferenceValueVar)
	)
	for _, v := range []*rdf.Variable{stmt, r, qprop, qval, ref, rprop, rval} {
		q.Project(v, nil)
	}

	err := q.Optional(func() error {
		return q.Union(func(u *sparql.Union) error {
			if err := u.Branch(func() error {
				q.Triple(stmt, rank, r)
				return nil
			}); err != nil {
				return err
			}
			if err := u.Branch(func() error {
				pq := ctx.FreshVar("pq")
				q.Triple(stmt, pq, qval)
				q.Triple(qprop, qualifier, pq)
				return nil
			}); err != nil {
				return err
			}
			return u.Branch(func() error {
				pr := ctx.FreshVar("pr")
				q.Triple(stmt, wasDerivedFrom, ref)
				q.Triple(ref, pr, rval)
				q.Triple(rprop, reference, pr)
				return nil
			})
		})
	})
	if err != nil {
		return err
	}
	q.Order(stmt, false)
	return nil
}

func newAccumulator(f *model.Filter) mapping.Accumulator {
	if !f.Annotated {
		return nil
	}
	a := &accumulator{}
	a.reset()
	return a
}

// accumulator folds consecutive rows of one statement node into a single
// record per statement, collecting the annotations spread over the rows.
type accumulator struct {
	node    string
	records []model.Record
	seen    map[string]bool

	rank       model.Rank
	qualifiers []model.Term
	qseen      map[string]bool
	refs       map[string]int
	references [][]model.Term
	rseen      map[string]bool
}

func (a *accumulator) Push(row rdf.Row, records []model.Record) ([]model.Record, error) {
	if len(row) == 0 {
		return a.flush(), nil
	}
	var node string
	if t := row[StatementVar]; t != nil {
		node = t.String()
	}
	var out []model.Record
	if node != a.node {
		out = a.flush()
		a.node = node
	}
	for _, r := range records {
		key := r.Statement.String()
		if a.seen[key] {
			continue
		}
		a.seen[key] = true
		a.records = append(a.records, r)
	}
	a.absorb(row)
	if node == "" {
		out = append(out, a.flush()...)
	}
	return out, nil
}

func (a *accumulator) absorb(row rdf.Row) {
	if r, ok := row[RankVar].(*rdf.NamedNode); ok {
		for rk, iri := range rankIRIs {
			if iri.IRI == r.IRI {
				a.rank = rk
			}
		}
	}
	if snak, ok := decodeSnak(row[QualifierPropertyVar], row[QualifierValueVar]); ok {
		if key := snak.String(); !a.qseen[key] {
			a.qseen[key] = true
			a.qualifiers = append(a.qualifiers, snak)
		}
	}
	ref := row[ReferenceVar]
	if ref == nil {
		return
	}
	snak, ok := decodeSnak(row[ReferencePropertyVar], row[ReferenceValueVar])
	if !ok {
		return
	}
	i, known := a.refs[ref.String()]
	if !known {
		i = len(a.references)
		a.refs[ref.String()] = i
		a.references = append(a.references, nil)
	}
	if key := ref.String() + " " + snak.String(); !a.rseen[key] {
		a.rseen[key] = true
		a.references[i] = append(a.references[i], snak)
	}
}

func (a *accumulator) flush() []model.Record {
	out := a.records
	for _, r := range out {
		if r.Annotations == nil {
			continue
		}
		r.Annotations.Rank = a.rank
		r.Annotations.Qualifiers = append(r.Annotations.Qualifiers, a.qualifiers...)
		r.Annotations.References = append(r.Annotations.References, a.references...)
	}
	a.reset()
	return out
}

func (a *accumulator) reset() {
	*a = accumulator{
		seen:  make(map[string]bool),
		qseen: make(map[string]bool),
		refs:  make(map[string]int),
		rseen: make(map[string]bool),
	}
}

// decodeSnak decodes a qualifier or reference snak from its property and
// value columns.
func decodeSnak(prop, value rdf.Term) (model.Term, bool) {
	p, ok := prop.(*rdf.NamedNode)
	if !ok || value == nil || !isEntity(p, model.KindProperty) {
		return nil, false
	}
	property := model.NewProperty(p.IRI)
	if isUnknown(value) {
		return model.SomeValueSnak{Property: property}, true
	}
	v, ok := decodeValue(value)
	if !ok {
		return nil, false
	}
	return model.ValueSnak{Property: property, Value: v}, true
}

func decodeValue(t rdf.Term) (model.Term, bool) {
	if n, ok := t.(*rdf.NamedNode); ok {
		if k, ok := entityKind(n.IRI); ok {
			v, err := theta.Decode(n, k)
			return v, err == nil
		}
	}
	v, err := theta.Decode(t, model.KindValue)
	return v, err == nil
}
