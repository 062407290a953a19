// Package wikidata maps statement filters onto the Wikidata RDF dump format.
//
// Every statement (s, p, v) is read from the reified form
//
//	s p:P ?statement . ?statement ps:P v .
//
// with complex values (quantities and times) taken from the psv: value node.
// Unknown values are blank nodes or genid IRIs; missing values are typed with
// wdno:P.
package wikidata

import (
	"strings"
	"sync"

	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// StatementVar names the statement node in the filter phase. It is projected
// when the filter asks for annotations.
const StatementVar = "statement"

var (
	once     sync.Once
	ruleSet  *mapping.RuleSet
	buildErr error
)

// Rules returns the Wikidata rule set.
func Rules() (*mapping.RuleSet, error) {
	once.Do(func() { ruleSet, buildErr = build() })
	return ruleSet, buildErr
}

var subjectKinds = []model.Kind{model.KindItem, model.KindProperty, model.KindLexeme}

var valueKinds = []model.Kind{
	model.KindItem, model.KindProperty, model.KindLexeme,
	model.KindIRI, model.KindString, model.KindExternalID,
	model.KindText, model.KindQuantity, model.KindTime,
}

func build() (*mapping.RuleSet, error) {
	b := mapping.NewBuilder("wikidata")
	property := model.Var("property", model.KindProperty)
	for _, sk := range subjectKinds {
		subject := model.Var("subject", sk)
		entity := preprocessEntity(subject)
		prop := mapping.Preprocess(property, mapping.Require(func(t rdf.Term) bool { return isEntity(t, model.KindProperty) }))

		for _, vk := range valueKinds {
			value, opts := valuePattern(vk)
			opts = append(opts, entity, prop, mapping.Patterns(model.Statement{
				Subject: subject,
				Snak:    model.ValueSnak{Property: property, Value: value},
			}))
			b.Register(valueSnak(sk, vk), opts...)
		}
		b.Register(someValueSnak(sk), entity, prop, mapping.Priority(1), mapping.Patterns(model.Statement{
			Subject: subject,
			Snak:    model.SomeValueSnak{Property: property},
		}))
		b.Register(noValueSnak(sk), entity, prop, mapping.Priority(1), mapping.Patterns(model.Statement{
			Subject: subject,
			Snak:    model.NoValueSnak{Property: property},
		}))
	}
	b.SetHooks(mapping.Hooks{PostAmble: postAmble, NewAccumulator: newAccumulator})
	return b.Finalize()
}

func preprocessEntity(v model.Variable) mapping.Option {
	return mapping.Preprocess(v, mapping.Require(func(t rdf.Term) bool { return isEntity(t, v.Type) }))
}

// valuePattern returns the value pattern for values of kind k, with the
// options its entry needs.
func valuePattern(k model.Kind) (model.Term, []mapping.Option) {
	switch k {
	case model.KindText:
		return model.Text{
			Content:  model.Var("content", model.KindString),
			Language: model.Var("language", model.KindString),
		}, nil
	case model.KindQuantity:
		unit := model.Var("unit", model.KindItem)
		lower := model.Var("lower", model.KindDecimal)
		upper := model.Var("upper", model.KindDecimal)
		return model.Quantity{Amount: model.Var("amount", model.KindDecimal), Unit: unit, Lower: lower, Upper: upper},
			[]mapping.Option{
				mapping.Postprocess(unit, mapping.Replace(unitOne, nil)),
				mapping.Default(unit, nil),
				mapping.Default(lower, nil),
				mapping.Default(upper, nil),
			}
	case model.KindTime:
		return model.Time{
			Time:      model.Var("time", model.KindDateTime),
			Precision: model.Var("precision", model.KindInteger),
			Timezone:  model.Var("timezone", model.KindInteger),
			Calendar:  model.Var("calendar", model.KindItem),
		}, nil
	}
	v := model.Var("value", k)
	if model.EntityKinds.Has(k) {
		return v, []mapping.Option{preprocessEntity(v)}
	}
	return v, nil
}

// statement returns the statement node variable of the current frame.
func statement(ctx mapping.Context) *rdf.Variable {
	if ctx.Phase() != mapping.PhaseCompilingFilter {
		return ctx.FreshVar(StatementVar)
	}
	v := rdf.NewVariable(StatementVar)
	if ctx.Filter().Annotated {
		ctx.Query().Project(v, nil)
	}
	return v
}

// subjectKind constrains the kind of a subject left open.
func subjectKind(q *sparql.Query, s rdf.Term, k model.Kind) {
	if _, ok := s.(*rdf.Variable); ok {
		q.Filter(sparql.StrStarts(sparql.Str(s), rdf.NewLiteral(WD+entityLetter[k])))
	}
}

// predicates derives the property IRIs of one namespace from the property
// argument, either directly or through the property declaration.
type predicates struct {
	ctx   mapping.Context
	node  rdf.Term
	local string
}

func newPredicates(ctx mapping.Context, node rdf.Term, t *rdf.NamedNode) *predicates {
	p := &predicates{ctx: ctx, node: node}
	if n, ok := node.(*rdf.NamedNode); ok {
		p.local = strings.TrimPrefix(n.IRI, WD)
	}
	var typ rdf.Term = t
	if t == nil {
		typ = ctx.FreshVar("type")
	}
	ctx.Query().Triple(node, propertyType, typ)
	return p
}

func (p *predicates) get(link *rdf.NamedNode, namespace, hint string) rdf.Term {
	if p.local != "" {
		return rdf.NewNamedNode(namespace + p.local)
	}
	v := p.ctx.FreshVar(hint)
	p.ctx.Query().Triple(p.node, link, v)
	return v
}

func (p *predicates) claim() rdf.Term          { return p.get(claim, P, "p") }
func (p *predicates) statementValue() rdf.Term { return p.get(statementValue, PSV, "psv") }
func (p *predicates) noValue() rdf.Term        { return p.get(novalue, WDNO, "wdno") }
func (p *predicates) statement() rdf.Term {
	return p.get(statementProperty, PS, "ps")
}

// ranks restricts the rank of the statement node to the filter's rank mask.
func ranks(ctx mapping.Context, stmt *rdf.Variable) {
	f := ctx.Filter()
	if ctx.Phase() != mapping.PhaseCompilingFilter || f.RankMask == model.AllRanks {
		return
	}
	q := ctx.Query()
	r := ctx.FreshVar("rank")
	q.Triple(stmt, rank, r)
	values := q.Values(r)
	for _, x := range f.RankMask.Ranks() {
		values.Add(rankIRIs[x])
	}
}

// object matches s p o, comparing literal objects by value.
func object(ctx mapping.Context, s, p, o rdf.Term, hint string) {
	q := ctx.Query()
	if _, ok := o.(*rdf.Literal); ok {
		v := ctx.FreshVar(hint)
		q.Triple(s, p, v)
		q.Filter(sparql.Eq(v, o))
		return
	}
	q.Triple(s, p, o)
}

// claimOf starts a statement of s about the property argument and returns
// its statement node.
func claimOf(ctx mapping.Context, args mapping.Args, sk model.Kind, preds *predicates) *rdf.Variable {
	q := ctx.Query()
	usePrefixes(q)
	s := args.Get("subject")
	stmt := statement(ctx)
	q.Triple(s, preds.claim(), stmt)
	subjectKind(q, s, sk)
	ranks(ctx, stmt)
	return stmt
}

func valueSnak(sk, vk model.Kind) mapping.Callback {
	return func(ctx mapping.Context, args mapping.Args) error {
		q := ctx.Query()
		preds := newPredicates(ctx, args.Get("property"), propertyTypes[vk])
		stmt := claimOf(ctx, args, sk, preds)

		switch vk {
		case model.KindText:
			lit := ctx.FreshVar("text")
			q.Triple(stmt, preds.statement(), lit)
			q.Filter(sparql.IsLiteral(lit))
			bindOrFilter(q, sparql.Str(lit), args.Get("content"))
			bindOrFilter(q, sparql.Lang(lit), args.Get("language"))
		case model.KindQuantity:
			node := ctx.FreshVar("node")
			q.Triple(stmt, preds.statementValue(), node)
			object(ctx, node, quantityAmount, args.Get("amount"), "amount")
			object(ctx, node, quantityUnit, args.Get("unit"), "unit")
			for _, bound := range []struct {
				name string
				p    *rdf.NamedNode
			}{{"lower", quantityLowerBound}, {"upper", quantityUpperBound}} {
				arg := args.Get(bound.name)
				if !args.IsVar(bound.name) {
					object(ctx, node, bound.p, arg, bound.name)
					continue
				}
				if err := q.Optional(func() error {
					q.Triple(node, bound.p, arg)
					return nil
				}); err != nil {
					return err
				}
			}
		case model.KindTime:
			node := ctx.FreshVar("node")
			q.Triple(stmt, preds.statementValue(), node)
			object(ctx, node, timeValue, args.Get("time"), "time")
			object(ctx, node, timePrecision, args.Get("precision"), "precision")
			object(ctx, node, timeTimezone, args.Get("timezone"), "timezone")
			object(ctx, node, timeCalendarModel, args.Get("calendar"), "calendar")
		default:
			v := args.Get("value")
			q.Triple(stmt, preds.statement(), v)
			if !args.IsVar("value") {
				break
			}
			switch vk {
			case model.KindString, model.KindExternalID:
				q.Filter(sparql.IsLiteral(v))
			default:
				q.Filter(sparql.And(sparql.IsIRI(v), sparql.Not(sparql.StrStarts(sparql.Str(v), rdf.NewLiteral(GenID)))))
			}
		}
		return nil
	}
}

// bindOrFilter binds an open argument to expr, or requires expr to equal a
// ground one.
func bindOrFilter(q *sparql.Query, expr sparql.Expression, arg rdf.Term) {
	if v, ok := arg.(*rdf.Variable); ok {
		q.Bind(expr, v)
		return
	}
	q.Filter(sparql.Eq(expr, arg))
}

func someValueSnak(sk model.Kind) mapping.Callback {
	return func(ctx mapping.Context, args mapping.Args) error {
		q := ctx.Query()
		preds := newPredicates(ctx, args.Get("property"), nil)
		stmt := claimOf(ctx, args, sk, preds)
		v := ctx.FreshVar("some")
		q.Triple(stmt, preds.statement(), v)
		q.Filter(sparql.Or(sparql.IsBlank(v), sparql.StrStarts(sparql.Str(v), rdf.NewLiteral(GenID))))
		return nil
	}
}

func noValueSnak(sk model.Kind) mapping.Callback {
	return func(ctx mapping.Context, args mapping.Args) error {
		preds := newPredicates(ctx, args.Get("property"), nil)
		stmt := claimOf(ctx, args, sk, preds)
		ctx.Query().Triple(stmt, rdf.RDFType, preds.noValue())
		return nil
	}
}
