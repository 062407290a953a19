package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

func TestEvaluator_Test(t *testing.T) {
	var (
		x    = rdf.NewVariable("x")
		n    = rdf.NewVariable("n")
		text = rdf.NewVariable("text")
		b    = rdf.NewVariable("b")
		none = rdf.NewVariable("none")
	)
	row := rdf.Row{
		"x":    rdf.NewNamedNode("http://www.wikidata.org/entity/Q42"),
		"n":    rdf.NewIntegerLiteral(30),
		"text": rdf.NewLiteralWithLanguage("Douglas Adams", "en"),
		"b":    rdf.NewBlankNode("b0"),
	}

	tests := []struct {
		name string
		expr sparql.Expression
		want bool
	}{
		{"integer equals decimal", sparql.Eq(n, rdf.NewDecimalLiteral("30.0")), true},
		{"integer equals double", sparql.Eq(n, rdf.NewLiteralWithDatatype("3.0E1", rdf.XSDDouble)), true},
		{"signed decimal", sparql.Eq(rdf.NewDecimalLiteral("+1.96"), rdf.NewDecimalLiteral("1.960")), true},
		{"not equal", sparql.Neq(n, rdf.NewIntegerLiteral(31)), true},
		{"less than", sparql.Lt(n, rdf.NewIntegerLiteral(31)), true},
		{"greater or equal", sparql.Ge(n, rdf.NewIntegerLiteral(31)), false},
		{"iri equality", sparql.Eq(x, rdf.NewNamedNode("http://www.wikidata.org/entity/Q42")), true},
		{"string vs integer", sparql.Eq(rdf.NewLiteral("30"), n), false},
		{"dates by value", sparql.Eq(
			rdf.NewLiteralWithDatatype("2001-01-01T00:00:00Z", rdf.XSDDateTime),
			rdf.NewLiteralWithDatatype("2001-01-01T01:00:00+01:00", rdf.XSDDateTime)), true},
		{"strstarts iri", sparql.StrStarts(sparql.Str(x), rdf.NewLiteral("http://www.wikidata.org/entity/Q")), true},
		{"strstarts mismatch", sparql.StrStarts(sparql.Str(x), rdf.NewLiteral("http://example.org/")), false},
		{"lang", sparql.Eq(sparql.Lang(text), rdf.NewLiteral("en")), true},
		{"str of text", sparql.Eq(sparql.Str(text), rdf.NewLiteral("Douglas Adams")), true},
		{"isIRI", sparql.IsIRI(x), true},
		{"isBLANK", sparql.IsBlank(b), true},
		{"isLITERAL", sparql.IsLiteral(x), false},
		{"bound", sparql.Bound(x), true},
		{"not bound", sparql.Not(sparql.Bound(none)), true},
		{"unbound is error", sparql.Eq(none, n), false},
		{"or recovers from error", sparql.Or(sparql.Eq(none, n), sparql.IsIRI(x)), true},
		{"and false beats error", sparql.Not(sparql.And(sparql.Eq(none, n), sparql.IsLiteral(x))), true},
		{"and with error", sparql.And(sparql.Eq(none, n), sparql.IsIRI(x)), false},
		{"datatype", sparql.Eq(sparql.Datatype(n), rdf.XSDInteger), true},
		{"strlang", sparql.Eq(sparql.StrLang(rdf.NewLiteral("Douglas Adams"), rdf.NewLiteral("en")), text), true},
		{"strdt", sparql.Eq(sparql.StrDT(rdf.NewLiteral("30"), rdf.XSDInteger), n), true},
		{"iri", sparql.Eq(sparql.IRI(rdf.NewLiteral("http://www.wikidata.org/entity/Q42")), x), true},
		{"negate", sparql.Eq(sparql.Negate(n), rdf.NewIntegerLiteral(-30)), true},
		{"ebv of empty string", sparql.E(rdf.NewLiteral("")), false},
		{"ebv of zero", sparql.E(rdf.NewIntegerLiteral(0)), false},
		{"ebv of iri", sparql.E(x), false},
		{"unknown function", sparql.Call("NOPE", x), false},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Test(tt.expr, row))
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate(sparql.Count(nil, false), rdf.Row{})
	assert.Error(t, err)
	_, err = e.Evaluate(nil, rdf.Row{})
	assert.Error(t, err)
	_, err = e.Evaluate(sparql.Call(sparql.FuncBound, rdf.NewLiteral("x")), rdf.Row{})
	assert.Error(t, err)
	_, err = e.Evaluate(sparql.Eq(rdf.NewLiteralWithDatatype("a", rdf.NewNamedNode("http://example.org/dt")), rdf.NewLiteral("a")), rdf.Row{})
	assert.Error(t, err, "literals of unrelated datatypes do not compare")
}

func TestOrderTerms(t *testing.T) {
	ordered := []rdf.Term{
		nil,
		rdf.NewBlankNode("a"),
		rdf.NewNamedNode("http://example.org/a"),
		rdf.NewNamedNode("http://example.org/b"),
		rdf.NewIntegerLiteral(2),
		rdf.NewIntegerLiteral(10),
	}
	for i := 0; i+1 < len(ordered); i++ {
		assert.Negative(t, orderTerms(ordered[i], ordered[i+1]), "%v < %v", ordered[i], ordered[i+1])
		assert.Positive(t, orderTerms(ordered[i+1], ordered[i]), "%v > %v", ordered[i+1], ordered[i])
	}
	assert.Zero(t, orderTerms(nil, nil))
	assert.Zero(t, orderTerms(rdf.NewLiteral("x"), rdf.NewLiteral("x")))
}
