package theta

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

const wd = "http://www.wikidata.org/entity/"

func TestTheta_Cycle(t *testing.T) {
	th := New()
	a := model.Var("a", model.KindValue)
	b := model.Var("b", model.KindValue)
	c := model.Var("c", model.KindItem)

	require.NoError(t, th.Add(a, model.Text{Content: b, Language: nil}))
	require.NoError(t, th.Add(b, model.Quantity{Amount: c}))
	err := th.Add(c, model.Time{Time: a})
	assert.ErrorIs(t, err, ErrCycle)

	err = th.Add(model.Var("d", model.KindValue), model.Var("d", model.KindItem))
	assert.ErrorIs(t, err, ErrCycle)

	_, err = th.Instantiate(rdf.Row{})
	assert.NoError(t, err, "a rejected insertion leaves the graph acyclic")
}

func TestTheta_UnsupportedValue(t *testing.T) {
	assert.Error(t, New().Add(model.Var("a", model.KindItem), 42))
}

func TestTheta_InstantiateTemplate(t *testing.T) {
	th := New()
	v := model.Var("value", model.KindQuantity)
	amount := model.Var("amount", model.KindDecimal)
	unit := model.Var("unit", model.KindItem)
	lower := model.Var("lower", model.KindDecimal)
	upper := model.Var("upper", model.KindDecimal)

	require.NoError(t, th.Add(v, model.Quantity{Amount: amount, Unit: unit, Lower: lower, Upper: upper}))
	require.NoError(t, th.Add(amount, Column{Name: "amount"}))
	require.NoError(t, th.Add(unit, Column{Name: "unit"}))
	require.NoError(t, th.Add(lower, Column{Name: "lower"}))
	require.NoError(t, th.Add(upper, Column{Name: "upper"}))
	th.AddDefault(unit, nil)
	th.AddDefault(lower, nil)
	th.AddDefault(upper, nil)

	got, err := th.Instantiate(rdf.Row{
		"amount": rdf.NewDecimalLiteral("5"),
		"lower":  rdf.NewDecimalLiteral("4"),
	})
	require.NoError(t, err)
	want := model.Quantity{Amount: model.NewDecimal("5"), Lower: model.NewDecimal("4")}
	if diff := cmp.Diff(model.Term(want), got[v]); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	_, resolved := got[unit]
	assert.True(t, resolved, "defaulted variables resolve to absent")
}

func TestTheta_InstantiatePropagatesVariables(t *testing.T) {
	th := New()
	x := model.Var("x", model.KindItem)
	y := model.Var("y", model.KindItem)
	require.NoError(t, th.Add(x, y))
	require.NoError(t, th.Add(y, Column{Name: "y"}))

	got, err := th.Instantiate(rdf.Row{"y": rdf.NewNamedNode(wd + "Q42")})
	require.NoError(t, err)
	assert.Equal(t, model.NewItem(wd+"Q42"), got[x])
	assert.Equal(t, model.NewItem(wd+"Q42"), got[y])
}

func TestTheta_HomonymTieBreak(t *testing.T) {
	th := New()
	a := model.Var("a", model.KindDecimal)
	n1 := model.Var("n", model.KindValue)
	n2 := model.Var("n", model.KindQuantity)
	require.NoError(t, th.Add(n1, model.Quantity{Amount: a}))
	require.NoError(t, th.Add(n2, model.NewQuantity("7")))
	require.NoError(t, th.Add(a, Column{Name: "a"}))

	got, err := th.Instantiate(rdf.Row{"a": rdf.NewDecimalLiteral("3")})
	require.NoError(t, err)
	assert.Equal(t, model.NewQuantity("7"), got[n1], "the most grounded record wins")
	assert.Equal(t, model.NewQuantity("7"), got[n2])
}

func TestTheta_HomonymInsertionOrder(t *testing.T) {
	th := New()
	n1 := model.Var("n", model.KindValue)
	n2 := model.Var("n", model.KindItem)
	require.NoError(t, th.Add(n1, Column{Name: "first"}))
	require.NoError(t, th.Add(n2, Column{Name: "second"}))

	got, err := th.Instantiate(rdf.Row{
		"first":  rdf.NewLiteral("x"),
		"second": rdf.NewNamedNode(wd + "Q1"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.NewString("x"), got[n1])
	_, ok := got[n2]
	assert.False(t, ok, "an item variable cannot take a string")
}

func TestTheta_Default(t *testing.T) {
	th := New()
	x := model.Var("x", model.KindItem)
	require.NoError(t, th.Add(x, Column{Name: "x"}))
	th.AddDefault(x, model.NewItem(wd+"Q1"))

	got, err := th.Instantiate(rdf.Row{})
	require.NoError(t, err)
	assert.Equal(t, model.NewItem(wd+"Q1"), got[x])

	got, err = th.Instantiate(rdf.Row{"x": rdf.NewNamedNode(wd + "Q2")})
	require.NoError(t, err)
	assert.Equal(t, model.NewItem(wd+"Q2"), got[x])
}

func TestTheta_DecodeError(t *testing.T) {
	th := New()
	x := model.Var("x", model.KindItem)
	require.NoError(t, th.Add(x, Column{Name: "x"}))
	_, err := th.Instantiate(rdf.Row{"x": rdf.NewLiteral("not an item")})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestTheta_ResolveAndColumns(t *testing.T) {
	th := New()
	v := model.Var("value", model.KindValue)
	e := model.Var("e", model.KindItem)
	s := model.Var("s", model.KindItem)
	require.NoError(t, th.Add(s, Column{Name: "s"}))
	require.NoError(t, th.Add(v, e))
	require.NoError(t, th.Add(e, Column{Name: "e"}))

	assert.Equal(t, e, th.Resolve(v))
	assert.Equal(t, s, th.Resolve(s))
	col, ok := th.Column(e)
	assert.True(t, ok)
	assert.Equal(t, "e", col)
	assert.Equal(t, []string{"s", "e"}, th.Columns())
}

func TestTheta_InstantiateIsPure(t *testing.T) {
	th := New()
	x := model.Var("x", model.KindString)
	require.NoError(t, th.Add(x, Column{Name: "x"}))
	row := rdf.Row{"x": rdf.NewLiteral("a")}

	first, err := th.Instantiate(row)
	require.NoError(t, err)
	second, err := th.Instantiate(row)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"x"}, th.Columns())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  rdf.Term
		kind model.Kind
		want model.Term
	}{
		{"item", rdf.NewNamedNode(wd + "Q5"), model.KindItem, model.NewItem(wd + "Q5")},
		{"property", rdf.NewNamedNode(wd + "P31"), model.KindProperty, model.NewProperty(wd + "P31")},
		{"iri", rdf.NewNamedNode("http://example.org/"), model.KindIRI, model.NewIRI("http://example.org/")},
		{"string", rdf.NewLiteral("abc"), model.KindString, model.NewString("abc")},
		{"external id", rdf.NewLiteral("0000-1"), model.KindExternalID, model.NewExternalID("0000-1")},
		{"text", rdf.NewLiteralWithLanguage("hello", "en"), model.KindText, model.NewText("hello", "en")},
		{"integer", rdf.NewIntegerLiteral(11), model.KindInteger, model.NewInteger(11)},
		{"decimal", rdf.NewDecimalLiteral("+1.5"), model.KindDecimal, model.NewDecimal("+1.5")},
		{"datetime", rdf.NewLiteralWithDatatype("2020-01-01T00:00:00Z", rdf.XSDDateTime), model.KindDateTime, model.NewDateTime("2020-01-01T00:00:00Z")},
		{"value quantity", rdf.NewDecimalLiteral("2"), model.KindValue, model.NewQuantity("2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Decode(rdf.NewBlankNode("b"), model.KindItem)
	assert.ErrorIs(t, err, ErrDecode)
	_, err = Decode(rdf.NewLiteral("x"), model.KindText)
	assert.ErrorIs(t, err, ErrDecode)
}
