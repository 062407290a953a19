package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wd = "http://www.wikidata.org/entity/"

var (
	q42 = NewItem(wd + "Q42")
	q5  = NewItem(wd + "Q5")
	p31 = NewProperty(wd + "P31")
)

func TestKind_Includes(t *testing.T) {
	tests := []struct {
		k, other Kind
		want     bool
	}{
		{KindItem, KindItem, true},
		{KindEntity, KindLexeme, true},
		{KindEntity, KindText, false},
		{KindValue, KindEntity, true},
		{KindValue, KindQuantity, true},
		{KindValue, KindDecimal, false},
		{KindSnak, KindNoValueSnak, true},
		{KindItem, KindEntity, false},
	}
	for _, tt := range tests {
		t.Run(tt.k.String()+"/"+tt.other.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.k.Includes(tt.other))
		})
	}
}

func TestKindSet(t *testing.T) {
	s := Kinds(KindText, KindItem)
	assert.True(t, s.Has(KindItem))
	assert.False(t, s.Has(KindProperty))
	assert.Equal(t, []Kind{KindItem, KindText}, s.Kinds())
	assert.Equal(t, "{item|text}", s.String())
}

func TestTerm_String(t *testing.T) {
	st := Statement{Subject: q42, Snak: ValueSnak{Property: p31, Value: Quantity{Amount: NewDecimal("5")}}}
	assert.Equal(t,
		"Statement(Item(http://www.wikidata.org/entity/Q42), ValueSnak(Property(http://www.wikidata.org/entity/P31), Quantity(Decimal(5), _, _, _)))",
		st.String())
	assert.Equal(t, "?x:item", Var("x", KindItem).String())
}

func TestVariablesAndGround(t *testing.T) {
	x := Var("x", KindItem)
	u := Var("u", KindItem)
	st := Statement{Subject: x, Snak: ValueSnak{Property: p31, Value: Quantity{Amount: NewDecimal("1"), Unit: u, Lower: nil}}}
	assert.Equal(t, []Variable{x, u}, Variables(st))
	assert.False(t, IsGround(st))
	assert.True(t, IsTemplate(st))
	assert.True(t, IsGround(Statement{Subject: q42, Snak: NoValueSnak{Property: p31}}))
	assert.False(t, IsTemplate(x))
}

func TestGeneralize(t *testing.T) {
	gen := &NameGenerator{}
	x := Var("x", KindItem)
	xv := Var("x", KindValue)
	y := Var("y", KindProperty)
	st := Statement{Subject: x, Snak: ValueSnak{Property: y, Value: xv}}

	out, renaming := Generalize(st, gen, map[string]bool{"y": true})
	require.Len(t, renaming, 2)
	g := out.(Statement)
	assert.Equal(t, Var("x_1", KindItem), g.Subject)
	assert.Equal(t, Var("x_2", KindValue), g.Snak.(ValueSnak).Value, "same name, different kind is another variable")
	assert.Equal(t, y, g.Snak.(ValueSnak).Property)
	assert.Equal(t, renaming[x], g.Subject)

	again, _ := Generalize(out, gen, nil)
	assert.Equal(t, "x_3", again.(Statement).Subject.(Variable).Name)
}

func TestUnify(t *testing.T) {
	s := Var("s", KindItem)
	v := Var("v", KindItem)
	w := Var("w", KindValue)
	amount := Var("amount", KindDecimal)
	unit := Var("unit", KindItem)

	tests := []struct {
		name    string
		pattern Term
		source  Term
		want    Bindings
		ok      bool
	}{
		{
			name:    "pattern variable binds ground",
			pattern: Statement{Subject: s, Snak: ValueSnak{Property: p31, Value: v}},
			source:  Statement{Subject: q42, Snak: ValueSnak{Property: p31, Value: q5}},
			want:    Bindings{s: q42, v: q5},
			ok:      true,
		},
		{
			name:    "kind mismatch",
			pattern: Statement{Subject: s, Snak: ValueSnak{Property: p31, Value: v}},
			source:  Statement{Subject: q42, Snak: ValueSnak{Property: p31, Value: NewString("x")}},
			ok:      false,
		},
		{
			name:    "wider source variable binds pattern template",
			pattern: ValueSnak{Property: p31, Value: Quantity{Amount: amount, Unit: unit}},
			source:  ValueSnak{Property: p31, Value: w},
			want:    Bindings{w: Quantity{Amount: amount, Unit: unit}},
			ok:      true,
		},
		{
			name:    "absent matches variable",
			pattern: Quantity{Amount: amount, Unit: unit},
			source:  Quantity{Amount: NewDecimal("3")},
			want:    Bindings{amount: NewDecimal("3")},
			ok:      true,
		},
		{
			name:    "absent against ground fails",
			pattern: Quantity{Amount: amount},
			source:  Quantity{Amount: NewDecimal("3"), Unit: q5},
			ok:      false,
		},
		{
			name:    "repeated variable must agree",
			pattern: Statement{Subject: s, Snak: ValueSnak{Property: p31, Value: s}},
			source:  Statement{Subject: q42, Snak: ValueSnak{Property: p31, Value: q5}},
			ok:      false,
		},
		{
			name:    "snak kinds differ",
			pattern: SomeValueSnak{Property: p31},
			source:  NoValueSnak{Property: p31},
			ok:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unify(tt.pattern, tt.source)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("bindings mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestUnify_Soundness(t *testing.T) {
	gen := &NameGenerator{}
	entry := Statement{
		Subject: Var("s", KindItem),
		Snak:    ValueSnak{Property: Var("p", KindProperty), Value: Quantity{Amount: Var("a", KindDecimal), Unit: Var("u", KindItem)}},
	}
	source := Statement{
		Subject: Var("subject", KindItem),
		Snak:    ValueSnak{Property: p31, Value: Var("value", KindValue)},
	}
	pattern, _ := Generalize(entry, gen, nil)
	b, ok := Unify(pattern, source)
	require.True(t, ok)
	assert.Equal(t, Instantiate(pattern, b), Instantiate(source, b))
}

func TestInstantiate(t *testing.T) {
	x := Var("x", KindValue)
	y := Var("y", KindQuantity)
	a := Var("a", KindDecimal)
	u := Var("u", KindItem)
	b := Bindings{x: y, y: Quantity{Amount: a, Unit: u}, a: NewDecimal("2"), u: nil}

	got := Instantiate(ValueSnak{Property: p31, Value: x}, b)
	assert.Equal(t, ValueSnak{Property: p31, Value: Quantity{Amount: NewDecimal("2")}}, got)

	cyclic := Bindings{x: Var("z", KindValue), Var("z", KindValue): x}
	assert.NotPanics(t, func() { Instantiate(x, cyclic) })
}

func TestOpen(t *testing.T) {
	gen := &NameGenerator{}
	got := Open(ValueSnak{Property: p31, Value: Quantity{Amount: NewDecimal("5"), Unit: q5}}, gen)
	q := got.(ValueSnak).Value.(Quantity)
	assert.Equal(t, q5, q.Unit)
	assert.Equal(t, Var("lower_1", KindDecimal), q.Lower)
	assert.Equal(t, Var("upper_2", KindDecimal), q.Upper)

	tm := Open(NewTime("2020-01-01T00:00:00Z"), gen).(Time)
	assert.Equal(t, KindInteger, tm.Precision.Kind())
	assert.Equal(t, KindItem, tm.Calendar.Kind())
	assert.Equal(t, q42, Open(q42, gen))
}
