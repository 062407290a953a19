// Package model defines statement patterns: the terms they are made of, the
// fingerprints that constrain them and the filters handed to the compiler.
package model

import (
	"math/big"
	"strconv"
	"strings"
)

// Term is a ground term, a template (a composite term containing variables)
// or a variable. Terms are comparable values; use Equal to compare them,
// since decimals with different lexical forms may denote the same number.
//
// Optional components of composite terms (quantity unit and bounds, time
// precision, timezone and calendar) may be nil, meaning absent.
type Term interface {
	Kind() Kind
	String() string

	children() []Term
	rebuild(children []Term) Term
}

// IRI is a plain resource identifier that is not a Wikibase entity.
type IRI struct {
	Value string
}

type String struct {
	Value string
}

type ExternalID struct {
	Value string
}

type Integer struct {
	Value int64
}

// Decimal holds the lexical form of an xsd:decimal.
type Decimal struct {
	Value string
}

// DateTime holds the lexical form of an xsd:dateTime.
type DateTime struct {
	Value string
}

type Item struct {
	IRI string
}

type Property struct {
	IRI string
}

type Lexeme struct {
	IRI string
}

// Text is a monolingual text: content and language are String terms.
type Text struct {
	Content  Term
	Language Term
}

// Quantity has a Decimal amount, an optional Item unit and optional Decimal
// bounds.
type Quantity struct {
	Amount Term
	Unit   Term
	Lower  Term
	Upper  Term
}

// Time has a DateTime value, an optional Integer precision and timezone and
// an optional Item calendar model.
type Time struct {
	Time      Term
	Precision Term
	Timezone  Term
	Calendar  Term
}

type ValueSnak struct {
	Property Term
	Value    Term
}

type SomeValueSnak struct {
	Property Term
}

type NoValueSnak struct {
	Property Term
}

type Statement struct {
	Subject Term
	Snak    Term
}

// Variable is a named placeholder for terms of kind Type. Two variables are
// the same variable iff both name and type are equal.
type Variable struct {
	Name string
	Type Kind
}

// Var is shorthand for Variable{Name: name, Type: kind}.
func Var(name string, kind Kind) Variable {
	return Variable{Name: name, Type: kind}
}

func NewIRI(v string) IRI               { return IRI{Value: v} }
func NewString(v string) String         { return String{Value: v} }
func NewExternalID(v string) ExternalID { return ExternalID{Value: v} }
func NewInteger(v int64) Integer        { return Integer{Value: v} }
func NewDecimal(v string) Decimal       { return Decimal{Value: v} }
func NewDateTime(v string) DateTime     { return DateTime{Value: v} }
func NewItem(iri string) Item           { return Item{IRI: iri} }
func NewProperty(iri string) Property   { return Property{IRI: iri} }
func NewLexeme(iri string) Lexeme       { return Lexeme{IRI: iri} }

// NewText returns the text content@language.
func NewText(content, language string) Text {
	return Text{Content: NewString(content), Language: NewString(language)}
}

// NewQuantity returns a quantity with the given amount and no unit or bounds.
func NewQuantity(amount string) Quantity {
	return Quantity{Amount: NewDecimal(amount)}
}

// NewTime returns a time with the given value and no other components.
func NewTime(value string) Time {
	return Time{Time: NewDateTime(value)}
}

func (IRI) Kind() Kind           { return KindIRI }
func (String) Kind() Kind        { return KindString }
func (ExternalID) Kind() Kind    { return KindExternalID }
func (Integer) Kind() Kind       { return KindInteger }
func (Decimal) Kind() Kind       { return KindDecimal }
func (DateTime) Kind() Kind      { return KindDateTime }
func (Item) Kind() Kind          { return KindItem }
func (Property) Kind() Kind      { return KindProperty }
func (Lexeme) Kind() Kind        { return KindLexeme }
func (Text) Kind() Kind          { return KindText }
func (Quantity) Kind() Kind      { return KindQuantity }
func (Time) Kind() Kind          { return KindTime }
func (ValueSnak) Kind() Kind     { return KindValueSnak }
func (SomeValueSnak) Kind() Kind { return KindSomeValueSnak }
func (NoValueSnak) Kind() Kind   { return KindNoValueSnak }
func (Statement) Kind() Kind     { return KindStatement }
func (v Variable) Kind() Kind    { return v.Type }

func (IRI) children() []Term        { return nil }
func (String) children() []Term     { return nil }
func (ExternalID) children() []Term { return nil }
func (Integer) children() []Term    { return nil }
func (Decimal) children() []Term    { return nil }
func (DateTime) children() []Term   { return nil }
func (Item) children() []Term       { return nil }
func (Property) children() []Term   { return nil }
func (Lexeme) children() []Term     { return nil }

func (t IRI) rebuild([]Term) Term        { return t }
func (t String) rebuild([]Term) Term     { return t }
func (t ExternalID) rebuild([]Term) Term { return t }
func (t Integer) rebuild([]Term) Term    { return t }
func (t Decimal) rebuild([]Term) Term    { return t }
func (t DateTime) rebuild([]Term) Term   { return t }
func (t Item) rebuild([]Term) Term       { return t }
func (t Property) rebuild([]Term) Term   { return t }
func (t Lexeme) rebuild([]Term) Term     { return t }

func (v Variable) children() []Term      { return nil }
func (v Variable) rebuild([]Term) Term   { return v }
func (t Text) children() []Term          { return []Term{t.Content, t.Language} }
func (t Quantity) children() []Term      { return []Term{t.Amount, t.Unit, t.Lower, t.Upper} }
func (t Time) children() []Term          { return []Term{t.Time, t.Precision, t.Timezone, t.Calendar} }
func (t ValueSnak) children() []Term     { return []Term{t.Property, t.Value} }
func (t SomeValueSnak) children() []Term { return []Term{t.Property} }
func (t NoValueSnak) children() []Term   { return []Term{t.Property} }
func (t Statement) children() []Term     { return []Term{t.Subject, t.Snak} }

func (Text) rebuild(c []Term) Term {
	return Text{Content: c[0], Language: c[1]}
}

func (Quantity) rebuild(c []Term) Term {
	return Quantity{Amount: c[0], Unit: c[1], Lower: c[2], Upper: c[3]}
}

func (Time) rebuild(c []Term) Term {
	return Time{Time: c[0], Precision: c[1], Timezone: c[2], Calendar: c[3]}
}

func (ValueSnak) rebuild(c []Term) Term     { return ValueSnak{Property: c[0], Value: c[1]} }
func (SomeValueSnak) rebuild(c []Term) Term { return SomeValueSnak{Property: c[0]} }
func (NoValueSnak) rebuild(c []Term) Term   { return NoValueSnak{Property: c[0]} }
func (Statement) rebuild(c []Term) Term     { return Statement{Subject: c[0], Snak: c[1]} }

var typeNames = map[Kind]string{
	KindIRI:           "IRI",
	KindString:        "String",
	KindExternalID:    "ExternalID",
	KindInteger:       "Integer",
	KindDecimal:       "Decimal",
	KindDateTime:      "DateTime",
	KindItem:          "Item",
	KindProperty:      "Property",
	KindLexeme:        "Lexeme",
	KindText:          "Text",
	KindQuantity:      "Quantity",
	KindTime:          "Time",
	KindValueSnak:     "ValueSnak",
	KindSomeValueSnak: "SomeValueSnak",
	KindNoValueSnak:   "NoValueSnak",
	KindStatement:     "Statement",
}

func (t IRI) String() string           { return format(t) }
func (t String) String() string        { return format(t) }
func (t ExternalID) String() string    { return format(t) }
func (t Integer) String() string       { return format(t) }
func (t Decimal) String() string       { return format(t) }
func (t DateTime) String() string      { return format(t) }
func (t Item) String() string          { return format(t) }
func (t Property) String() string      { return format(t) }
func (t Lexeme) String() string        { return format(t) }
func (t Text) String() string          { return format(t) }
func (t Quantity) String() string      { return format(t) }
func (t Time) String() string          { return format(t) }
func (t ValueSnak) String() string     { return format(t) }
func (t SomeValueSnak) String() string { return format(t) }
func (t NoValueSnak) String() string   { return format(t) }
func (t Statement) String() string     { return format(t) }
func (v Variable) String() string      { return "?" + v.Name + ":" + v.Type.String() }

func format(t Term) string {
	var b strings.Builder
	writeTerm(&b, t)
	return b.String()
}

func writeTerm(b *strings.Builder, t Term) {
	if t == nil {
		b.WriteByte('_')
		return
	}
	if v, ok := t.(Variable); ok {
		b.WriteString(v.String())
		return
	}
	b.WriteString(typeNames[t.Kind()])
	b.WriteByte('(')
	switch x := t.(type) {
	case IRI:
		b.WriteString(strconv.Quote(x.Value))
	case String:
		b.WriteString(strconv.Quote(x.Value))
	case ExternalID:
		b.WriteString(strconv.Quote(x.Value))
	case Integer:
		b.WriteString(strconv.FormatInt(x.Value, 10))
	case Decimal:
		b.WriteString(x.Value)
	case DateTime:
		b.WriteString(strconv.Quote(x.Value))
	case Item:
		b.WriteString(x.IRI)
	case Property:
		b.WriteString(x.IRI)
	case Lexeme:
		b.WriteString(x.IRI)
	default:
		for i, c := range t.children() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTerm(b, c)
		}
	}
	b.WriteByte(')')
}

// Equal reports whether a and b denote the same term. Decimals compare by
// value, so "+5" equals "5.0"; everything else compares structurally.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := a.(Decimal); ok {
		y, ok := b.(Decimal)
		return ok && decimalEqual(x.Value, y.Value)
	}
	ac, bc := a.children(), b.children()
	if len(ac) == 0 || len(ac) != len(bc) || a.Kind() != b.Kind() {
		return a == b
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

func decimalEqual(a, b string) bool {
	if a == b {
		return true
	}
	x, ok := new(big.Rat).SetString(a)
	if !ok {
		return false
	}
	y, ok := new(big.Rat).SetString(b)
	if !ok {
		return false
	}
	return x.Cmp(y) == 0
}
