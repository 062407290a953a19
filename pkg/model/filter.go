package model

import (
	"fmt"
	"strings"
)

// Rank is the rank of a statement.
type Rank uint8

const (
	RankNormal Rank = iota
	RankPreferred
	RankDeprecated
)

func (r Rank) String() string {
	switch r {
	case RankPreferred:
		return "preferred"
	case RankDeprecated:
		return "deprecated"
	default:
		return "normal"
	}
}

// RankMask is a set of ranks.
type RankMask uint8

const (
	RankMaskNormal RankMask = 1 << iota
	RankMaskPreferred
	RankMaskDeprecated

	AllRanks = RankMaskNormal | RankMaskPreferred | RankMaskDeprecated
)

// Has reports whether r is in m.
func (m RankMask) Has(r Rank) bool {
	return m&(1<<r) != 0
}

// Ranks lists the members of m.
func (m RankMask) Ranks() []Rank {
	var out []Rank
	for _, r := range []Rank{RankPreferred, RankNormal, RankDeprecated} {
		if m.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Annotations are the qualifiers, references and rank of a statement.
type Annotations struct {
	Qualifiers []Term
	References [][]Term
	Rank       Rank
}

// Record is a decoded statement with its annotations; Annotations is nil
// when they were not requested.
type Record struct {
	Statement   Term
	Annotations *Annotations
}

// Filter selects statements by fingerprints over their subject, property and
// value and by masks over the kinds involved.
type Filter struct {
	Subject  Fingerprint
	Property Fingerprint
	Value    Fingerprint

	// SnakMask holds snak kinds.
	SnakMask KindSet
	// SubjectMask holds entity kinds.
	SubjectMask KindSet
	// ValueMask holds the kinds of values of value snaks.
	ValueMask KindSet
	// PropertyMask holds the kinds of values the property may range over.
	PropertyMask KindSet
	RankMask     RankMask
	// Language restricts text values to one language.
	Language  string
	Annotated bool
}

// NewFilter returns a filter matching every statement.
func NewFilter() *Filter {
	return &Filter{
		Subject:      Full(),
		Property:     Full(),
		Value:        Full(),
		SnakMask:     SnakKinds,
		SubjectMask:  EntityKinds,
		ValueMask:    ValueKinds,
		PropertyMask: ValueKinds,
		RankMask:     AllRanks,
	}
}

// Normalize returns a copy of f whose masks are narrowed to what its
// fingerprints allow. A value mask that ends up empty removes the value
// snak kind.
func (f *Filter) Normalize() *Filter {
	n := *f
	if n.Subject == nil {
		n.Subject = Full()
	}
	if n.Property == nil {
		n.Property = Full()
	}
	if n.Value == nil {
		n.Value = Full()
	}
	n.SubjectMask &= EntityKinds
	n.ValueMask &= ValueKinds & n.PropertyMask
	n.SnakMask &= SnakKinds

	if v, ok := GroundValue(n.Subject); ok {
		n.SubjectMask &= Kinds(v.Kind())
	}
	if v, ok := GroundValue(n.Property); ok && v.Kind() != KindProperty {
		n.SnakMask = 0
	}
	if !IsFull(n.Value) {
		n.SnakMask &= Kinds(KindValueSnak)
	}
	if v, ok := GroundValue(n.Value); ok {
		n.ValueMask &= Kinds(v.Kind())
	}
	if n.Language != "" {
		n.ValueMask &= Kinds(KindText)
	}
	if n.ValueMask == 0 {
		n.SnakMask &^= Kinds(KindValueSnak)
	}
	if Unsatisfiable(n.Subject) || Unsatisfiable(n.Property) || Unsatisfiable(n.Value) {
		n.SnakMask = 0
	}
	return &n
}

// IsEmpty reports whether f matches nothing.
func (f *Filter) IsEmpty() bool {
	return f.SnakMask == 0 || f.SubjectMask == 0 || f.RankMask == 0
}

// String renders f canonically.
func (f *Filter) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filter(%s, %s, %s, snak=%s, subject=%s, value=%s, property=%s, rank=%d",
		fingerprintString(f.Subject), fingerprintString(f.Property), fingerprintString(f.Value),
		f.SnakMask, f.SubjectMask, f.ValueMask, f.PropertyMask, f.RankMask)
	if f.Language != "" {
		fmt.Fprintf(&b, ", language=%q", f.Language)
	}
	if f.Annotated {
		b.WriteString(", annotated")
	}
	b.WriteByte(')')
	return b.String()
}
