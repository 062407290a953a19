package model

import (
	"math/bits"
	"strings"
)

// Kind identifies the variant of a term. Variables carry a kind too, which
// may be one of the category kinds (KindEntity, KindValue, KindSnak) that
// no ground term has.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIRI
	KindString
	KindExternalID
	KindInteger
	KindDecimal
	KindDateTime
	KindItem
	KindProperty
	KindLexeme
	KindText
	KindQuantity
	KindTime
	KindValueSnak
	KindSomeValueSnak
	KindNoValueSnak
	KindStatement

	KindEntity
	KindValue
	KindSnak
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindIRI:           "iri",
	KindString:        "string",
	KindExternalID:    "external_id",
	KindInteger:       "integer",
	KindDecimal:       "decimal",
	KindDateTime:      "datetime",
	KindItem:          "item",
	KindProperty:      "property",
	KindLexeme:        "lexeme",
	KindText:          "text",
	KindQuantity:      "quantity",
	KindTime:          "time",
	KindValueSnak:     "value_snak",
	KindSomeValueSnak: "some_value_snak",
	KindNoValueSnak:   "no_value_snak",
	KindStatement:     "statement",
	KindEntity:        "entity",
	KindValue:         "value",
	KindSnak:          "snak",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Includes reports whether every term of kind other is also of kind k.
func (k Kind) Includes(other Kind) bool {
	if k == other {
		return true
	}
	switch k {
	case KindEntity:
		return EntityKinds.Has(other)
	case KindValue:
		return other == KindEntity || ValueKinds.Has(other)
	case KindSnak:
		return SnakKinds.Has(other)
	}
	return false
}

// IsCategory reports whether k is a category kind.
func (k Kind) IsCategory() bool {
	return k == KindEntity || k == KindValue || k == KindSnak
}

// KindSet is a set of kinds, used for the masks of a filter.
type KindSet uint32

var (
	EntityKinds = Kinds(KindItem, KindProperty, KindLexeme)
	ValueKinds  = EntityKinds | Kinds(KindIRI, KindText, KindString, KindExternalID, KindQuantity, KindTime)
	SnakKinds   = Kinds(KindValueSnak, KindSomeValueSnak, KindNoValueSnak)
)

// Kinds builds a set from the given kinds.
func Kinds(ks ...Kind) KindSet {
	var s KindSet
	for _, k := range ks {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in s.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// Kinds lists the members of s in ascending order.
func (s KindSet) Kinds() []Kind {
	out := make([]Kind, 0, bits.OnesCount32(uint32(s)))
	for k := KindInvalid; k <= KindSnak; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s KindSet) String() string {
	names := make([]string, 0, bits.OnesCount32(uint32(s)))
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, "|") + "}"
}
