package model

import "strings"

// Fingerprint is a predicate over one position of a statement.
type Fingerprint interface {
	// Match reports whether the ground term t satisfies the fingerprint as
	// far as can be decided without a store. Snak fingerprints always
	// match locally.
	Match(t Term) bool
	String() string
}

// FullFingerprint matches everything.
type FullFingerprint struct{}

// ValueFingerprint matches terms equal to Value.
type ValueFingerprint struct {
	Value Term
}

// SnakFingerprint matches entities that have a statement with the given snak.
// With Converse set it instead matches values v such that some entity has a
// statement whose snak has value v and whose subject matches Value.
type SnakFingerprint struct {
	// Property is a ground property, or nil for any property.
	Property Term
	// Snak is one of KindValueSnak, KindSomeValueSnak or KindNoValueSnak;
	// the zero kind means KindValueSnak.
	Snak     Kind
	Value    Fingerprint
	Converse bool
}

type AndFingerprint struct {
	Children []Fingerprint
}

type OrFingerprint struct {
	Children []Fingerprint
}

// Full returns the fingerprint that matches everything.
func Full() Fingerprint { return FullFingerprint{} }

// Equals returns a fingerprint matching terms equal to t.
func Equals(t Term) Fingerprint { return ValueFingerprint{Value: t} }

// HasValue returns a fingerprint for entities with a value snak p whose value
// matches v.
func HasValue(p Term, v Fingerprint) Fingerprint {
	return SnakFingerprint{Property: p, Snak: KindValueSnak, Value: v}
}

// ValueOf returns a fingerprint for values of p on entities matching v.
func ValueOf(p Term, v Fingerprint) Fingerprint {
	return SnakFingerprint{Property: p, Snak: KindValueSnak, Value: v, Converse: true}
}

func And(fps ...Fingerprint) Fingerprint { return AndFingerprint{Children: fps} }
func Or(fps ...Fingerprint) Fingerprint  { return OrFingerprint{Children: fps} }

func (FullFingerprint) Match(Term) bool       { return true }
func (fp ValueFingerprint) Match(t Term) bool { return Equal(fp.Value, t) }
func (SnakFingerprint) Match(Term) bool       { return true }

func (fp AndFingerprint) Match(t Term) bool {
	for _, c := range fp.Children {
		if !c.Match(t) {
			return false
		}
	}
	return true
}

func (fp OrFingerprint) Match(t Term) bool {
	for _, c := range fp.Children {
		if c.Match(t) {
			return true
		}
	}
	return false
}

func (FullFingerprint) String() string { return "Full" }

func (fp ValueFingerprint) String() string {
	return "Value(" + format(fp.Value) + ")"
}

func (fp SnakFingerprint) String() string {
	var b strings.Builder
	if fp.Converse {
		b.WriteString("Converse")
	}
	b.WriteString("Snak(")
	b.WriteString(fp.SnakKind().String())
	b.WriteString(", ")
	writeTerm(&b, fp.Property)
	b.WriteString(", ")
	b.WriteString(fingerprintString(fp.Value))
	b.WriteByte(')')
	return b.String()
}

func (fp AndFingerprint) String() string { return compound("And", fp.Children) }
func (fp OrFingerprint) String() string  { return compound("Or", fp.Children) }

func compound(name string, children []Fingerprint) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fingerprintString(c)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func fingerprintString(fp Fingerprint) string {
	if fp == nil {
		return "Full"
	}
	return fp.String()
}

// SnakKind returns the snak kind, defaulting to KindValueSnak.
func (fp SnakFingerprint) SnakKind() Kind {
	if fp.Snak == KindInvalid {
		return KindValueSnak
	}
	return fp.Snak
}

// IsFull reports whether fp is nil or the full fingerprint.
func IsFull(fp Fingerprint) bool {
	switch x := fp.(type) {
	case nil, FullFingerprint:
		return true
	case AndFingerprint:
		for _, c := range x.Children {
			if !IsFull(c) {
				return false
			}
		}
		return true
	}
	return false
}

// GroundValue returns the single value fp pins its position to: the value of
// a value fingerprint, or the value shared by the value conjuncts of a
// conjunction. Conjuncts that disagree pin nothing; see Unsatisfiable.
func GroundValue(fp Fingerprint) (Term, bool) {
	switch x := fp.(type) {
	case ValueFingerprint:
		return x.Value, IsGround(x.Value)
	case AndFingerprint:
		values := conjunctValues(x, nil)
		if len(values) == 0 {
			return nil, false
		}
		for _, v := range values[1:] {
			if !Equal(values[0], v) {
				return nil, false
			}
		}
		return values[0], IsGround(values[0])
	}
	return nil, false
}

// Unsatisfiable reports whether fp is a conjunction requiring its position
// to equal two different ground values.
func Unsatisfiable(fp Fingerprint) bool {
	and, ok := fp.(AndFingerprint)
	if !ok {
		return false
	}
	var first Term
	for _, v := range conjunctValues(and, nil) {
		if !IsGround(v) {
			continue
		}
		if first == nil {
			first = v
		} else if !Equal(first, v) {
			return true
		}
	}
	return false
}

// conjunctValues appends the values of the value fingerprints of fp and of
// its nested conjunctions.
func conjunctValues(fp AndFingerprint, out []Term) []Term {
	for _, c := range fp.Children {
		switch x := c.(type) {
		case ValueFingerprint:
			out = append(out, x.Value)
		case AndFingerprint:
			out = conjunctValues(x, out)
		}
	}
	return out
}
