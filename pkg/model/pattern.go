package model

import (
	"regexp"
	"strconv"
)

// Bindings maps variables to terms. A variable bound to nil is bound to an
// absent optional component.
type Bindings map[Variable]Term

// Variables returns the variables of t in order of first appearance.
func Variables(t Term) []Variable {
	var out []Variable
	seen := make(map[Variable]bool)
	walk(t, func(v Variable) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	})
	return out
}

func walk(t Term, fn func(Variable)) {
	if t == nil {
		return
	}
	if v, ok := t.(Variable); ok {
		fn(v)
		return
	}
	for _, c := range t.children() {
		walk(c, fn)
	}
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	ground := true
	walk(t, func(Variable) { ground = false })
	return ground
}

// IsTemplate reports whether t is a composite term containing variables.
func IsTemplate(t Term) bool {
	if _, ok := t.(Variable); ok || t == nil {
		return false
	}
	return !IsGround(t)
}

var suffixRegexp = regexp.MustCompile(`_[0-9]+$`)

// NameGenerator hands out fresh variable names. Generated names have the
// form hint_N and never repeat for one generator.
type NameGenerator struct {
	counter int
}

// Fresh returns a new name derived from hint.
func (g *NameGenerator) Fresh(hint string) string {
	g.counter++
	hint = suffixRegexp.ReplaceAllString(hint, "")
	if hint == "" {
		hint = "v"
	}
	return hint + "_" + strconv.Itoa(g.counter)
}

// Generalize renames every variable of t to a fresh name, consistently, and
// returns the renamed term together with the renaming. Variables whose name
// is in keep are left untouched.
func Generalize(t Term, gen *NameGenerator, keep map[string]bool) (Term, Bindings) {
	renaming := make(Bindings)
	for _, v := range Variables(t) {
		if keep[v.Name] {
			continue
		}
		renaming[v] = Var(gen.Fresh(v.Name), v.Type)
	}
	return substitute(t, renaming), renaming
}

// Instantiate replaces the variables of t by their bindings. Bindings are
// followed transitively, so a variable bound to another bound variable
// resolves to the latter's value. Unbound variables are kept.
func Instantiate(t Term, b Bindings) Term {
	return instantiate(t, b, nil)
}

func instantiate(t Term, b Bindings, active map[Variable]bool) Term {
	if t == nil {
		return nil
	}
	if v, ok := t.(Variable); ok {
		val, bound := b[v]
		if !bound || active[v] {
			return v
		}
		if active == nil {
			active = make(map[Variable]bool)
		}
		active[v] = true
		defer delete(active, v)
		return instantiate(val, b, active)
	}
	children := t.children()
	if len(children) == 0 {
		return t
	}
	out := make([]Term, len(children))
	for i, c := range children {
		out[i] = instantiate(c, b, active)
	}
	return t.rebuild(out)
}

// substitute applies b to t without following chains.
func substitute(t Term, b Bindings) Term {
	if t == nil {
		return nil
	}
	if v, ok := t.(Variable); ok {
		if val, bound := b[v]; bound {
			return val
		}
		return v
	}
	children := t.children()
	if len(children) == 0 {
		return t
	}
	out := make([]Term, len(children))
	for i, c := range children {
		out[i] = substitute(c, b)
	}
	return t.rebuild(out)
}

// Unify matches pattern against source. Variables on either side may be
// bound: a pattern variable binds to any source term its kind includes, and
// a source variable binds to a pattern term when the source variable's kind
// is the wider one. Absent optional components match variables without
// binding them and fail against anything else.
func Unify(pattern, source Term) (Bindings, bool) {
	b := make(Bindings)
	if !unify(pattern, source, b) {
		return nil, false
	}
	return b, true
}

func unify(p, s Term, b Bindings) bool {
	if p == nil || s == nil {
		_, pv := p.(Variable)
		_, sv := s.(Variable)
		return (p == nil && s == nil) || pv || sv
	}
	pv, pIsVar := p.(Variable)
	sv, sIsVar := s.(Variable)
	switch {
	case pIsVar && sIsVar:
		if val, ok := b[pv]; ok {
			return Equal(val, s)
		}
		if val, ok := b[sv]; ok {
			return Equal(val, p)
		}
		if pv.Type.Includes(sv.Type) {
			b[pv] = s
			return true
		}
		if sv.Type.Includes(pv.Type) {
			b[sv] = p
			return true
		}
		return false
	case pIsVar:
		if val, ok := b[pv]; ok {
			return Equal(val, s)
		}
		if !pv.Type.Includes(s.Kind()) {
			return false
		}
		b[pv] = s
		return true
	case sIsVar:
		if val, ok := b[sv]; ok {
			return Equal(val, p)
		}
		if !sv.Type.Includes(p.Kind()) {
			return false
		}
		b[sv] = p
		return true
	}
	if p.Kind() != s.Kind() {
		return false
	}
	pc, sc := p.children(), s.children()
	if len(pc) == 0 {
		return Equal(p, s)
	}
	for i := range pc {
		if !unify(pc[i], sc[i], b) {
			return false
		}
	}
	return true
}

// Open replaces absent optional components of the quantities and times in t
// by fresh variables, so that the result matches any value for them.
func Open(t Term, gen *NameGenerator) Term {
	switch x := t.(type) {
	case nil, Variable:
		return t
	case Quantity:
		return Quantity{
			Amount: x.Amount,
			Unit:   fill(x.Unit, gen, "unit", KindItem),
			Lower:  fill(x.Lower, gen, "lower", KindDecimal),
			Upper:  fill(x.Upper, gen, "upper", KindDecimal),
		}
	case Time:
		return Time{
			Time:      x.Time,
			Precision: fill(x.Precision, gen, "precision", KindInteger),
			Timezone:  fill(x.Timezone, gen, "timezone", KindInteger),
			Calendar:  fill(x.Calendar, gen, "calendar", KindItem),
		}
	}
	children := t.children()
	if len(children) == 0 {
		return t
	}
	out := make([]Term, len(children))
	for i, c := range children {
		out[i] = Open(c, gen)
	}
	return t.rebuild(out)
}

func fill(t Term, gen *NameGenerator, hint string, kind Kind) Term {
	if t != nil {
		return t
	}
	return Var(gen.Fresh(hint), kind)
}
