package compiler

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// pushFingerprints resolves the filter fingerprints against the target of f
// inside the current group.
func (c *Compiler) pushFingerprints(f *frame) error {
	st, ok := f.target.(model.Statement)
	if !ok {
		return nil
	}
	if err := c.pushFingerprint(c.filter.Subject, st.Subject, f); err != nil {
		return err
	}
	var property, value model.Term
	switch snak := st.Snak.(type) {
	case model.ValueSnak:
		property, value = snak.Property, snak.Value
	case model.SomeValueSnak:
		property = snak.Property
	case model.NoValueSnak:
		property = snak.Property
	}
	if err := c.pushFingerprint(c.filter.Property, property, f); err != nil {
		return err
	}
	if value != nil {
		return c.pushFingerprint(c.filter.Value, value, f)
	}
	return nil
}

// pushFingerprint constrains the position t of the target of f to fp.
func (c *Compiler) pushFingerprint(fp model.Fingerprint, t model.Term, f *frame) error {
	if model.IsFull(fp) {
		return nil
	}
	t = f.theta.Resolve(t)
	switch x := fp.(type) {
	case model.ValueFingerprint:
		return c.pushValue(x.Value, t, f)
	case model.AndFingerprint:
		var value model.Term
		for _, child := range x.Children {
			v, ok := child.(model.ValueFingerprint)
			if !ok {
				continue
			}
			if value != nil && !model.Equal(value, v.Value) {
				return mapping.ErrSkip
			}
			value = v.Value
		}
		if value != nil {
			if err := c.pushValue(value, t, f); err != nil {
				return err
			}
		}
		for _, child := range x.Children {
			if _, ok := child.(model.ValueFingerprint); ok {
				continue
			}
			if err := c.pushFingerprint(child, t, f); err != nil {
				return err
			}
		}
		return nil
	case model.OrFingerprint:
		return c.pushOr(x, t, f)
	case model.SnakFingerprint:
		return c.pushSnak(x, t, f)
	}
	return fmt.Errorf("compiler: unsupported fingerprint %T", fp)
}

func (c *Compiler) pushOr(fp model.OrFingerprint, t model.Term, f *frame) error {
	var (
		values []model.Term
		others []model.Fingerprint
	)
	for _, child := range fp.Children {
		if model.IsFull(child) {
			return nil
		}
		if v, ok := child.(model.ValueFingerprint); ok {
			values = append(values, v.Value)
		} else {
			others = append(others, child)
		}
	}
	if model.IsGround(t) {
		for _, v := range values {
			if model.Equal(v, t) {
				return nil
			}
		}
		values = nil
	}

	return c.query.Union(func(u *sparql.Union) error {
		for _, child := range others {
			err := u.Branch(func() error { return c.pushFingerprint(child, t, f) })
			if errors.Is(err, mapping.ErrSkip) {
				continue
			}
			if err != nil {
				return err
			}
		}
		if len(values) > 0 {
			err := u.Branch(func() error { return c.pushValues(values, t, f) })
			if err != nil && !errors.Is(err, mapping.ErrSkip) {
				return err
			}
		}
		if u.Len() == 0 {
			return mapping.ErrSkip
		}
		return nil
	})
}

// pushValue constrains t to v. A ground t is checked on the spot; otherwise
// the columns of t are bound to v by a one-row VALUES block.
func (c *Compiler) pushValue(v, t model.Term, f *frame) error {
	if model.IsGround(t) {
		if !model.Equal(v, t) {
			return mapping.ErrSkip
		}
		return nil
	}
	return c.pushValues([]model.Term{v}, t, f)
}

// pushValues emits one VALUES block binding the columns of t to every value
// t can take.
func (c *Compiler) pushValues(values []model.Term, t model.Term, f *frame) error {
	vars := model.Variables(t)
	var rows []map[string]rdf.Term
	for _, v := range values {
		b, ok := model.Unify(t, model.Open(v, c.gen))
		if !ok {
			continue
		}
		row := make(map[string]rdf.Term)
		convertible := true
		for _, x := range vars {
			val := model.Instantiate(x, b)
			if val == nil || !model.IsGround(val) {
				continue
			}
			col, ok := f.theta.Column(x)
			if !ok {
				continue
			}
			term, err := c.convert(val)
			if err != nil {
				if errors.Is(err, mapping.ErrSkip) {
					convertible = false
					break
				}
				return err
			}
			row[col] = term
		}
		if convertible {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return mapping.ErrSkip
	}

	var columns []string
	for _, x := range vars {
		col, ok := f.theta.Column(x)
		if !ok || contains(columns, col) {
			continue
		}
		for _, row := range rows {
			if _, bound := row[col]; bound {
				columns = append(columns, col)
				break
			}
		}
	}
	if len(columns) == 0 {
		return nil
	}

	qvars := make([]*rdf.Variable, len(columns))
	for i, col := range columns {
		qvars[i] = rdf.NewVariable(col)
	}
	block := c.query.Values(qvars...)
	seen := make(map[string]bool)
	for _, row := range rows {
		cells := make([]rdf.Term, len(columns))
		keys := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = row[col]
			if cells[i] != nil {
				keys[i] = cells[i].String()
			}
		}
		key := strings.Join(keys, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		block.Add(cells...)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// pushSnak resolves a snak fingerprint by matching a synthetic statement
// about t against every entry.
func (c *Compiler) pushSnak(fp model.SnakFingerprint, t model.Term, f *frame) error {
	property := fp.Property
	if property == nil {
		property = model.Var(c.gen.Fresh("property"), model.KindProperty)
	}
	w, ground := model.GroundValue(fp.Value)
	if !ground {
		if fp.Converse {
			w = model.Var(c.gen.Fresh("subject"), model.KindEntity)
		} else {
			w = model.Var(c.gen.Fresh("value"), model.KindValue)
		}
	}

	var pattern model.Term
	switch kind := fp.SnakKind(); {
	case kind == model.KindValueSnak && fp.Converse:
		pattern = model.Statement{Subject: w, Snak: model.ValueSnak{Property: property, Value: t}}
	case kind == model.KindValueSnak:
		pattern = model.Statement{Subject: t, Snak: model.ValueSnak{Property: property, Value: w}}
	case fp.Converse:
		return mapping.ErrSkip
	case kind == model.KindSomeValueSnak:
		pattern = model.Statement{Subject: t, Snak: model.SomeValueSnak{Property: property}}
	case kind == model.KindNoValueSnak:
		pattern = model.Statement{Subject: t, Snak: model.NoValueSnak{Property: property}}
	default:
		return fmt.Errorf("compiler: bad snak kind %s", kind)
	}

	keep := make(map[string]bool)
	for _, v := range model.Variables(t) {
		keep[v.Name] = true
	}
	pattern, _ = model.Generalize(model.Open(pattern, c.gen), c.gen, keep)

	return c.query.Union(func(u *sparql.Union) error {
		for _, e := range c.rules.Entries() {
			matches, err := e.Match(pattern, c.gen, c.convert)
			if err != nil {
				return err
			}
			for i := range matches {
				m := &matches[i]
				err := u.Branch(func() error { return c.compileFingerprint(e, pattern, m, fp) })
				if errors.Is(err, mapping.ErrSkip) {
					c.logger.Debug("fingerprint entry skipped", zap.Int("entry", e.ID), zap.Stringer("pattern", pattern))
					continue
				}
				if err != nil {
					return err
				}
			}
		}
		if u.Len() == 0 {
			return mapping.ErrSkip
		}
		return nil
	})
}

// compileFingerprint emits one alternative of a snak fingerprint.
func (c *Compiler) compileFingerprint(e *mapping.Entry, pattern model.Term, m *mapping.Match, fp model.SnakFingerprint) error {
	f := c.push(mapping.PhaseCompilingFingerprint, e, pattern)
	defer c.pop()

	th, _, err := c.substitution(e, pattern, m)
	if err != nil {
		return err
	}
	f.theta = th
	if err := e.Callback(c, m.Args); err != nil {
		return err
	}
	if fp.SnakKind() != model.KindValueSnak || model.IsFull(fp.Value) {
		return nil
	}
	st := pattern.(model.Statement)
	other := st.Subject
	if !fp.Converse {
		other = st.Snak.(model.ValueSnak).Value
	}
	return c.pushFingerprint(fp.Value, other, f)
}
