// Package compiler compiles statement filters into SPARQL queries and decodes
// the rows those queries produce back into statements.
//
// A Compiler is single use: Compile builds the query once, after which the
// compiler is read-only and may hand out any number of Decoders.
package compiler

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
	"github.com/aleksaelezovic/kifql/pkg/theta"
)

const (
	// EntryVar names the query variable holding the id of the entry that
	// produced a row.
	EntryVar = "entry_id"
	// PassVar names the query variable holding the ordinal of the union
	// branch that produced a row, among all branches of the query.
	PassVar = "pass_id"
)

// ErrCompiled is returned when Compile is called on a used compiler.
var ErrCompiled = errors.New("compiler: already compiled")

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithConverter replaces mapping.ToRDF as the argument converter.
func WithConverter(conv mapping.Converter) Option {
	return func(c *Compiler) { c.convert = conv }
}

type frame struct {
	phase  mapping.Phase
	entry  *mapping.Entry
	theta  *theta.Theta
	target model.Term
}

// pass is what one successful filter frame leaves behind for decoding.
type pass struct {
	entry       int
	theta       *theta.Theta
	post        map[string][]mapping.Processor
	targets     []model.Term
	annotations *model.Annotations
}

// Compiler compiles one filter against a rule set.
type Compiler struct {
	rules   *mapping.RuleSet
	logger  *zap.Logger
	convert mapping.Converter
	gen     *model.NameGenerator

	query  *sparql.Query
	filter *model.Filter
	stack  []*frame
	done   bool

	passes map[int][]*pass
	order  []*pass
}

// New creates a compiler for rules.
func New(rules *mapping.RuleSet, opts ...Option) *Compiler {
	c := &Compiler{
		rules:   rules,
		logger:  zap.NewNop(),
		convert: mapping.ToRDF,
		gen:     &model.NameGenerator{},
		query:   sparql.NewSelect(),
		passes:  make(map[int][]*pass),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the query being built or, after Compile, the compiled query.
func (c *Compiler) Query() *sparql.Query { return c.query }

// Filter returns the normalized filter.
func (c *Compiler) Filter() *model.Filter { return c.filter }

// Rules returns the rule set.
func (c *Compiler) Rules() *mapping.RuleSet { return c.rules }

// Phase returns the phase of the innermost frame.
func (c *Compiler) Phase() mapping.Phase {
	if c.done {
		return mapping.PhaseDone
	}
	if n := len(c.stack); n > 0 {
		return c.stack[n-1].phase
	}
	return mapping.PhaseReady
}

// FreshVar returns an unused query variable.
func (c *Compiler) FreshVar(hint string) *rdf.Variable {
	return rdf.NewVariable(c.gen.Fresh(hint))
}

func (c *Compiler) push(phase mapping.Phase, e *mapping.Entry, target model.Term) *frame {
	f := &frame{phase: phase, entry: e, target: target}
	c.stack = append(c.stack, f)
	return f
}

func (c *Compiler) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

// Compile builds the query for f. Configuration errors, dependency cycles
// and ill-typed query fragments abort the compilation; the query must not be
// used after an error.
func (c *Compiler) Compile(f *model.Filter) (err error) {
	if c.filter != nil {
		return ErrCompiled
	}
	defer func() {
		if r := recover(); r != nil {
			te, ok := r.(*sparql.TypeError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("failed to compile filter: %w", te)
		}
	}()

	c.filter = f.Normalize()
	if c.filter.IsEmpty() {
		c.logger.Debug("filter is empty", zap.Stringer("filter", c.filter))
		c.query.SetFalse()
		c.done = true
		return nil
	}

	sources := c.expand()
	err = c.query.Union(func(u *sparql.Union) error {
		for _, src := range sources {
			src, _ = model.Generalize(src, c.gen, nil)
			for _, e := range c.rules.Entries() {
				matches, err := e.Match(src, c.gen, c.convert)
				if err != nil {
					return err
				}
				for i := range matches {
					m := &matches[i]
					err := u.Branch(func() error { return c.compileEntry(e, src, m) })
					if errors.Is(err, mapping.ErrSkip) {
						c.logger.Debug("entry skipped", zap.Int("entry", e.ID), zap.Stringer("source", src))
						continue
					}
					if err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to compile filter: %w", err)
	}

	if len(c.order) == 0 {
		c.logger.Debug("no entry matched", zap.Stringer("filter", c.filter))
		c.query.SetFalse()
		c.done = true
		return nil
	}
	c.project()
	c.done = true
	if hook := c.rules.Hooks().PostAmble; hook != nil {
		if err := hook(c); err != nil {
			return fmt.Errorf("failed to run post-amble: %w", err)
		}
	}
	return nil
}

// expand lists the source patterns implied by the filter masks, one per
// subject kind, snak kind and value kind.
func (c *Compiler) expand() []model.Term {
	f := c.filter
	subjectValue, groundSubject := model.GroundValue(f.Subject)
	propertyValue, groundProperty := model.GroundValue(f.Property)
	value, groundValue := model.GroundValue(f.Value)

	var out []model.Term
	for _, sk := range f.SubjectMask.Kinds() {
		var subject model.Term = model.Var("subject", sk)
		if groundSubject {
			if subjectValue.Kind() != sk {
				continue
			}
			subject = subjectValue
		}
		var property model.Term = model.Var("property", model.KindProperty)
		if groundProperty {
			property = propertyValue
		}
		for _, snak := range f.SnakMask.Kinds() {
			switch snak {
			case model.KindValueSnak:
				for _, vk := range f.ValueMask.Kinds() {
					var v model.Term = model.Var("value", vk)
					switch {
					case groundValue:
						if value.Kind() != vk {
							continue
						}
						v = model.Open(value, c.gen)
					case vk == model.KindText && f.Language != "":
						v = model.Text{Content: model.Var("content", model.KindString), Language: model.NewString(f.Language)}
					}
					out = append(out, model.Statement{Subject: subject, Snak: model.ValueSnak{Property: property, Value: v}})
				}
			case model.KindSomeValueSnak:
				out = append(out, model.Statement{Subject: subject, Snak: model.SomeValueSnak{Property: property}})
			case model.KindNoValueSnak:
				out = append(out, model.Statement{Subject: subject, Snak: model.NoValueSnak{Property: property}})
			}
		}
	}
	return out
}

// compileEntry emits one union branch for a match of e against target.
func (c *Compiler) compileEntry(e *mapping.Entry, target model.Term, m *mapping.Match) error {
	f := c.push(mapping.PhaseCompilingFilter, e, target)
	defer c.pop()

	c.query.Bind(rdf.NewIntegerLiteral(int64(e.ID)), rdf.NewVariable(EntryVar))
	c.query.Bind(rdf.NewIntegerLiteral(int64(len(c.order))), rdf.NewVariable(PassVar))
	th, post, err := c.substitution(e, target, m)
	if err != nil {
		return err
	}
	f.theta = th
	if err := e.Callback(c, m.Args); err != nil {
		return err
	}
	if err := c.pushFingerprints(f); err != nil {
		return err
	}

	p := &pass{entry: e.ID, theta: th, post: post, targets: []model.Term{target}, annotations: e.Annotations}
	c.passes[e.ID] = append(c.passes[e.ID], p)
	c.order = append(c.order, p)
	c.logger.Debug("entry matched", zap.Int("entry", e.ID), zap.Stringer("target", target))
	return nil
}

// substitution builds the theta of a match: every variable of target maps to
// what the match made of it, and every variable left open reads its column.
func (c *Compiler) substitution(e *mapping.Entry, target model.Term, m *mapping.Match) (*theta.Theta, map[string][]mapping.Processor, error) {
	th := theta.New()
	for _, v := range model.Variables(target) {
		if err := assign(th, v, model.Instantiate(v, m.Bindings)); err != nil {
			return nil, nil, err
		}
	}

	defaults := make([]model.Variable, 0, len(e.Defaults))
	for v := range e.Defaults {
		defaults = append(defaults, v)
	}
	sort.Slice(defaults, func(i, j int) bool { return defaults[i].Name < defaults[j].Name })
	for _, v := range defaults {
		if x, ok := m.Term(v).(model.Variable); ok {
			th.AddDefault(x, e.Defaults[v])
		}
	}

	post := make(map[string][]mapping.Processor)
	for v, chain := range e.Postprocess {
		if x, ok := m.Args[v.Name].(*rdf.Variable); ok {
			post[x.Name] = append(post[x.Name], chain...)
		}
	}
	return th, post, nil
}

func assign(th *theta.Theta, v model.Variable, t model.Term) error {
	if x, ok := t.(model.Variable); ok {
		if x.Name != v.Name {
			if err := th.Add(v, x); err != nil {
				return err
			}
		}
		return th.Add(x, theta.Column{Name: x.Name})
	}
	if err := th.Add(v, t); err != nil {
		return err
	}
	for _, x := range model.Variables(t) {
		if err := th.Add(x, theta.Column{Name: x.Name}); err != nil {
			return err
		}
	}
	return nil
}

// project selects the entry and pass variables followed by every column in
// order of first appearance, then whatever the callbacks projected.
func (c *Compiler) project() {
	extra := c.query.Projection
	c.query.Projection = nil
	c.query.Project(rdf.NewVariable(EntryVar), nil)
	c.query.Project(rdf.NewVariable(PassVar), nil)
	for _, p := range c.order {
		for _, col := range p.theta.Columns() {
			c.query.Project(rdf.NewVariable(col), nil)
		}
	}
	for _, p := range extra {
		c.query.Project(p.Variable, p.Expression)
	}
}
