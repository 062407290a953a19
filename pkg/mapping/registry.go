// Package mapping holds the rule tables that map statement pattern shapes to
// SPARQL fragments.
//
// A rule set is built once with a Builder and frozen by Finalize. Each entry
// pairs one or more pattern shapes with a callback that emits the query
// fragment for a match, plus per-variable pre-processors, post-processors and
// defaults.
package mapping

import (
	"fmt"
	"sort"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// Phase is the state of a compilation.
type Phase uint8

const (
	PhaseReady Phase = iota
	PhaseCompilingFilter
	PhaseCompilingFingerprint
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseCompilingFilter:
		return "compiling_filter"
	case PhaseCompilingFingerprint:
		return "compiling_fingerprint"
	case PhaseDone:
		return "done"
	default:
		return "ready"
	}
}

// Context is what callbacks and hooks see of the compiler.
type Context interface {
	// Query returns the query being built; elements are appended to its
	// current graph pattern.
	Query() *sparql.Query
	// Filter returns the normalized filter being compiled.
	Filter() *model.Filter
	Phase() Phase
	// FreshVar returns a query variable no other part of the query uses.
	FreshVar(hint string) *rdf.Variable
}

// Args are the callback arguments keyed by the entry's variable names: RDF
// constants, or query variables for positions left open.
type Args map[string]rdf.Term

// Get returns the argument for name.
func (a Args) Get(name string) rdf.Term {
	return a[name]
}

// IsVar reports whether the argument for name is a query variable.
func (a Args) IsVar(name string) bool {
	_, ok := a[name].(*rdf.Variable)
	return ok
}

// Callback emits the query fragment of an entry for one match.
type Callback func(ctx Context, args Args) error

// Accumulator folds the records decoded from consecutive rows of one result
// stream. An empty row marks the end of the stream.
type Accumulator interface {
	Push(row rdf.Row, records []model.Record) ([]model.Record, error)
}

// Hooks extend the compiler for one rule set.
type Hooks struct {
	// PostAmble runs once the filter is compiled into a non-empty query.
	PostAmble func(ctx Context) error
	// NewAccumulator returns the accumulator for one result stream, or nil.
	NewAccumulator func(f *model.Filter) Accumulator
}

// Entry is one rule of a rule set. Entries are immutable once finalized.
type Entry struct {
	ID          int
	Priority    int
	Patterns    []model.Term
	Preprocess  map[model.Variable][]Processor
	Postprocess map[model.Variable][]Processor
	Defaults    map[model.Variable]model.Term
	Annotations *model.Annotations
	Callback    Callback
}

func (e *Entry) String() string {
	return fmt.Sprintf("entry %d", e.ID)
}

// RuleSet is a finalized, read-only rule table. It may be shared between
// goroutines.
type RuleSet struct {
	name    string
	entries []*Entry
	byID    map[int]*Entry
	hooks   Hooks
}

// Name returns the name the rule set was built with.
func (rs *RuleSet) Name() string { return rs.name }

// Entries returns the entries ordered by priority, then registration order.
func (rs *RuleSet) Entries() []*Entry { return rs.entries }

// Entry returns the entry with the given id.
func (rs *RuleSet) Entry(id int) (*Entry, bool) {
	e, ok := rs.byID[id]
	return e, ok
}

// Hooks returns the rule set hooks.
func (rs *RuleSet) Hooks() Hooks { return rs.hooks }

type registration struct {
	callback    Callback
	patterns    []model.Term
	preprocess  map[model.Variable][]Processor
	postprocess map[model.Variable][]Processor
	defaults    map[model.Variable]model.Term
	annotations *model.Annotations
	priority    int
}

// Option configures a registration.
type Option func(*registration)

// Patterns sets the pattern shapes the entry recognizes.
func Patterns(patterns ...model.Term) Option {
	return func(r *registration) { r.patterns = append(r.patterns, patterns...) }
}

// Preprocess appends processors run on the argument for v before the
// callback is invoked.
func Preprocess(v model.Variable, chain ...Processor) Option {
	return func(r *registration) { r.preprocess[v] = append(r.preprocess[v], chain...) }
}

// Postprocess appends processors run on the raw result value for v.
func Postprocess(v model.Variable, chain ...Processor) Option {
	return func(r *registration) { r.postprocess[v] = append(r.postprocess[v], chain...) }
}

// Default sets the value v takes when the store leaves it unbound; nil means
// absent.
func Default(v model.Variable, t model.Term) Option {
	return func(r *registration) { r.defaults[v] = t }
}

// Priority sets the entry priority; lower runs first. The default is 0.
func Priority(n int) Option {
	return func(r *registration) { r.priority = n }
}

// Annotations sets the annotations attached to statements produced by the
// entry when the store supplies none.
func Annotations(qualifiers []model.Term, references [][]model.Term, rank model.Rank) Option {
	return func(r *registration) {
		r.annotations = &model.Annotations{Qualifiers: qualifiers, References: references, Rank: rank}
	}
}

// Builder accumulates registrations for one rule set.
type Builder struct {
	name    string
	pending []*registration
	hooks   Hooks
}

// NewBuilder creates a builder for a rule set called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Register adds an entry with the given callback.
func (b *Builder) Register(cb Callback, opts ...Option) {
	r := &registration{
		callback:    cb,
		preprocess:  make(map[model.Variable][]Processor),
		postprocess: make(map[model.Variable][]Processor),
		defaults:    make(map[model.Variable]model.Term),
	}
	for _, opt := range opts {
		opt(r)
	}
	b.pending = append(b.pending, r)
}

// SetHooks sets the rule set hooks.
func (b *Builder) SetHooks(h Hooks) {
	b.hooks = h
}

// Finalize validates the registrations and freezes them into a rule set.
func (b *Builder) Finalize() (*RuleSet, error) {
	rs := &RuleSet{name: b.name, byID: make(map[int]*Entry), hooks: b.hooks}
	for id, r := range b.pending {
		e, err := r.freeze(id)
		if err != nil {
			return nil, err
		}
		rs.entries = append(rs.entries, e)
		rs.byID[id] = e
	}
	sort.SliceStable(rs.entries, func(i, j int) bool {
		return rs.entries[i].Priority < rs.entries[j].Priority
	})
	return rs, nil
}

func (r *registration) freeze(id int) (*Entry, error) {
	if r.callback == nil {
		return nil, &ConfigError{Entry: id, Msg: "missing callback"}
	}
	if len(r.patterns) == 0 {
		return nil, &ConfigError{Entry: id, Msg: "no patterns"}
	}
	canonical := make(map[string]model.Variable)
	for _, p := range r.patterns {
		if p == nil {
			return nil, &ConfigError{Entry: id, Msg: "nil pattern"}
		}
		for _, v := range model.Variables(p) {
			if c, ok := canonical[v.Name]; ok && c != v {
				return nil, &ConfigError{Entry: id, Msg: fmt.Sprintf("variable %s used as %s and %s", v.Name, c.Type, v.Type)}
			}
			canonical[v.Name] = v
		}
	}
	rekey := func(what string, v model.Variable) (model.Variable, error) {
		c, ok := canonical[v.Name]
		if !ok {
			return model.Variable{}, &ConfigError{Entry: id, Msg: fmt.Sprintf("%s for unknown variable %s", what, v.Name)}
		}
		return c, nil
	}

	e := &Entry{
		ID:          id,
		Priority:    r.priority,
		Patterns:    r.patterns,
		Preprocess:  make(map[model.Variable][]Processor, len(r.preprocess)),
		Postprocess: make(map[model.Variable][]Processor, len(r.postprocess)),
		Defaults:    make(map[model.Variable]model.Term, len(r.defaults)),
		Annotations: r.annotations,
		Callback:    r.callback,
	}
	for v, chain := range r.preprocess {
		c, err := rekey("preprocessor", v)
		if err != nil {
			return nil, err
		}
		e.Preprocess[c] = append(e.Preprocess[c], chain...)
	}
	for v, chain := range r.postprocess {
		c, err := rekey("postprocessor", v)
		if err != nil {
			return nil, err
		}
		e.Postprocess[c] = append(e.Postprocess[c], chain...)
	}
	for v, t := range r.defaults {
		c, err := rekey("default", v)
		if err != nil {
			return nil, err
		}
		if t != nil && !c.Type.Includes(t.Kind()) {
			return nil, &ConfigError{Entry: id, Msg: fmt.Sprintf("default %s does not fit %s", t, c)}
		}
		e.Defaults[c] = t
	}
	return e, nil
}
