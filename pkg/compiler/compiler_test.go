package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

const wd = "http://www.wikidata.org/entity/"

var (
	vs = model.Var("s", model.KindItem)
	vp = model.Var("p", model.KindProperty)
	vv = model.Var("v", model.KindItem)

	itemStatement = model.Statement{Subject: vs, Snak: model.ValueSnak{Property: vp, Value: vv}}

	q42 = model.NewItem(wd + "Q42")
	q5  = model.NewItem(wd + "Q5")
	q6  = model.NewItem(wd + "Q6")
	p31 = model.NewProperty(wd + "P31")
)

// triple emits ?s ?p ?v for the standard item statement pattern.
func triple(ctx mapping.Context, args mapping.Args) error {
	ctx.Query().Triple(args["s"], args["p"], args["v"])
	return nil
}

func itemRules(t *testing.T, opts ...mapping.Option) *mapping.RuleSet {
	t.Helper()
	b := mapping.NewBuilder("test")
	b.Register(triple, append([]mapping.Option{mapping.Patterns(itemStatement)}, opts...)...)
	rs, err := b.Finalize()
	require.NoError(t, err)
	return rs
}

func compile(t *testing.T, rs *mapping.RuleSet, f *model.Filter, opts ...Option) *Compiler {
	t.Helper()
	c := New(rs, opts...)
	require.NoError(t, c.Compile(f))
	return c
}

// projected returns the first projected variable whose name starts with
// prefix.
func projected(t *testing.T, q *sparql.Query, prefix string) string {
	t.Helper()
	for _, p := range q.Projection {
		if strings.HasPrefix(p.Variable.Name, prefix) {
			return p.Variable.Name
		}
	}
	t.Fatalf("no projected variable with prefix %q in %s", prefix, q)
	return ""
}

func TestCompile_SingleEntry(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Property = model.Equals(p31)
	c := compile(t, itemRules(t), f)

	q := c.Query()
	require.Len(t, q.Projection, 3)
	assert.Equal(t, EntryVar, q.Projection[0].Variable.Name)
	assert.Equal(t, PassVar, q.Projection[1].Variable.Name)
	value := projected(t, q, "value")
	text := q.String()
	assert.Contains(t, text, fmt.Sprintf("<%sQ42> <%sP31> ?%s .", wd, wd, value))
	assert.Contains(t, text, `BIND ("0"^^<http://www.w3.org/2001/XMLSchema#integer> AS ?entry_id)`)
	assert.Contains(t, text, `BIND ("0"^^<http://www.w3.org/2001/XMLSchema#integer> AS ?pass_id)`)

	records, err := c.NewDecoder().Decode(rdf.Row{
		EntryVar: rdf.NewIntegerLiteral(0),
		value:    rdf.NewNamedNode(wd + "Q5"),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Statement{Subject: q42, Snak: model.ValueSnak{Property: p31, Value: q5}}, records[0].Statement)
	assert.Nil(t, records[0].Annotations)
}

func TestCompile_OrOfValues(t *testing.T) {
	f := model.NewFilter()
	f.Value = model.Or(model.Equals(q5), model.Equals(q6), model.Equals(model.NewString("x")))
	c := compile(t, itemRules(t), f)

	value := projected(t, c.Query(), "value")
	text := c.Query().String()
	assert.Contains(t, text, fmt.Sprintf("VALUES (?%s) {", value))
	assert.Contains(t, text, fmt.Sprintf("(<%sQ5>)", wd))
	assert.Contains(t, text, fmt.Sprintf("(<%sQ6>)", wd))
	assert.NotContains(t, text, `"x"`, "values of the wrong kind produce no row")
}

func TestCompile_OrWithGroundPosition(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Value = model.Or(model.Equals(q5))
	c := compile(t, itemRules(t), f)
	assert.False(t, c.Query().IsFalse())

	// A ground subject that is not among the alternatives rules every entry
	// out.
	f = model.NewFilter()
	f.Subject = model.And(model.Equals(q42), model.Or(model.Equals(q5), model.Equals(q6)))
	c = compile(t, itemRules(t), f)
	assert.True(t, c.Query().IsFalse())
}

func TestCompile_EmptyFilter(t *testing.T) {
	f := model.NewFilter()
	f.SnakMask = 0
	c := compile(t, itemRules(t), f)
	assert.True(t, c.Query().IsFalse())
	assert.True(t, c.Query().WhereIsEmpty())
	assert.Equal(t, mapping.PhaseDone, c.Phase())
}

func TestCompile_NoEntryMatches(t *testing.T) {
	f := model.NewFilter()
	f.ValueMask = model.Kinds(model.KindString)
	f.SnakMask = model.Kinds(model.KindValueSnak)
	c := compile(t, itemRules(t), f)
	assert.True(t, c.Query().IsFalse())
}

func TestCompile_PriorityOrder(t *testing.T) {
	a := rdf.NewNamedNode("http://example.org/a")
	bp := rdf.NewNamedNode("http://example.org/b")
	b := mapping.NewBuilder("test")
	b.Register(func(ctx mapping.Context, args mapping.Args) error {
		ctx.Query().Triple(args["s"], a, args["v"])
		return nil
	}, mapping.Patterns(itemStatement), mapping.Priority(1))
	b.Register(func(ctx mapping.Context, args mapping.Args) error {
		ctx.Query().Triple(args["s"], bp, args["v"])
		return nil
	}, mapping.Patterns(itemStatement))
	rs, err := b.Finalize()
	require.NoError(t, err)

	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	text := compile(t, rs, f).Query().String()
	ia := strings.Index(text, "<http://example.org/a>")
	ib := strings.Index(text, "<http://example.org/b>")
	require.True(t, ia > 0 && ib > 0)
	assert.Less(t, ib, ia)
}

func TestCompile_SkipIsContained(t *testing.T) {
	b := mapping.NewBuilder("test")
	b.Register(func(mapping.Context, mapping.Args) error { return mapping.ErrSkip }, mapping.Patterns(itemStatement))
	b.Register(triple, mapping.Patterns(itemStatement))
	rs, err := b.Finalize()
	require.NoError(t, err)

	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	c := compile(t, rs, f)
	text := c.Query().String()
	assert.NotContains(t, text, `"0"^^<http://www.w3.org/2001/XMLSchema#integer> AS ?entry_id`, "the skipped entry leaves no branch")
	assert.Contains(t, text, `"1"^^<http://www.w3.org/2001/XMLSchema#integer> AS ?entry_id`)
	assert.Contains(t, text, `"0"^^<http://www.w3.org/2001/XMLSchema#integer> AS ?pass_id`)
}

func TestCompile_Errors(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.Equals(q42)

	t.Run("callback error", func(t *testing.T) {
		boom := errors.New("boom")
		b := mapping.NewBuilder("test")
		b.Register(func(mapping.Context, mapping.Args) error { return boom }, mapping.Patterns(itemStatement))
		rs, err := b.Finalize()
		require.NoError(t, err)
		assert.ErrorIs(t, New(rs).Compile(f), boom)
	})

	t.Run("converter error", func(t *testing.T) {
		conv := func(model.Term) (rdf.Term, error) { return nil, errors.New("bad") }
		err := New(itemRules(t), WithConverter(conv)).Compile(f)
		var cfg *mapping.ConfigError
		assert.True(t, errors.As(err, &cfg), "expected ConfigError, got %v", err)
	})

	t.Run("ill-typed fragment", func(t *testing.T) {
		b := mapping.NewBuilder("test")
		b.Register(func(ctx mapping.Context, args mapping.Args) error {
			ctx.Query().Triple(rdf.NewLiteral("x"), args["p"], args["v"])
			return nil
		}, mapping.Patterns(itemStatement))
		rs, err := b.Finalize()
		require.NoError(t, err)
		err = New(rs).Compile(f)
		var te *sparql.TypeError
		assert.True(t, errors.As(err, &te), "expected TypeError, got %v", err)
	})

	t.Run("compiled twice", func(t *testing.T) {
		c := compile(t, itemRules(t), f)
		assert.ErrorIs(t, c.Compile(f), ErrCompiled)
	})
}

func TestCompile_Phases(t *testing.T) {
	var seen []mapping.Phase
	var postAmble []mapping.Phase
	b := mapping.NewBuilder("test")
	b.Register(func(ctx mapping.Context, args mapping.Args) error {
		seen = append(seen, ctx.Phase())
		return triple(ctx, args)
	}, mapping.Patterns(itemStatement))
	b.SetHooks(mapping.Hooks{PostAmble: func(ctx mapping.Context) error {
		postAmble = append(postAmble, ctx.Phase())
		return nil
	}})
	rs, err := b.Finalize()
	require.NoError(t, err)

	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Value = model.HasValue(p31, model.Full())

	c := New(rs)
	assert.Equal(t, mapping.PhaseReady, c.Phase())
	require.NoError(t, c.Compile(f))
	assert.Equal(t, mapping.PhaseDone, c.Phase())
	assert.Equal(t, []mapping.Phase{mapping.PhaseDone}, postAmble)
	assert.Contains(t, seen, mapping.PhaseCompilingFilter)
	assert.Contains(t, seen, mapping.PhaseCompilingFingerprint)
}

func TestCompile_SnakFingerprint(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.HasValue(p31, model.Equals(q5))
	f.Property = model.Equals(p31)
	c := compile(t, itemRules(t), f)

	subject := projected(t, c.Query(), "subject")
	assert.Contains(t, c.Query().String(), fmt.Sprintf("?%s <%sP31> <%sQ5> .", subject, wd, wd))

	// Nothing can produce a no-value snak, so no subject qualifies.
	f = model.NewFilter()
	f.Subject = model.SnakFingerprint{Property: p31, Snak: model.KindNoValueSnak}
	c = compile(t, itemRules(t), f)
	assert.True(t, c.Query().IsFalse())
}

func TestCompile_ConverseSnakFingerprint(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Value = model.ValueOf(p31, model.Equals(q6))
	c := compile(t, itemRules(t), f)

	value := projected(t, c.Query(), "value")
	assert.Contains(t, c.Query().String(), fmt.Sprintf("<%sQ6> <%sP31> ?%s .", wd, wd, value))
}

func TestDecoder(t *testing.T) {
	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Property = model.Equals(p31)
	f.Annotated = true
	c := compile(t, itemRules(t, mapping.Annotations(nil, nil, model.RankPreferred)), f)
	value := projected(t, c.Query(), "value")
	d := c.NewDecoder()

	t.Run("annotations", func(t *testing.T) {
		records, err := d.Decode(rdf.Row{EntryVar: rdf.NewIntegerLiteral(0), value: rdf.NewNamedNode(wd + "Q5")})
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0].Annotations)
		assert.Equal(t, model.RankPreferred, records[0].Annotations.Rank)
	})

	t.Run("undecodable row", func(t *testing.T) {
		records, err := d.Decode(rdf.Row{EntryVar: rdf.NewIntegerLiteral(0), value: rdf.NewLiteral("Q5")})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unbound value", func(t *testing.T) {
		records, err := d.Decode(rdf.Row{EntryVar: rdf.NewIntegerLiteral(0)})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := d.Decode(rdf.Row{EntryVar: rdf.NewIntegerLiteral(7)})
		assert.Error(t, err)
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := d.Decode(rdf.Row{value: rdf.NewNamedNode(wd + "Q5")})
		assert.Error(t, err)
	})

	t.Run("end of stream", func(t *testing.T) {
		records, err := d.Decode(rdf.Row{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

type countingAccumulator struct {
	pushes int
}

func (a *countingAccumulator) Push(row rdf.Row, records []model.Record) ([]model.Record, error) {
	a.pushes++
	if len(row) == 0 {
		return []model.Record{{Statement: q6}}, nil
	}
	return records, nil
}

func TestDecoder_Accumulator(t *testing.T) {
	acc := &countingAccumulator{}
	b := mapping.NewBuilder("test")
	b.Register(triple, mapping.Patterns(itemStatement), mapping.Postprocess(vv, mapping.Replace(rdf.NewNamedNode(wd+"Q1"), rdf.NewNamedNode(wd+"Q5"))))
	b.SetHooks(mapping.Hooks{NewAccumulator: func(*model.Filter) mapping.Accumulator { return acc }})
	rs, err := b.Finalize()
	require.NoError(t, err)

	f := model.NewFilter()
	f.Subject = model.Equals(q42)
	f.Property = model.Equals(p31)
	c := compile(t, rs, f)
	value := projected(t, c.Query(), "value")
	d := c.NewDecoder()

	records, err := d.Decode(rdf.Row{EntryVar: rdf.NewIntegerLiteral(0), value: rdf.NewNamedNode(wd + "Q1")})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Statement{Subject: q42, Snak: model.ValueSnak{Property: p31, Value: q5}}, records[0].Statement)

	records, err = d.Decode(rdf.Row{})
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{Statement: q6}}, records)
	assert.Equal(t, 2, acc.pushes)
}

// columnRow builds a row for the first pass of q: the entry and pass
// variables plus one value per projected column, picked by name prefix.
func columnRow(t *testing.T, q *sparql.Query, values map[string]rdf.Term) rdf.Row {
	t.Helper()
	row := rdf.Row{EntryVar: rdf.NewIntegerLiteral(0), PassVar: rdf.NewIntegerLiteral(0)}
	for prefix, v := range values {
		row[projected(t, q, prefix)] = v
	}
	return row
}

func TestCompile_Conjunctions(t *testing.T) {
	q7 := model.NewItem(wd + "Q7")
	iri := func(item model.Item) rdf.Term { return rdf.NewNamedNode(item.IRI) }
	statement := func(s, v model.Term) model.Term {
		return model.Statement{Subject: s, Snak: model.ValueSnak{Property: p31, Value: v}}
	}

	tests := []struct {
		name     string
		subject  model.Fingerprint
		value    model.Fingerprint
		empty    bool
		text     func(t *testing.T, q *sparql.Query) []string
		excluded []string
		row      map[string]rdf.Term
		want     []model.Term
	}{
		{
			name:    "conflicting values",
			subject: model.Equals(q42),
			value:   model.And(model.Equals(q5), model.Equals(q6)),
			empty:   true,
		},
		{
			name:    "conflicting nested values",
			subject: model.Equals(q42),
			value:   model.And(model.Equals(q5), model.And(model.Equals(q6), model.Full())),
			empty:   true,
		},
		{
			name:    "agreeing values",
			subject: model.Equals(q42),
			value:   model.And(model.Equals(q5), model.Equals(q5)),
			text: func(*testing.T, *sparql.Query) []string {
				return []string{fmt.Sprintf("<%sQ42> <%sP31> <%sQ5> .", wd, wd, wd)}
			},
			want: []model.Term{statement(q42, q5)},
		},
		{
			name:    "value and snak",
			subject: model.And(model.Equals(q5), model.HasValue(p31, model.Equals(q6))),
			text: func(t *testing.T, q *sparql.Query) []string {
				value := projected(t, q, "value")
				return []string{
					fmt.Sprintf("<%sQ5> <%sP31> ?%s .", wd, wd, value),
					fmt.Sprintf("<%sQ5> <%sP31> <%sQ6> .", wd, wd, wd),
				}
			},
			row:  map[string]rdf.Term{"value": iri(q7)},
			want: []model.Term{statement(q5, q7)},
		},
		{
			name:    "conflicting values in one alternative",
			subject: model.Or(model.And(model.Equals(q5), model.Equals(q6)), model.HasValue(p31, model.Equals(q42))),
			text: func(t *testing.T, q *sparql.Query) []string {
				subject := projected(t, q, "subject")
				return []string{fmt.Sprintf("?%s <%sP31> <%sQ42> .", subject, wd, wd)}
			},
			excluded: []string{"VALUES", "UNION", "Q5>", "Q6>"},
			row:      map[string]rdf.Term{"subject": iri(q7), "value": iri(q5)},
			want:     []model.Term{statement(q7, q5)},
		},
		{
			name:    "value and snak in one alternative",
			subject: model.Or(model.And(model.Equals(q5), model.HasValue(p31, model.Equals(q6))), model.HasValue(p31, model.Equals(q42))),
			text: func(t *testing.T, q *sparql.Query) []string {
				subject := projected(t, q, "subject")
				return []string{
					fmt.Sprintf("VALUES (?%s) {", subject),
					fmt.Sprintf("(<%sQ5>)", wd),
					fmt.Sprintf("?%s <%sP31> <%sQ6> .", subject, wd, wd),
					"UNION",
					fmt.Sprintf("?%s <%sP31> <%sQ42> .", subject, wd, wd),
				}
			},
			row:  map[string]rdf.Term{"subject": iri(q5), "value": iri(q7)},
			want: []model.Term{statement(q5, q7)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := model.NewFilter()
			f.Property = model.Equals(p31)
			if tt.subject != nil {
				f.Subject = tt.subject
			}
			if tt.value != nil {
				f.Value = tt.value
			}
			c := compile(t, itemRules(t), f)
			q := c.Query()
			if tt.empty {
				assert.True(t, q.IsFalse())
				assert.True(t, q.WhereIsEmpty())
				return
			}
			require.False(t, q.IsFalse())

			text := q.String()
			at := 0
			for _, part := range tt.text(t, q) {
				i := strings.Index(text[at:], part)
				require.GreaterOrEqual(t, i, 0, "%q missing or out of order in\n%s", part, text)
				at += i + len(part)
			}
			for _, part := range tt.excluded {
				assert.NotContains(t, text, part)
			}

			records, err := c.NewDecoder().Decode(columnRow(t, q, tt.row))
			require.NoError(t, err)
			var got []model.Term
			for _, r := range records {
				got = append(got, r.Statement)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_PassOrdinal(t *testing.T) {
	b := mapping.NewBuilder("test")
	b.Register(triple, mapping.Patterns(model.Statement{
		Subject: model.Var("s", model.KindEntity),
		Snak:    model.ValueSnak{Property: vp, Value: vv},
	}))
	rs, err := b.Finalize()
	require.NoError(t, err)

	f := model.NewFilter()
	f.Property = model.Equals(p31)
	f.SnakMask = model.Kinds(model.KindValueSnak)
	f.ValueMask = model.Kinds(model.KindItem)
	c := compile(t, rs, f)
	require.Len(t, c.order, 3, "one pass per subject kind")

	// A row carrying the columns of every pass.
	row := rdf.Row{EntryVar: rdf.NewIntegerLiteral(0)}
	for _, p := range c.Query().Projection {
		switch name := p.Variable.Name; {
		case name == EntryVar || name == PassVar:
		case strings.HasPrefix(name, "subject"):
			row[name] = rdf.NewNamedNode(wd + "Q42")
		default:
			row[name] = rdf.NewNamedNode(wd + "Q5")
		}
	}
	d := c.NewDecoder()

	records, err := d.Decode(row)
	require.NoError(t, err)
	assert.Len(t, records, 3, "without an ordinal every pass decodes")

	row[PassVar] = rdf.NewIntegerLiteral(1)
	records, err = d.Decode(row)
	require.NoError(t, err)
	want, err := d.decodePass(c.order[1], row)
	require.NoError(t, err)
	require.Len(t, want, 1)
	require.Len(t, records, 1)
	assert.Equal(t, want[0], records[0].Statement)

	for _, bad := range []rdf.Term{rdf.NewIntegerLiteral(3), rdf.NewIntegerLiteral(-1), rdf.NewLiteral("one")} {
		row[PassVar] = bad
		_, err := d.Decode(row)
		assert.Error(t, err, "pass %s", bad)
	}
}
