package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/theta"
)

// Decoder turns the rows of one result stream of a compiled query into
// records. A Decoder is not safe for concurrent use; take one per stream.
type Decoder struct {
	c   *Compiler
	acc mapping.Accumulator
}

// NewDecoder returns a decoder for one result stream of the compiled query.
func (c *Compiler) NewDecoder() *Decoder {
	d := &Decoder{c: c}
	if fn := c.rules.Hooks().NewAccumulator; fn != nil && c.filter != nil {
		d.acc = fn(c.filter)
	}
	return d
}

// Decode decodes one row. Rows that decode to nothing yield no records; an
// empty row ends the stream and flushes whatever the decoder still holds.
func (d *Decoder) Decode(row rdf.Row) ([]model.Record, error) {
	if len(row) == 0 {
		if d.acc == nil {
			return nil, nil
		}
		return d.acc.Push(row, nil)
	}

	raw, ok := row[EntryVar].(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("failed to decode row: missing %s", EntryVar)
	}
	id, err := strconv.Atoi(raw.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode row: bad %s %q: %w", EntryVar, raw.Value, err)
	}
	passes, ok := d.c.passes[id]
	if !ok {
		return nil, fmt.Errorf("failed to decode row: unknown entry %d", id)
	}
	// Without a pass ordinal every pass of the entry is tried.
	if raw, ok := row[PassVar].(*rdf.Literal); ok {
		n, err := strconv.Atoi(raw.Value)
		if err != nil || n < 0 || n >= len(d.c.order) || d.c.order[n].entry != id {
			return nil, fmt.Errorf("failed to decode row: bad %s %q for entry %d", PassVar, raw.Value, id)
		}
		passes = d.c.order[n : n+1]
	}

	var records []model.Record
	seen := make(map[string]bool)
	for _, p := range passes {
		stmts, err := d.decodePass(p, row)
		if err != nil {
			return nil, err
		}
		for _, st := range stmts {
			key := st.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			rec := model.Record{Statement: st}
			if d.c.filter.Annotated {
				rec.Annotations = cloneAnnotations(p.annotations)
			}
			records = append(records, rec)
		}
	}
	if d.acc == nil {
		return records, nil
	}
	return d.acc.Push(row, records)
}

func (d *Decoder) decodePass(p *pass, row rdf.Row) ([]model.Term, error) {
	local := make(rdf.Row, len(row))
	for k, v := range row {
		local[k] = v
	}
	for col, chain := range p.post {
		v, present := local[col]
		if !present || v == nil {
			continue
		}
		out, ok := mapping.Run(chain, v)
		if !ok {
			return nil, nil
		}
		if out == nil {
			delete(local, col)
		} else {
			local[col] = out
		}
	}

	b, err := p.theta.Instantiate(local)
	if errors.Is(err, theta.ErrDecode) {
		d.c.logger.Debug("row does not decode", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}

	var out []model.Term
	for _, target := range p.targets {
		st := model.Instantiate(target, b)
		if model.IsGround(st) {
			out = append(out, st)
		}
	}
	return out, nil
}

func cloneAnnotations(a *model.Annotations) *model.Annotations {
	if a == nil {
		return &model.Annotations{}
	}
	out := &model.Annotations{Rank: a.Rank}
	out.Qualifiers = append(out.Qualifiers, a.Qualifiers...)
	for _, ref := range a.References {
		out.References = append(out.References, append([]model.Term(nil), ref...))
	}
	return out
}
