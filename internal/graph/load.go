package graph

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// DefaultBatchSize is the number of triples written per transaction by Load.
const DefaultBatchSize = 1000

// Load reads N-Triples from r into the graph, committing every batch
// triples. It returns the number of triples read.
func (g *Graph) Load(ctx context.Context, r io.Reader, batch int) (int, error) {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	reader := rdf.NewNTriplesReader(r)
	pending := make([]*rdf.Triple, 0, batch)
	n := 0
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := g.Insert(pending...); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		pending = pending[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		t, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to read triples: %w", err)
		}
		pending = append(pending, t)
		n++
		if len(pending) == batch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	return n, flush()
}
