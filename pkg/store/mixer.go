package store

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/kifql/pkg/model"
)

// Mixer queries several sources concurrently and merges their answers.
// Records keep the order of the sources; a statement found in more than one
// source is reported once.
type Mixer struct {
	sources []Source
	logger  *zap.Logger
}

// NewMixer returns a mixer over sources.
func NewMixer(logger *zap.Logger, sources ...Source) *Mixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mixer{sources: sources, logger: logger}
}

func (m *Mixer) Each(ctx context.Context, f *model.Filter, fn func(model.Record) error) error {
	records, err := m.Filter(ctx, f)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mixer) Filter(ctx context.Context, f *model.Filter) ([]model.Record, error) {
	results := make([][]model.Record, len(m.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		i, src := i, src
		g.Go(func() error {
			records, err := src.Filter(ctx, f)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Record
	seen := make(map[string]bool)
	for i, records := range results {
		m.logger.Debug("source answered", zap.Int("source", i), zap.Int("records", len(records)))
		for _, r := range records {
			key := r.Statement.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// Count sums the counts of all sources.
func (m *Mixer) Count(ctx context.Context, f *model.Filter) (int, error) {
	counts := make([]int, len(m.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		i, src := i, src
		g.Go(func() error {
			n, err := src.Count(ctx, f)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Contains reports whether any source contains a statement matching f.
func (m *Mixer) Contains(ctx context.Context, f *model.Filter) (bool, error) {
	found := make([]bool, len(m.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		i, src := i, src
		g.Go(func() error {
			ok, err := src.Contains(ctx, f)
			found[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range found {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

var (
	_ Source = (*Store)(nil)
	_ Source = (*Mixer)(nil)
)
