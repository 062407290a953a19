// Package store retrieves statements matching a filter from a SPARQL
// backend. A Store compiles the filter with its rule set, pages through the
// solutions of the compiled query and decodes them into records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/compiler"
	"github.com/aleksaelezovic/kifql/pkg/mapping"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

const (
	DefaultPageSize  = 100
	DefaultCacheSize = 256
)

// CountVar is the column Count reads the number of solutions from.
const CountVar = "count"

// Backend evaluates SPARQL queries.
type Backend interface {
	Select(ctx context.Context, q *sparql.Query) ([]rdf.Row, error)
	Ask(ctx context.Context, q *sparql.Query) (bool, error)
}

// Source is anything statements can be retrieved from: a Store or a Mixer.
type Source interface {
	Each(ctx context.Context, f *model.Filter, fn func(model.Record) error) error
	Filter(ctx context.Context, f *model.Filter) ([]model.Record, error)
	Count(ctx context.Context, f *model.Filter) (int, error)
	Contains(ctx context.Context, f *model.Filter) (bool, error)
}

var errLimit = errors.New("limit reached")

// Store runs filters against one backend. It is safe for concurrent use.
type Store struct {
	backend   Backend
	rules     *mapping.RuleSet
	logger    *zap.Logger
	pageSize  int
	limit     int
	cacheSize int
	cache     *lru.Cache[uint64, *compiler.Compiler]
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPageSize sets the number of solutions fetched per request.
func WithPageSize(n int) Option {
	return func(s *Store) { s.pageSize = n }
}

// WithLimit caps the number of records a single call returns; zero means no
// limit.
func WithLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// WithCacheSize sets how many compiled filters are kept.
func WithCacheSize(n int) Option {
	return func(s *Store) { s.cacheSize = n }
}

// New creates a store compiling filters with rules and evaluating them on
// backend.
func New(backend Backend, rules *mapping.RuleSet, opts ...Option) (*Store, error) {
	s := &Store{
		backend:   backend,
		rules:     rules,
		logger:    zap.NewNop(),
		pageSize:  DefaultPageSize,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", s.pageSize)
	}
	if s.limit < 0 {
		return nil, fmt.Errorf("invalid limit %d", s.limit)
	}
	cache, err := lru.New[uint64, *compiler.Compiler](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Compile returns the compiled query for f. Filters that normalize to the
// same filter share one compiler.
func (s *Store) Compile(f *model.Filter) (*compiler.Compiler, error) {
	key := xxh3.HashString(f.Normalize().String())
	if c, ok := s.cache.Get(key); ok {
		return c, nil
	}
	c := compiler.New(s.rules, compiler.WithLogger(s.logger))
	if err := c.Compile(f); err != nil {
		return nil, err
	}
	s.cache.Add(key, c)
	return c, nil
}

// Each calls fn for every distinct statement matching f, in the order the
// backend returns them. Returning an error from fn stops the iteration.
func (s *Store) Each(ctx context.Context, f *model.Filter, fn func(model.Record) error) error {
	logger := s.logger.With(zap.String("request", uuid.NewString()))
	start := time.Now()

	c, err := s.Compile(f)
	if err != nil {
		return err
	}
	q := c.Query()
	if q.IsFalse() {
		logger.Debug("filter matches nothing", zap.Stringer("filter", f))
		return nil
	}

	var (
		dec     = c.NewDecoder()
		seen    = make(map[string]bool)
		emitted int
		pages   int
	)
	emit := func(records []model.Record) error {
		for _, r := range records {
			key := r.Statement.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := fn(r); err != nil {
				return err
			}
			emitted++
			if s.limit > 0 && emitted >= s.limit {
				return errLimit
			}
		}
		return nil
	}

	err = func() error {
		for offset := 0; ; offset += s.pageSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := s.backend.Select(ctx, q.Page(s.pageSize, offset))
			if err != nil {
				return fmt.Errorf("failed to fetch page at offset %d: %w", offset, err)
			}
			pages++
			for _, row := range rows {
				records, err := dec.Decode(row)
				if err != nil {
					return err
				}
				if err := emit(records); err != nil {
					return err
				}
			}
			if len(rows) < s.pageSize {
				break
			}
		}
		records, err := dec.Decode(rdf.Row{})
		if err != nil {
			return err
		}
		return emit(records)
	}()
	if errors.Is(err, errLimit) {
		err = nil
	}

	logger.Debug("filter evaluated",
		zap.Int("records", emitted),
		zap.Int("pages", pages),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// Filter returns the distinct statements matching f.
func (s *Store) Filter(ctx context.Context, f *model.Filter) ([]model.Record, error) {
	var out []model.Record
	err := s.Each(ctx, f, func(r model.Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of solutions of the query compiled for f without
// annotations. A statement reachable through several entries is counted once
// per entry.
func (s *Store) Count(ctx context.Context, f *model.Filter) (int, error) {
	plain := *f
	plain.Annotated = false
	c, err := s.Compile(&plain)
	if err != nil {
		return 0, err
	}
	if c.Query().IsFalse() {
		return 0, nil
	}
	rows, err := s.backend.Select(ctx, c.Query().AsCount(rdf.NewVariable(CountVar)))
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	if len(rows) != 1 {
		return 0, fmt.Errorf("failed to count: expected one row, got %d", len(rows))
	}
	lit, ok := rows[0][CountVar].(*rdf.Literal)
	if !ok {
		return 0, fmt.Errorf("failed to count: missing %s", CountVar)
	}
	n, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

// Contains reports whether some statement matches f.
func (s *Store) Contains(ctx context.Context, f *model.Filter) (bool, error) {
	c, err := s.Compile(f)
	if err != nil {
		return false, err
	}
	if c.Query().IsFalse() {
		return false, nil
	}
	ok, err := s.backend.Ask(ctx, c.Query().AsAsk())
	if err != nil {
		return false, fmt.Errorf("failed to ask: %w", err)
	}
	return ok, nil
}
