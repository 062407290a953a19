// Package engine evaluates compiled SPARQL query trees against the local
// triple graph.
//
// Group patterns are evaluated left to right, each element extending the
// solutions produced so far; filters (including FILTER NOT EXISTS) apply to
// the whole group once its other elements are evaluated.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/internal/graph"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// Engine answers SELECT and ASK queries over a graph.
type Engine struct {
	graph  *graph.Graph
	eval   *Evaluator
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; queries are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over g.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{graph: g, eval: NewEvaluator(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the engine reads.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Select evaluates a SELECT query and returns its solutions.
func (e *Engine) Select(ctx context.Context, q *sparql.Query) ([]rdf.Row, error) {
	if q.Form != sparql.QueryFormSelect {
		return nil, fmt.Errorf("not a SELECT query")
	}
	start := time.Now()
	rows, err := e.exec(ctx).query(q)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("select evaluated",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

// Ask evaluates an ASK query.
func (e *Engine) Ask(ctx context.Context, q *sparql.Query) (bool, error) {
	if q.Form != sparql.QueryFormAsk {
		return false, fmt.Errorf("not an ASK query")
	}
	if q.IsFalse() {
		return false, nil
	}
	rows, err := e.exec(ctx).group(q.Where, []rdf.Row{{}})
	if err != nil {
		return false, err
	}
	e.logger.Debug("ask evaluated", zap.Bool("result", len(rows) > 0))
	return len(rows) > 0, nil
}

func (e *Engine) exec(ctx context.Context) *executor {
	return &executor{ctx: ctx, graph: e.graph, eval: e.eval}
}
