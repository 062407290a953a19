package main

import (
	"fmt"

	"github.com/aleksaelezovic/kifql/internal/config"
	"github.com/aleksaelezovic/kifql/internal/engine"
	"github.com/aleksaelezovic/kifql/internal/graph"
	"github.com/aleksaelezovic/kifql/pkg/mapping/wikidata"
	"github.com/aleksaelezovic/kifql/pkg/store"
	"github.com/aleksaelezovic/kifql/pkg/store/httpsparql"
)

// openGraph opens the local graph named by the configuration.
func (a *app) openGraph() (*graph.Graph, error) {
	g, err := graph.Open(a.cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph at %q: %w", a.cfg.Data, err)
	}
	return g, nil
}

// openBackend returns the configured backend and a function releasing it.
func (a *app) openBackend() (store.Backend, func() error, error) {
	switch a.cfg.Backend {
	case config.BackendSPARQL:
		c, err := httpsparql.New(a.cfg.Endpoint,
			httpsparql.WithTimeout(a.cfg.GetTimeout()),
			httpsparql.WithLogger(a.logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	default:
		g, err := a.openGraph()
		if err != nil {
			return nil, nil, err
		}
		return engine.New(g, engine.WithLogger(a.logger)), g.Close, nil
	}
}

// openStore returns a store over the configured backend.
func (a *app) openStore() (*store.Store, func() error, error) {
	backend, closeFn, err := a.openBackend()
	if err != nil {
		return nil, nil, err
	}
	rules, err := wikidata.Rules()
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	s, err := store.New(backend, rules,
		store.WithLogger(a.logger),
		store.WithPageSize(a.cfg.PageSize),
		store.WithLimit(a.cfg.Limit),
		store.WithCacheSize(a.cfg.CacheSize),
	)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}
