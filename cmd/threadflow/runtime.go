package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mwhite-dev/threadflow/config"
	"github.com/mwhite-dev/threadflow/graph"
	"github.com/mwhite-dev/threadflow/graph/store"
	"github.com/mwhite-dev/threadflow/triage"
)

// buildStore constructs the configured checkpoint backend. The returned
// cleanup releases its resources and must be called on shutdown.
func buildStore(cfg config.Config) (store.Store[triage.State], func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemStore[triage.State](), func() error { return nil }, nil
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
			}
		}
		st, err := store.NewSQLiteStore[triage.State](cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendMySQL:
		st, err := store.NewMySQLStore[triage.State](cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendRedis:
		st := store.NewRedisStore[triage.State](cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB)
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildEngine wires the triage graph, the configured store, and engine
// options into a ready engine.
func buildEngine(cfg config.Config, st store.Store[triage.State], opts ...graph.Option) (*graph.Engine[triage.State], error) {
	kb := triage.DefaultKB()
	if cfg.KBPath != "" {
		loaded, err := triage.LoadKB(cfg.KBPath)
		if err != nil {
			return nil, err
		}
		kb = loaded
	}

	g, err := triage.NewGraph(kb)
	if err != nil {
		return nil, err
	}

	opts = append([]graph.Option{
		graph.WithMaxSteps(cfg.Engine.MaxSteps),
		graph.WithNodeTimeout(cfg.Engine.NodeTimeout),
	}, opts...)

	return graph.New(g, st, opts...), nil
}
