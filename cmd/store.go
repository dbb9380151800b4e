package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-sync/internal/config"
	"github.com/sells-group/contact-sync/internal/resilience"
	"github.com/sells-group/contact-sync/internal/store"
	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// initStore opens the configured store and applies the schema.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(config.ScopeStore); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "create sqlite directory %s", dir)
			}
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initSevDesk builds the sevDesk client from config.
func initSevDesk() (sevdesk.Client, error) {
	if err := cfg.Validate(config.ScopeSevDesk); err != nil {
		return nil, err
	}

	retry := resilience.WithMaxAttempts(cfg.SevDesk.MaxRetries)

	client, err := sevdesk.NewClient(cfg.SevDesk.ClientConfig(),
		sevdesk.WithRateLimit(cfg.SevDesk.RateLimit),
		sevdesk.WithRetry(retry),
	)
	if err != nil {
		return nil, eris.Wrap(err, "init sevdesk")
	}
	return client, nil
}
