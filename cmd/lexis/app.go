package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/config"
	"github.com/huntkil/lexis/internal/db"
	"github.com/huntkil/lexis/internal/db/memory"
	dbRedis "github.com/huntkil/lexis/internal/db/redis"
	"github.com/huntkil/lexis/internal/db/sqlstore"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
	"github.com/huntkil/lexis/internal/index"
	"github.com/huntkil/lexis/internal/metrics"
	reporecord "github.com/huntkil/lexis/internal/repository/record"
	"github.com/huntkil/lexis/internal/text/highlight"
	"github.com/huntkil/lexis/internal/text/synonym"
	healthuc "github.com/huntkil/lexis/internal/usecase/health"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	recorduc "github.com/huntkil/lexis/internal/usecase/record"
	searchuc "github.com/huntkil/lexis/internal/usecase/search"
	suggestuc "github.com/huntkil/lexis/internal/usecase/suggest"
)

// app is the composition root shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store
	registry *index.Registry
	search   *searchuc.Service
	suggest  *suggestuc.Service
	records  *recorduc.Service
	rebuild  *rebuilduc.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	logger.Info("Connected to store", zap.String("driver", cfg.Store.Driver))

	registry, err := buildRegistry(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	// Register search metrics explicitly (no init())
	metrics.Register()

	repo := reporecord.New(store)
	writer := recorduc.StoreFunc(func(ctx context.Context) (recorduc.Tx, error) {
		tx, err := repo.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	})

	searchSvc := searchuc.New(registry, repo,
		searchuc.WithSynonyms(synonym.New(cfg.Synonyms)),
		searchuc.WithHighlighter(highlight.New(cfg.Search.HighlightPre, cfg.Search.HighlightPost)),
		searchuc.WithSlowQuery(time.Duration(cfg.Search.SlowQueryMS)*time.Millisecond),
		searchuc.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		search:   searchSvc,
		suggest:  suggestuc.New(registry, logger),
		records:  recorduc.New(writer, registry, logger),
		rebuild:  rebuilduc.New(registry, repo, cfg.Maintenance.RebuildParallelism, logger),
		health:   healthuc.New(store, registry),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// warmUp rebuilds every index from the store and logs per-type outcomes.
func (a *app) warmUp(ctx context.Context) error {
	report := a.rebuild.RebuildAll(ctx)
	for _, o := range report.Outcomes {
		if o.Err != nil {
			a.logger.Error("Index rebuild failed", zap.String("entity_type", o.EntityType), zap.Error(o.Err))
			continue
		}
		a.logger.Info("Index rebuilt",
			zap.String("entity_type", o.EntityType),
			zap.Int("documents", o.Documents),
			zap.Duration("elapsed", o.Duration),
		)
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("rebuild indexes: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Driver, DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// buildRegistry registers every configured entity type and seals the registry.
func buildRegistry(cfg config.Config) (*index.Registry, error) {
	types, err := entityTypes(cfg.EntityTypes)
	if err != nil {
		return nil, err
	}
	reg := index.NewRegistry(index.Params{K1: cfg.Search.K1, B: cfg.Search.B})
	for _, et := range types {
		if _, err := reg.Register(et); err != nil {
			return nil, fmt.Errorf("register entity type %s: %w", et.Name(), err)
		}
	}
	reg.Seal()
	return reg, nil
}

func entityTypes(in []config.EntityTypeConfig) ([]entity.Type, error) {
	out := make([]entity.Type, 0, len(in))
	for _, tc := range in {
		fields := make([]field.Field, 0, len(tc.Fields))
		for _, fc := range tc.Fields {
			f, err := field.New(fc.Name, fc.Weight)
			if err != nil {
				return nil, fmt.Errorf("entity type %s: %w", tc.Name, err)
			}
			fields = append(fields, f)
		}
		et, err := entity.New(tc.Name, tc.Source, fields, tc.Filterable,
			entity.WithNameField(tc.NameField),
			entity.WithDateFields(tc.DateFields...),
			entity.WithURLPattern(tc.URL),
		)
		if err != nil {
			return nil, fmt.Errorf("entity type %s: %w", tc.Name, err)
		}
		out = append(out, et)
	}
	return out, nil
}
