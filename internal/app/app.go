// Package app wires the process: logger, graph client, optional cache, the
// store set and the ops HTTP surface. Everything is constructed once here and
// handed down; no package-level singletons.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
	"github.com/avionde/odp-backend/internal/platform/redisdb"
	"github.com/avionde/odp-backend/internal/refdata"
	"github.com/avionde/odp-backend/internal/store"
)

type App struct {
	Log    *logger.Logger
	Graph  *neo4jdb.Client
	Cache  *redisdb.Client
	Cfg    Config
	Stores Stores
	Router *gin.Engine
}

// Stores is the full store set. Taxonomy stores share one implementation
// parameterized by entity kind.
type Stores struct {
	Requirements *store.RequirementStore
	Changes      *store.ChangeStore
	Baselines    *store.BaselineStore
	Editions     *store.EditionStore
	Waves        *store.WaveStore
	WaveFilter   *store.WaveFilter

	StakeholderCategories *store.TaxonomyStore
	DataCategories        *store.TaxonomyStore
	Services              *store.TaxonomyStore
	Documents             *store.TaxonomyStore
	RegulatoryAspects     *store.TaxonomyStore
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init graph client: %w", err)
	}
	graph.InitSchema(ctx)

	cache, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init cache client: %w", err)
	}

	stores := wireStores(log, cache)

	a := &App{
		Log:    log,
		Graph:  graph,
		Cache:  cache,
		Cfg:    cfg,
		Stores: stores,
	}
	a.Router = wireRouter(a)

	if cfg.WavesFile != "" {
		if err := refdata.SeedWaves(ctx, graph, stores.Waves, cfg.WavesFile, cfg.SeedActor, log); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("seed waves: %w", err)
		}
	}

	return a, nil
}

func wireStores(log *logger.Logger, cache *redisdb.Client) Stores {
	waveFilter := store.NewWaveFilter(log)
	return Stores{
		Requirements: store.NewRequirementStore(log, waveFilter),
		Changes:      store.NewChangeStore(log, waveFilter),
		Baselines:    store.NewBaselineStore(log),
		Editions:     store.NewEditionStore(log, cache),
		Waves:        store.NewWaveStore(log),
		WaveFilter:   waveFilter,

		StakeholderCategories: store.NewTaxonomyStore(log, domain.KindStakeholderCategory),
		DataCategories:        store.NewTaxonomyStore(log, domain.KindDataCategory),
		Services:              store.NewTaxonomyStore(log, domain.KindService),
		Documents:             store.NewTaxonomyStore(log, domain.KindDocument),
		RegulatoryAspects:     store.NewTaxonomyStore(log, domain.KindRegulatoryAspect),
	}
}

func (a *App) Close(ctx context.Context) {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("cache close failed", "error", err)
		}
	}
	if err := a.Graph.Close(ctx); err != nil {
		a.Log.Warn("graph close failed", "error", err)
	}
	a.Log.Sync()
}
