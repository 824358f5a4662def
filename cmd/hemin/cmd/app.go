package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/mpgirro/hemin/internal/catalog"
	"github.com/mpgirro/hemin/internal/config"
	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/exo"
	"github.com/mpgirro/hemin/internal/feed"
	"github.com/mpgirro/hemin/internal/fetch"
	"github.com/mpgirro/hemin/internal/index"
	"github.com/mpgirro/hemin/internal/ingest"
	"github.com/mpgirro/hemin/internal/preflight"
	"github.com/mpgirro/hemin/internal/ui"
)

// stores holds the opened index and catalog of one command run.
type stores struct {
	cfg     *config.Config
	engine  *index.Engine
	catalog *catalog.Catalog
}

// openStores loads the configuration and opens the index and catalog.
func openStores() (*stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStoresWith(cfg)
}

// openStoresForWrite is openStores for commands that ingest. Critical
// preflight failures abort before the index is touched.
func openStoresForWrite(ctx context.Context) (*stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	checker := preflight.New()
	results := checker.RunAll(ctx, preflightTargets(cfg))
	for _, r := range results {
		if r.IsCritical() {
			return nil, herrors.IOError(herrors.ErrCodeFileWrite, r.Name+": "+r.Message, nil).
				WithSuggestion("Run 'hemin doctor' for details")
		}
		if r.Status != preflight.StatusPass {
			slog.Warn("preflight_warning", slog.String("check", r.Name), slog.String("message", r.Message))
		}
	}
	return openStoresWith(cfg)
}

func preflightTargets(cfg *config.Config) preflight.Targets {
	return preflight.Targets{IndexPath: cfg.Index.Path, CatalogPath: cfg.Catalog.Path}
}

func openStoresWith(cfg *config.Config) (*stores, error) {
	logger := slog.Default()
	cacheSize := cfg.Index.ResultCacheSize
	if cacheSize == 0 {
		cacheSize = -1
	}
	engine, err := index.Open(index.Config{
		Path:      cfg.Index.Path,
		CacheSize: cacheSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.Catalog.Path, catalog.WithLogger(logger))
	if err != nil {
		engine.Destroy()
		return nil, err
	}
	return &stores{cfg: cfg, engine: engine, catalog: cat}, nil
}

// Close releases the index lock and the catalog.
func (s *stores) Close() {
	s.engine.Destroy()
	if err := s.catalog.Close(); err != nil {
		slog.Warn("catalog_close_failed", slog.String("error", err.Error()))
	}
}

// newPipeline wires an ingestion pipeline over s.
func (s *stores) newPipeline(renderer ui.Renderer) (*ingest.Pipeline, error) {
	ids, err := exo.New(s.cfg.IDs.Shard)
	if err != nil {
		return nil, herrors.ConfigError("invalid ids.shard", err)
	}

	retry := herrors.DefaultRetryConfig()
	retry.MaxRetries = s.cfg.Fetch.Retries
	client := fetch.NewClient(fetch.Config{
		Timeout:   s.cfg.FetchTimeout(),
		UserAgent: s.cfg.Fetch.UserAgent,
		Retry:     retry,
	}, fetch.WithLogger(slog.Default()))

	deps := ingest.Dependencies{
		Fetcher:    client,
		Normalizer: feed.NewNormalizer(feed.WithLogger(slog.Default())),
		Catalog:    s.catalog,
		Engine:     s.engine,
		IDs:        ids,
		Renderer:   renderer,
		Logger:     slog.Default(),
		Workers:    s.cfg.Ingest.Workers,
	}
	if s.cfg.Fetch.CrawlWebsites {
		deps.Crawler = fetch.NewCrawler(client)
	}
	return ingest.NewPipeline(deps)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
