// Package ingest turns feed URLs and local feed files into catalog records
// and searchable index documents.
//
// A run moves every feed through four stages: fetch, parse, store and
// index. Fetch and parse run on a bounded worker pool; store and index are
// sequential because the catalog and the index each have a single writer.
// A feed that fails in one stage is skipped by the later ones without
// affecting its siblings.
package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mpgirro/hemin/internal/catalog"
	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/exo"
	"github.com/mpgirro/hemin/internal/feed"
	"github.com/mpgirro/hemin/internal/index"
	"github.com/mpgirro/hemin/internal/logging"
	"github.com/mpgirro/hemin/internal/podcast"
	"github.com/mpgirro/hemin/internal/ui"
)

// DefaultWorkers is the fetch and parse concurrency when none is configured.
const DefaultWorkers = 4

// Fetcher downloads a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// WebsiteCrawler extracts readable text from a show's website.
type WebsiteCrawler interface {
	Text(ctx context.Context, url string) (string, error)
}

// Dependencies holds the collaborators of a Pipeline. Crawler, Renderer
// and Logger are optional.
type Dependencies struct {
	Fetcher    Fetcher
	Crawler    WebsiteCrawler
	Normalizer *feed.Normalizer
	Catalog    *catalog.Catalog
	Engine     *index.Engine
	IDs        *exo.Generator
	Renderer   ui.Renderer
	Logger     *slog.Logger

	// Workers bounds concurrent fetches and parses. Zero means DefaultWorkers.
	Workers int
}

// Pipeline ingests feeds. Runs are not meant to overlap; callers serialize
// Ingest and IngestFile.
type Pipeline struct {
	fetcher    Fetcher
	crawler    WebsiteCrawler
	normalizer *feed.Normalizer
	catalog    *catalog.Catalog
	engine     *index.Engine
	ids        *exo.Generator
	renderer   ui.Renderer
	logger     *slog.Logger
	workers    int
}

// NewPipeline validates deps and creates a Pipeline.
func NewPipeline(deps Dependencies) (*Pipeline, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.ValidationError("ingest pipeline requires a fetcher", nil)
	case deps.Catalog == nil:
		return nil, errors.ValidationError("ingest pipeline requires a catalog", nil)
	case deps.Engine == nil:
		return nil, errors.ValidationError("ingest pipeline requires an index engine", nil)
	case deps.IDs == nil:
		return nil, errors.ValidationError("ingest pipeline requires an id generator", nil)
	}

	p := &Pipeline{
		fetcher:    deps.Fetcher,
		crawler:    deps.Crawler,
		normalizer: deps.Normalizer,
		catalog:    deps.Catalog,
		engine:     deps.Engine,
		ids:        deps.IDs,
		renderer:   deps.Renderer,
		logger:     logging.OrDefault(deps.Logger),
		workers:    deps.Workers,
	}
	if p.normalizer == nil {
		p.normalizer = feed.NewNormalizer(feed.WithLogger(p.logger))
	}
	if p.renderer == nil {
		p.renderer = ui.Discard
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	return p, nil
}

// FeedFailure records why a feed was skipped.
type FeedFailure struct {
	URL    string
	Status podcast.FeedStatus
	Err    error
}

// Report summarizes an ingestion run.
type Report struct {
	Feeds    int
	Shows    int
	Episodes int
	Failed   int

	// Added and Updated count index documents by write kind.
	Added   int
	Updated int

	// Degraded is set when the index swallowed write failures during the run.
	Degraded bool

	Failures []FeedFailure
	Duration time.Duration
	Stages   ui.StageTimings
}

// job carries one feed through the stages. Each job is touched by one
// goroutine at a time.
type job struct {
	url     string
	body    []byte
	result  *feed.Result
	website string
	failure *FeedFailure
}

func (j *job) fail(status podcast.FeedStatus, err error) {
	j.failure = &FeedFailure{URL: j.url, Status: status, Err: err}
}

func (j *job) ok() bool {
	return j.failure == nil
}

// write is one index write produced by the store stage.
type write struct {
	doc     document.Document
	created bool
}

// Ingest downloads and ingests urls. Duplicate URLs are ingested once.
// Per-feed failures are recorded in the report and the feed registry; the
// returned error is reserved for cancellation.
func (p *Pipeline) Ingest(ctx context.Context, urls []string) (*Report, error) {
	seen := make(map[string]bool, len(urls))
	jobs := make([]*job, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(feed.Sanitize(u))
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		jobs = append(jobs, &job{url: u})
	}
	return p.run(ctx, jobs)
}

// IngestFile ingests a feed document stored at path. The show's feed URL
// is the file:// URL of the absolute path, so re-ingesting the same file
// updates the same show.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.ValidationError("invalid feed file path", err).WithDetail("path", path)
	}
	body, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeFileNotFound, "failed to read feed file", err).WithDetail("path", abs)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return p.run(ctx, []*job{{url: u.String(), body: body}})
}

func (p *Pipeline) run(ctx context.Context, jobs []*job) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	report := &Report{Feeds: len(jobs)}
	failuresBefore := p.engine.Failures()

	for _, j := range jobs {
		if _, err := p.catalog.RegisterFeed(ctx, j.url); err != nil {
			return nil, err
		}
	}

	stage := time.Now()
	if err := p.fetchAll(ctx, jobs); err != nil {
		return nil, err
	}
	report.Stages.Fetch = time.Since(stage)

	stage = time.Now()
	if err := p.parseAll(ctx, jobs); err != nil {
		return nil, err
	}
	report.Stages.Parse = time.Since(stage)

	stage = time.Now()
	writes, err := p.storeAll(ctx, jobs, report)
	if err != nil {
		return nil, err
	}
	report.Stages.Store = time.Since(stage)

	stage = time.Now()
	p.indexAll(writes, report)
	report.Stages.Index = time.Since(stage)

	for _, j := range jobs {
		if !j.ok() {
			report.Failures = append(report.Failures, *j.failure)
		}
	}
	report.Failed = len(report.Failures)
	report.Degraded = p.engine.Failures() > failuresBefore
	report.Duration = time.Since(start)

	p.renderer.Complete(ui.CompletionStats{
		Feeds:    report.Feeds,
		Shows:    report.Shows,
		Episodes: report.Episodes,
		Failed:   report.Failed,
		Duration: report.Duration,
		Errors:   report.Failed,
		Stages:   report.Stages,
		Degraded: report.Degraded,
	})
	p.logger.Info("ingest_complete",
		slog.Int("feeds", report.Feeds),
		slog.Int("shows", report.Shows),
		slog.Int("episodes", report.Episodes),
		slog.Int("failed", report.Failed),
		slog.Int("added", report.Added),
		slog.Int("updated", report.Updated),
		slog.Bool("degraded", report.Degraded),
		slog.Int64("duration_ms", report.Duration.Milliseconds()))
	return report, nil
}

// forEach runs fn for every job on the worker pool and reports progress
// for stage. fn must only touch its own job.
func (p *Pipeline) forEach(ctx context.Context, stage ui.Stage, jobs []*job, fn func(context.Context, *job)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var done atomic.Int64
	for _, j := range jobs {
		g.Go(func() error {
			if gctx.Err() == nil {
				fn(gctx, j)
			}
			p.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   stage,
				Current: int(done.Add(1)),
				Total:   len(jobs),
				Feed:    j.url,
			})
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (p *Pipeline) fetchAll(ctx context.Context, jobs []*job) error {
	return p.forEach(ctx, ui.StageFetching, jobs, func(ctx context.Context, j *job) {
		if j.body != nil {
			return
		}
		body, err := p.fetcher.Fetch(ctx, j.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			j.fail(statusFor(err), err)
			return
		}
		j.body = body
	})
}

func (p *Pipeline) parseAll(ctx context.Context, jobs []*job) error {
	err := p.forEach(ctx, ui.StageParsing, jobs, func(ctx context.Context, j *job) {
		if !j.ok() {
			return
		}
		result, err := p.normalizer.Normalize(j.body)
		if err != nil {
			j.fail(podcast.FeedParseError, err)
			return
		}
		j.result = result
		j.body = nil

		if p.crawler != nil && result.Show.Link != "" {
			text, err := p.crawler.Text(ctx, result.Show.Link)
			if err != nil {
				p.renderer.AddError(ui.ErrorEvent{Feed: j.url, Err: fmt.Errorf("website: %w", err), IsWarn: true})
				p.logger.Warn("website_crawl_failed", slog.String("feed", j.url), slog.String("error", err.Error()))
				return
			}
			j.website = text
		}
	})
	if err != nil {
		return err
	}

	for _, j := range jobs {
		status := podcast.FeedDownloadSuccess
		if !j.ok() {
			status = j.failure.Status
			p.renderer.AddError(ui.ErrorEvent{Feed: j.url, Err: j.failure.Err})
			p.logger.Warn("feed_failed", append([]any{slog.String("feed", j.url), slog.String("status", string(status))}, errors.LogAttrs(j.failure.Err)...)...)
		}
		if err := p.catalog.SetFeedStatus(ctx, j.url, status); err != nil {
			return err
		}
	}
	return nil
}

// storeAll assigns external IDs and persists every parsed feed. Known
// shows and episodes keep their identifiers.
func (p *Pipeline) storeAll(ctx context.Context, jobs []*job, report *Report) ([]write, error) {
	var writes []write
	for i, j := range jobs {
		if j.ok() {
			w, err := p.store(ctx, j)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				// The feed itself was fine; keep its status and skip it.
				j.failure = &FeedFailure{URL: j.url, Status: podcast.FeedDownloadSuccess, Err: err}
				p.renderer.AddError(ui.ErrorEvent{Feed: j.url, Err: err})
				p.logger.Error("catalog_store_failed", append([]any{slog.String("feed", j.url)}, errors.LogAttrs(err)...)...)
			} else {
				writes = append(writes, w...)
				report.Shows++
				report.Episodes += len(w) - 1
			}
		}
		p.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageStoring, Current: i + 1, Total: len(jobs), Feed: j.url})
	}
	return writes, nil
}

func (p *Pipeline) store(ctx context.Context, j *job) ([]write, error) {
	show := j.result.Show
	show.FeedURL = j.url
	show.WebsiteData = j.website

	known, err := p.catalog.ShowByFeedURL(ctx, j.url)
	if err != nil {
		return nil, err
	}
	if known != nil {
		show.Exo = known.Exo
	} else {
		show.Exo = p.ids.Next()
	}

	created, err := p.catalog.SaveShow(ctx, &show)
	if err != nil {
		return nil, err
	}
	writes := make([]write, 0, len(j.result.Episodes)+1)
	writes = append(writes, write{doc: document.ProjectShow(show), created: created})

	for _, ep := range j.result.Episodes {
		ep.ShowExo = show.Exo
		ep.ShowTitle = show.Title

		prior, err := p.catalog.EpisodeByGUID(ctx, show.Exo, ep.GUID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			ep.Exo = prior.Exo
		} else {
			ep.Exo = p.ids.Next()
		}

		created, err := p.catalog.SaveEpisode(ctx, &ep)
		if err != nil {
			return nil, err
		}
		writes = append(writes, write{doc: document.ProjectEpisode(ep), created: created})
	}
	return writes, nil
}

// indexAll stages every write, then commits and refreshes once so the run
// becomes searchable as a whole.
func (p *Pipeline) indexAll(writes []write, report *Report) {
	for i, w := range writes {
		if w.created {
			p.engine.Add(w.doc)
			report.Added++
		} else {
			p.engine.Update(w.doc)
			report.Updated++
		}
		if (i+1)%100 == 0 || i == len(writes)-1 {
			p.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: i + 1, Total: len(writes)})
		}
	}
	p.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Message: "committing"})
	p.engine.Commit()
	p.engine.Refresh()
}

// statusFor maps a fetch failure to the feed registry status.
func statusFor(err error) podcast.FeedStatus {
	switch {
	case stderrors.Is(err, errors.ErrHTTPForbidden):
		return podcast.FeedHTTP403
	case errors.GetCode(err) == errors.ErrCodeFeedParse:
		return podcast.FeedParseError
	default:
		return podcast.FeedDownloadError
	}
}
