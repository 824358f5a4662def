package ingest

import (
	"context"
	"log/slog"
	"os"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/feed"
	"github.com/mpgirro/hemin/internal/watcher"
)

// Watcher ingests files dropped into a spool directory: feed documents
// through IngestFile and OPML lists through Ingest.
type Watcher struct {
	pipeline *Pipeline
	opts     watcher.Options
	logger   *slog.Logger

	// onReport, when set, observes each finished run.
	onReport func(path string, r *Report, err error)
}

// NewWatcher creates a Watcher feeding p.
func NewWatcher(p *Pipeline, opts watcher.Options) *Watcher {
	return &Watcher{pipeline: p, opts: opts, logger: p.logger}
}

// OnReport registers fn to observe each finished run. It must be called
// before Run.
func (w *Watcher) OnReport(fn func(path string, r *Report, err error)) {
	w.onReport = fn
}

// Run watches dir until ctx is done. Files present when Run starts are
// ingested first.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := watcher.New(w.opts, w.logger)
	if err != nil {
		return errors.IOError(errors.ErrCodeFileNotFound, "failed to start spool watcher", err)
	}
	defer fw.Stop()

	started := make(chan error, 1)
	go func() { started <- fw.Start(ctx, dir) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-started:
			if err != nil && ctx.Err() == nil {
				return errors.IOError(errors.ErrCodeFileNotFound, "spool watcher stopped", err).WithDetail("dir", dir)
			}
			return nil
		case err := <-fw.Errors():
			w.logger.Warn("spool_watch_error", slog.String("error", err.Error()))
		case batch, ok := <-fw.Events():
			if !ok {
				return nil
			}
			for _, ev := range batch {
				if ctx.Err() != nil {
					return nil
				}
				w.handle(ctx, ev)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev watcher.Event) {
	w.logger.Info("spool_file", slog.String("path", ev.Path), slog.String("kind", ev.Kind.String()))

	var (
		report *Report
		err    error
	)
	switch ev.Kind {
	case watcher.KindFeed:
		report, err = w.pipeline.IngestFile(ctx, ev.Path)
	case watcher.KindList:
		report, err = w.ingestList(ctx, ev.Path)
	default:
		return
	}

	if err != nil {
		w.logger.Error("spool_ingest_failed", append([]any{slog.String("path", ev.Path)}, errors.LogAttrs(err)...)...)
	}
	if w.onReport != nil {
		w.onReport(ev.Path, report, err)
	}
}

func (w *Watcher) ingestList(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeFileNotFound, "failed to open subscription list", err).WithDetail("path", path)
	}
	defer f.Close()

	urls, err := feed.ParseOPML(f)
	if err != nil {
		return nil, err
	}
	return w.pipeline.Ingest(ctx, urls)
}
