// Package ui renders ingestion progress to the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a step of an ingestion run.
type Stage int

const (
	// StageFetching downloads feed documents.
	StageFetching Stage = iota
	// StageParsing normalizes feeds into shows and episodes.
	StageParsing
	// StageStoring assigns identifiers and writes the catalog.
	StageStoring
	// StageIndexing writes documents to the search index.
	StageIndexing
	// StageComplete indicates the run finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "Fetching"
	case StageParsing:
		return "Parsing"
	case StageStoring:
		return "Storing"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageFetching:
		return "FETCH"
	case StageParsing:
		return "PARSE"
	case StageStoring:
		return "STORE"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports progress within a stage.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
	Feed    string
	Message string
}

// ErrorEvent reports a failed or degraded feed.
type ErrorEvent struct {
	Feed   string
	Err    error
	IsWarn bool
}

// StageTimings holds the wall time of each stage.
type StageTimings struct {
	Fetch time.Duration
	Parse time.Duration
	Store time.Duration
	Index time.Duration
}

// CompletionStats summarizes a finished run.
type CompletionStats struct {
	Feeds    int
	Shows    int
	Episodes int
	Failed   int
	Duration time.Duration
	Errors   int
	Warnings int
	Stages   StageTimings

	// Degraded is set when the index rejected writes during the run.
	Degraded bool
}

// Renderer displays ingestion progress.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool

	// Source is shown in the TUI header, e.g. the OPML file being ingested.
	Source string
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithSource sets the header label.
func WithSource(source string) ConfigOption {
	return func(c *Config) {
		c.Source = source
	}
}

// NewConfig creates a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Discard is a Renderer that shows nothing.
var Discard Renderer = discard{}

type discard struct{}

func (discard) Start(context.Context) error { return nil }
func (discard) UpdateProgress(ProgressEvent) {}
func (discard) AddError(ErrorEvent) {}
func (discard) Complete(CompletionStats) {}
func (discard) Stop() error { return nil }

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether the process runs in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
