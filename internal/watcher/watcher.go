package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a spool file by its extension.
type Kind int

const (
	// KindUnknown files are ignored.
	KindUnknown Kind = iota
	// KindFeed is a single RSS or Atom document (.xml, .rss, .atom).
	KindFeed
	// KindList is an OPML subscription list (.opml).
	KindList
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFeed:
		return "FEED"
	case KindList:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// Classify returns the kind of the file at path. Hidden and temporary
// files are KindUnknown so that editors and partial downloads are skipped.
func Classify(path string) Kind {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return KindUnknown
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xml", ".rss", ".atom":
		return KindFeed
	case ".opml":
		return KindList
	default:
		return KindUnknown
	}
}

// Event reports a spool file that is ready to be ingested.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	Kind      Kind
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	// Debounce is the quiet period before a file is reported.
	// Default: 500ms
	Debounce time.Duration

	// BufferSize is the capacity of the batch channel.
	// Default: 64
	BufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:   500 * time.Millisecond,
		BufferSize: 64,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaults.BufferSize
	}
	return o
}
