// Package index is the full-text index over show and episode documents.
//
// The Engine has a write side (Add, Update, Commit) and a read side
// (Search, FindByExternalID, Refresh). Writes are buffered until Commit.
// Reads see a generation of the index that only advances on Refresh, so a
// search issued between Commit and Refresh may still return the old view.
//
// I/O failures on the write side, Refresh and Destroy are logged and
// swallowed. Failures reports how many were swallowed so callers can notice
// a degraded run.
package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/logging"
)

const (
	// MaxResultWindow caps page*size for a single search.
	MaxResultWindow = 1000

	// DefaultCacheSize is the number of result pages cached per generation.
	DefaultCacheSize = 256

	// maxDuplicates bounds how many stale entries one Update removes.
	maxDuplicates = 64
)

// Config configures an Engine.
type Config struct {
	// Path is the index directory. Empty means an in-memory index.
	Path string

	// CacheSize is the number of result pages cached between refreshes.
	// Zero uses DefaultCacheSize, a negative value disables caching.
	CacheSize int

	// Logger receives I/O failure diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// pendingWrite is one buffered Add or Update.
type pendingWrite struct {
	key     string
	exo     string
	rec     record
	replace bool
}

// pageKey identifies a cached result page.
type pageKey struct {
	query string
	page  int
	size  int
}

// Engine owns one bleve index. It is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	path   string
	lock   *dirLock

	// state guards idx and closed; leases tracks in-flight snapshots.
	state  sync.RWMutex
	idx    bleve.Index
	closed bool
	leases sync.WaitGroup

	writeMu sync.Mutex
	pending []pendingWrite

	// readMu serializes Search, FindByExternalID and Refresh.
	readMu     sync.Mutex
	cache      *lru.Cache[pageKey, *ResultPage]
	generation uint64

	failures atomic.Int64
}

// Open opens or creates the index described by cfg.
func Open(cfg Config) (*Engine, error) {
	e := &Engine{
		logger: logging.OrDefault(cfg.Logger),
		path:   cfg.Path,
	}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[pageKey, *ResultPage](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		e.cache = cache
	}

	if cfg.Path == "" {
		idx, err := bleve.NewMemOnly(createIndexMapping())
		if err != nil {
			return nil, errors.IOError(errors.ErrCodeIndexWrite, "failed to create in-memory index", err)
		}
		e.idx = idx
		return e, nil
	}

	e.lock = newDirLock(cfg.Path)
	if err := e.lock.acquire(); err != nil {
		return nil, err
	}

	idx, err := e.openOnDisk(cfg.Path)
	if err != nil {
		_ = e.lock.release()
		return nil, err
	}
	e.idx = idx
	return e, nil
}

// openOnDisk opens the index at path, creating it when missing and
// clearing it when its metadata is corrupt.
func (e *Engine) openOnDisk(path string) (bleve.Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.IOError(errors.ErrCodeIndexWrite, "failed to create index directory", err)
	}

	if err := checkIntegrity(path); err != nil {
		e.logger.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, errors.IOError(errors.ErrCodeCorruptIndex, "index is corrupt and cannot be removed", rmErr).
				WithDetail("path", path)
		}
		e.logger.Info("index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, re-ingest feeds"))
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, createIndexMapping())
	}
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeIndexRead, "failed to open index", err).
			WithDetail("path", path)
	}
	return idx, nil
}

// checkIntegrity reports an error when an existing index directory lacks
// readable metadata. A missing directory is fine.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// Add buffers doc as a new entry. Adding the same exo twice without an
// Update in between leaves two entries for it.
func (e *Engine) Add(doc document.Document) {
	e.enqueue(doc, false)
}

// Update buffers doc as the replacement for every entry with its exo.
// Without a matching entry it behaves like Add.
func (e *Engine) Update(doc document.Document) {
	e.enqueue(doc, true)
}

func (e *Engine) enqueue(doc document.Document, replace bool) {
	if doc == nil {
		return
	}
	exo := doc.Common().Exo
	if strings.TrimSpace(exo) == "" {
		e.fail("index_write_rejected", fmt.Errorf("document without exo"),
			slog.String("doc_type", string(doc.Kind())))
		return
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if replace {
		kept := e.pending[:0]
		for _, w := range e.pending {
			if w.exo != exo {
				kept = append(kept, w)
			}
		}
		e.pending = kept
	}

	e.pending = append(e.pending, pendingWrite{
		key:     uuid.NewString(),
		exo:     exo,
		rec:     toRecord(doc),
		replace: replace,
	})
}

// Pending returns the number of buffered writes.
func (e *Engine) Pending() int {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return len(e.pending)
}

// Commit writes all buffered entries in one batch. Entries replaced by an
// Update are deleted in the same batch.
func (e *Engine) Commit() {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if len(e.pending) == 0 {
		return
	}
	writes := e.pending
	e.pending = nil

	idx, err := e.acquire()
	if err != nil {
		e.fail("index_commit_failed", err, slog.Int("dropped", len(writes)))
		return
	}
	defer e.release()

	batch := idx.NewBatch()
	for _, w := range writes {
		if w.replace {
			keys, err := committedKeys(idx, w.exo, maxDuplicates)
			if err != nil {
				e.fail("index_update_lookup_failed", err, slog.String("exo", w.exo))
				continue
			}
			for _, k := range keys {
				batch.Delete(k)
			}
		}
		if err := batch.Index(w.key, w.rec); err != nil {
			e.fail("index_write_failed", err, slog.String("exo", w.exo))
		}
	}

	if err := idx.Batch(batch); err != nil {
		e.fail("index_commit_failed", err, slog.Int("dropped", len(writes)))
		return
	}

	e.logger.Debug("index_committed", slog.Int("documents", len(writes)))
}

// Refresh advances the read generation so searches observe everything
// committed so far.
func (e *Engine) Refresh() {
	e.readMu.Lock()
	defer e.readMu.Unlock()

	e.state.RLock()
	closed := e.closed
	e.state.RUnlock()
	if closed {
		e.fail("index_refresh_failed", errors.New(errors.ErrCodeIndexClosed, "index is closed", nil))
		return
	}

	e.generation++
	if e.cache != nil {
		e.cache.Purge()
	}
	e.logger.Debug("index_refreshed", slog.Uint64("generation", e.generation))
}

// DocCount returns the number of committed entries, or 0 on failure.
func (e *Engine) DocCount() uint64 {
	idx, err := e.acquire()
	if err != nil {
		return 0
	}
	defer e.release()

	n, err := idx.DocCount()
	if err != nil {
		e.logger.Warn("index_doc_count_failed", slog.String("error", err.Error()))
		return 0
	}
	return n
}

// Failures returns how many I/O failures were logged and swallowed.
func (e *Engine) Failures() int64 {
	return e.failures.Load()
}

// Destroy waits for in-flight reads, closes the index and releases the
// directory lock. Buffered writes are discarded. Calling it again is a
// no-op.
func (e *Engine) Destroy() {
	e.state.Lock()
	if e.closed {
		e.state.Unlock()
		return
	}
	e.closed = true
	e.state.Unlock()

	e.leases.Wait()

	e.writeMu.Lock()
	if n := len(e.pending); n > 0 {
		e.logger.Warn("index_pending_discarded", slog.Int("writes", n))
	}
	e.pending = nil
	e.writeMu.Unlock()

	if err := e.idx.Close(); err != nil {
		e.fail("index_close_failed", err)
	}
	if e.lock != nil {
		if err := e.lock.release(); err != nil {
			e.fail("index_unlock_failed", err)
		}
	}
	if e.cache != nil {
		e.cache.Purge()
	}
}

// acquire leases the open index. Every successful acquire must be paired
// with release; Destroy waits until all leases are returned.
func (e *Engine) acquire() (bleve.Index, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	if e.closed {
		return nil, errors.New(errors.ErrCodeIndexClosed, "index is closed", nil)
	}
	e.leases.Add(1)
	return e.idx, nil
}

func (e *Engine) release() {
	e.leases.Done()
}

// fail logs a swallowed failure and counts it.
func (e *Engine) fail(msg string, err error, attrs ...any) {
	e.failures.Add(1)
	args := append([]any{slog.String("path", e.path)}, attrs...)
	args = append(args, errors.LogAttrs(err)...)
	e.logger.Error(msg, args...)
}
