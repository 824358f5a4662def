// Package exo generates external identifiers ("exos") for shows and episodes.
//
// An exo is the only identifier that leaves hemin. It is a short
// alphanumeric token built from a rolling sequence number, the generator's
// shard and the wall clock in milliseconds. Treat it as opaque: it is neither
// sortable nor meant to be decoded by callers.
package exo

import (
	"fmt"
	"sync"
	"time"

	"github.com/speps/go-hashids/v2"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	salt     = "Bit useless for my purpose, but why not"

	// SequenceSize is the width of the rolling sequence counter.
	SequenceSize = 1024
)

// Generator produces exos for one shard. Safe for concurrent use.
type Generator struct {
	shard int
	codec *hashids.HashID
	now   func() time.Time

	mu  sync.Mutex
	seq int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator for the given shard. Shards must be non-negative.
func New(shard int, opts ...Option) (*Generator, error) {
	if shard < 0 {
		return nil, fmt.Errorf("shard must be non-negative, got %d", shard)
	}

	data := hashids.NewData()
	data.Alphabet = alphabet
	data.Salt = salt
	data.MinLength = 0

	codec, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init hashids codec: %w", err)
	}

	g := &Generator{
		shard: shard,
		codec: codec,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Shard returns the shard this generator was created for.
func (g *Generator) Shard() int {
	return g.shard
}

// Next returns a fresh exo.
func (g *Generator) Next() string {
	g.mu.Lock()
	seq := g.seq
	g.seq = (g.seq + 1) % SequenceSize
	g.mu.Unlock()

	id, err := g.codec.EncodeInt64([]int64{int64(seq), int64(g.shard), g.now().UnixMilli()})
	if err != nil {
		// Only negative inputs fail to encode, and New rejects negative shards.
		panic(fmt.Sprintf("exo: encode failed: %v", err))
	}
	return id
}

// decode reverses an exo into its (sequence, shard, millis) parts.
func (g *Generator) decode(id string) ([]int64, error) {
	return g.codec.DecodeInt64WithError(id)
}
