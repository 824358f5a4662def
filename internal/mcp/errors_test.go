package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	herrors "github.com/mpgirro/hemin/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", herrors.SearchError(herrors.ErrCodeInvalidPage, "page must be >= 1"), ErrCodeInvalidParams},
		{"index closed", herrors.New(herrors.ErrCodeIndexClosed, "index is closed", nil), ErrCodeIndexUnavailable},
		{"index locked", herrors.New(herrors.ErrCodeIndexLocked, "index is locked", nil), ErrCodeIndexUnavailable},
		{"duplicate exo", herrors.ConsistencyError("found 2 documents"), ErrCodeConsistency},
		{"network", herrors.NetworkError("request failed", nil), ErrCodeTimeout},
		{"io", herrors.IOError(herrors.ErrCodeIndexRead, "read failed", nil), ErrCodeInternalError},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", fmt.Errorf("search: %w", context.Canceled), ErrCodeTimeout},
		{"plain", errors.New("boom"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestMapError_NilAndPassthrough(t *testing.T) {
	assert.Nil(t, MapError(nil))

	orig := NewInvalidParamsError("bad")
	assert.Same(t, orig, MapError(fmt.Errorf("wrapped: %w", orig)))
}

func TestMapError_AppendsSuggestion(t *testing.T) {
	err := herrors.SearchError(herrors.ErrCodeWindowExceeded, "page*size too large").
		WithSuggestion("Request an earlier page")

	got := MapError(err)

	assert.Equal(t, "page*size too large. Request an earlier page", got.Message)
	assert.Contains(t, got.Error(), "MCP error -32602")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "ab...", clip("abcdef", 2))
	assert.Equal(t, "äö...", clip("äöü", 2))
}
