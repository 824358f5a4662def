package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2024-05-01T10:00:00.000Z","level":"DEBUG","msg":"logging_started"}
{"time":"2024-05-01T10:00:01.000Z","level":"INFO","msg":"ingest_complete","feeds":2,"failed":0}
not json at all
{"time":"2024-05-01T10:00:02.000Z","level":"WARN","msg":"fetch_failed","url":"https://a.example.com/feed"}
{"time":"2024-05-01T10:00:03.000Z","level":"ERROR","msg":"index_commit_failed"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hemin.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseLine(t *testing.T) {
	e := ParseLine(`{"time":"2024-05-01T10:00:01.000Z","level":"INFO","msg":"ingest_complete","feeds":2}`)

	assert.True(t, e.Valid)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "ingest_complete", e.Msg)
	assert.Equal(t, float64(2), e.Attrs["feeds"])
	assert.Equal(t, 2024, e.Time.Year())

	raw := ParseLine("plain text")
	assert.False(t, raw.Valid)
	assert.Equal(t, "plain text", raw.Raw)
}

func TestViewer_TailLastLines(t *testing.T) {
	path := writeLog(t, sampleLog)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 2)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "fetch_failed", entries[0].Msg)
	assert.Equal(t, "index_commit_failed", entries[1].Msg)
}

func TestViewer_Filters(t *testing.T) {
	path := writeLog(t, sampleLog)

	tests := []struct {
		name string
		cfg  ViewerConfig
		want []string
	}{
		{"level warn", ViewerConfig{Level: "warn"}, []string{"fetch_failed", "index_commit_failed"}},
		{"pattern", ViewerConfig{Pattern: regexp.MustCompile(`ingest_`)}, []string{"ingest_complete"}},
		{"level and pattern", ViewerConfig{Level: "error", Pattern: regexp.MustCompile(`fetch`)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewer(tt.cfg, &bytes.Buffer{})
			entries, err := v.Tail(path, 0)
			require.NoError(t, err)

			var got []string
			for _, e := range entries {
				got = append(got, e.Msg)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewer_FormatPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	v := NewViewer(ViewerConfig{NoColor: true}, buf)

	v.Print([]Entry{
		ParseLine(`{"time":"2024-05-01T10:00:01.000Z","level":"INFO","msg":"ingest_complete","failed":0,"feeds":2}`),
		ParseLine("not json"),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "INFO  ingest_complete failed=0 feeds=2"))
	assert.Equal(t, "not json", lines[1])
}

func TestViewer_TailMissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	_, err := v.Tail(filepath.Join(t.TempDir(), "nope.log"), 10)

	require.Error(t, err)
}

func TestViewer_FollowSeesAppendedLines(t *testing.T) {
	// Given: a log with existing content
	path := writeLog(t, sampleLog)
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries := make(chan Entry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// When: a new record is appended
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"time":"2024-05-01T10:00:04.000Z","level":"INFO","msg":"appended"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the new record is delivered
	select {
	case e := <-entries:
		assert.Equal(t, "appended", e.Msg)
	case <-ctx.Done():
		t.Fatal("no entry followed")
	}
	cancel()
	assert.NoError(t, <-done)
}
