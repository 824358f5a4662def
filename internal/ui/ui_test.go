package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_StringAndIcon(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
		icon  string
	}{
		{StageFetching, "Fetching", "FETCH"},
		{StageParsing, "Parsing", "PARSE"},
		{StageStoring, "Storing", "STORE"},
		{StageIndexing, "Indexing", "INDEX"},
		{StageComplete, "Complete", "DONE"},
		{Stage(42), "Unknown", "???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			assert.Equal(t, tt.icon, tt.stage.Icon())
		})
	}
}

func TestNewRenderer_NonTTYIsPlain(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}))
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)

	_, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, DetectCI())
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDiscard_DoesNothing(t *testing.T) {
	require.NoError(t, Discard.Start(context.Background()))
	Discard.UpdateProgress(ProgressEvent{Stage: StageFetching})
	Discard.AddError(ErrorEvent{Err: errors.New("x")})
	Discard.Complete(CompletionStats{})
	assert.NoError(t, Discard.Stop())
}

func TestPlainRenderer_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageFetching, Current: 2, Total: 5, Feed: "https://a.example.com/feed"})
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Message: "committing"})
	r.UpdateProgress(ProgressEvent{Stage: StageParsing})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[FETCH] 2/5 https://a.example.com/feed", lines[0])
	assert.Equal(t, "[INDEX] committing", lines[1])
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_Errors(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{Feed: "https://a.example.com/feed", Err: errors.New("access forbidden")})
	r.AddError(ErrorEvent{Err: errors.New("website unreachable"), IsWarn: true})

	assert.Contains(t, buf.String(), "ERROR: https://a.example.com/feed: access forbidden\n")
	assert.Contains(t, buf.String(), "WARN: website unreachable\n")
}

func TestPlainRenderer_Complete(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Feeds:    3,
		Shows:    2,
		Episodes: 40,
		Failed:   1,
		Duration: 1500 * time.Millisecond,
		Stages:   StageTimings{Fetch: time.Second},
		Degraded: true,
	})

	out := buf.String()
	assert.Contains(t, out, "Complete: 3 feeds, 2 shows, 40 episodes in 1.5s (1 feeds failed)")
	assert.Contains(t, out, "Fetch: 1s")
	assert.Contains(t, out, "index rejected writes")
}

func TestIngestModel_ViewFollowsTracker(t *testing.T) {
	// Given: a model mid-way through fetching
	tr := &tracker{}
	m := newIngestModel(tr, "subscriptions.opml")
	m.styles = NoColorStyles()
	tr.update(ProgressEvent{Stage: StageParsing, Current: 1, Total: 4, Feed: "https://a.example.com/feed"})
	tr.addError(ErrorEvent{Err: errors.New("boom")})

	// When: rendering
	view := m.View()

	// Then: header, counts, feed and failures are shown
	assert.Contains(t, view, "hemin ingest • subscriptions.opml")
	assert.Contains(t, view, "● Fetching")
	assert.Contains(t, view, "○ Storing")
	assert.Contains(t, view, "1 / 4")
	assert.Contains(t, view, "https://a.example.com/feed")
	assert.Contains(t, view, "✗ 1 failed")
	assert.Contains(t, view, "boom")
}

func TestIngestModel_CompleteQuits(t *testing.T) {
	m := newIngestModel(&tracker{}, "")
	m.styles = NoColorStyles()

	_, cmd := m.Update(completeMsg(CompletionStats{Feeds: 1, Shows: 1, Episodes: 3}))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Ingest complete")
	assert.Contains(t, m.View(), "Episodes: 3")
}

func TestIngestModel_QuitKey(t *testing.T) {
	m := newIngestModel(&tracker{}, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 30m", formatDuration(90*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...feed.xml", truncate("https://example.com/feed.xml", 11))
}
