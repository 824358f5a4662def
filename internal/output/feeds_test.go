package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpgirro/hemin/internal/catalog"
	"github.com/mpgirro/hemin/internal/podcast"
)

func TestFeedTable(t *testing.T) {
	// Given: one healthy, one forbidden and one unchecked feed
	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	feeds := []catalog.Feed{
		{URL: "https://ok.example.com/feed", Status: podcast.FeedDownloadSuccess, LastChecked: &checked},
		{URL: "https://nope.example.com/feed", Status: podcast.FeedHTTP403, LastChecked: &checked},
		{URL: "https://new.example.com/feed", Status: podcast.FeedNeverChecked},
	}

	// When: rendering the table
	out := FeedTable(feeds)

	// Then: every feed and the failure count appear
	assert.Contains(t, out, "https://ok.example.com/feed")
	assert.Contains(t, out, "http_403")
	assert.Contains(t, out, "never_checked")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "3 feeds")
	assert.Contains(t, out, "1 failing")
}
