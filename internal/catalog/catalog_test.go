package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/podcast"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int { return &i }

func sampleShow() *podcast.Show {
	pub := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	return &podcast.Show{
		Exo:              "show1",
		FeedURL:          "https://testcast.example.com/feed.xml",
		Title:            "Test Cast",
		Link:             "https://testcast.example.com/",
		Description:      "A podcast about testing things.",
		PubDate:          &pub,
		Language:         "en-us",
		Image:            "https://testcast.example.com/cover.jpg",
		ItunesAuthor:     "Jane Tester",
		ItunesCategories: []string{"Technology", "Education"},
		ItunesExplicit:   boolPtr(false),
		ItunesOwnerEmail: "jane@testcast.example.com",
		EpisodeCount:     2,
	}
}

func sampleEpisode(exo, guid string, pub time.Time) *podcast.Episode {
	return &podcast.Episode{
		Exo:           exo,
		ShowExo:       "show1",
		ShowTitle:     "Test Cast",
		Title:         "Episode " + exo,
		GUID:          guid,
		GUIDPermalink: true,
		PubDate:       &pub,
		Enclosure: &podcast.Enclosure{
			URL:    "https://testcast.example.com/" + exo + ".mp3",
			Type:   "audio/mpeg",
			Length: 1234,
		},
		ItunesSeason: intPtr(1),
		Chapters: []podcast.Chapter{
			{Start: "00:00:00.000", Title: "Intro"},
			{Start: "00:05:00.000", Title: "Main", Href: "https://example.com/main"},
		},
	}
}

func TestSaveShow_InsertThenUpdate(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	// Given: a new show
	created, err := c.SaveShow(ctx, sampleShow())
	require.NoError(t, err)
	assert.True(t, created)

	// When: saving it again with a changed title
	changed := sampleShow()
	changed.Title = "Test Cast Reloaded"
	created, err = c.SaveShow(ctx, changed)

	// Then: the row is replaced, not duplicated
	require.NoError(t, err)
	assert.False(t, created)

	got, err := c.ShowByExo(ctx, "show1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Test Cast Reloaded", got.Title)
}

func TestShowByExo_RoundTrip(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	want := sampleShow()
	_, err := c.SaveShow(ctx, want)
	require.NoError(t, err)

	got, err := c.ShowByExo(ctx, "show1")
	require.NoError(t, err)

	assert.Equal(t, want.FeedURL, got.FeedURL)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.ItunesCategories, got.ItunesCategories)
	require.NotNil(t, got.ItunesExplicit)
	assert.False(t, *got.ItunesExplicit)
	assert.Nil(t, got.ItunesBlock)
	assert.Nil(t, got.LastBuildDate)
	require.NotNil(t, got.PubDate)
	assert.True(t, want.PubDate.Equal(*got.PubDate))
	assert.Equal(t, 2, got.EpisodeCount)
	assert.Empty(t, got.Generator)
}

func TestShowLookups_Missing(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	s, err := c.ShowByExo(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = c.ShowByFeedURL(ctx, "https://nowhere.example.com/feed")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestShowByFeedURL_ReusesExo(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	_, err := c.SaveShow(ctx, sampleShow())
	require.NoError(t, err)

	got, err := c.ShowByFeedURL(ctx, "https://testcast.example.com/feed.xml")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "show1", got.Exo)
}

func TestSaveShow_RequiresExo(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.SaveShow(context.Background(), &podcast.Show{Title: "anonymous"})

	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeInvalidInput, herrors.GetCode(err))
}

func TestSaveEpisode_RoundTripWithChapters(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	pub := time.Date(2023, 1, 1, 8, 30, 0, 0, time.UTC)

	created, err := c.SaveEpisode(ctx, sampleEpisode("ep1", "guid-1", pub))
	require.NoError(t, err)
	assert.True(t, created)

	got, err := c.EpisodeByExo(ctx, "ep1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "show1", got.ShowExo)
	assert.Equal(t, "guid-1", got.GUID)
	assert.True(t, got.GUIDPermalink)
	require.NotNil(t, got.Enclosure)
	assert.Equal(t, "audio/mpeg", got.Enclosure.Type)
	assert.Equal(t, int64(1234), got.Enclosure.Length)
	require.NotNil(t, got.ItunesSeason)
	assert.Equal(t, 1, *got.ItunesSeason)
	assert.Nil(t, got.ItunesEpisode)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, "Intro", got.Chapters[0].Title)
	assert.Equal(t, "https://example.com/main", got.Chapters[1].Href)
}

func TestSaveEpisode_ReplacesChapters(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	pub := time.Date(2023, 1, 1, 8, 30, 0, 0, time.UTC)
	_, err := c.SaveEpisode(ctx, sampleEpisode("ep1", "guid-1", pub))
	require.NoError(t, err)

	// When: saving with a single chapter
	ep := sampleEpisode("ep1", "guid-1", pub)
	ep.Chapters = []podcast.Chapter{{Start: "0", Title: "Only"}}
	created, err := c.SaveEpisode(ctx, ep)
	require.NoError(t, err)
	assert.False(t, created)

	// Then: old chapters are gone
	got, err := c.EpisodeByExo(ctx, "ep1")
	require.NoError(t, err)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "Only", got.Chapters[0].Title)
}

func TestEpisodeByGUID(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	pub := time.Date(2023, 1, 1, 8, 30, 0, 0, time.UTC)
	_, err := c.SaveEpisode(ctx, sampleEpisode("ep1", "guid-1", pub))
	require.NoError(t, err)

	got, err := c.EpisodeByGUID(ctx, "show1", "guid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ep1", got.Exo)

	other, err := c.EpisodeByGUID(ctx, "show2", "guid-1")
	require.NoError(t, err)
	assert.Nil(t, other)

	empty, err := c.EpisodeByGUID(ctx, "show1", "")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestEpisodesByShow_NewestFirst(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	hours := map[string]int{"old": 0, "new": 48, "mid": 24}
	for exo, h := range hours {
		_, err := c.SaveEpisode(ctx, sampleEpisode(exo, "g-"+exo, base.Add(time.Duration(h)*time.Hour)))
		require.NoError(t, err)
	}

	eps, err := c.EpisodesByShow(ctx, "show1")
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, "new", eps[0].Exo)
	assert.Equal(t, "mid", eps[1].Exo)
	assert.Equal(t, "old", eps[2].Exo)
	for _, ep := range eps {
		assert.Len(t, ep.Chapters, 2)
	}
}

func TestSaveEpisode_RequiresShow(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.SaveEpisode(context.Background(), &podcast.Episode{Exo: "orphan"})

	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeInvalidInput, herrors.GetCode(err))
}

func TestFeeds_RegisterAndStatus(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	// Given: one registered feed
	created, err := c.RegisterFeed(ctx, "https://a.example.com/feed")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.RegisterFeed(ctx, "https://a.example.com/feed")
	require.NoError(t, err)
	assert.False(t, created)

	// When: recording statuses, one for an unregistered URL
	require.NoError(t, c.SetFeedStatus(ctx, "https://a.example.com/feed", podcast.FeedHTTP403))
	require.NoError(t, c.SetFeedStatus(ctx, "https://b.example.com/feed", podcast.FeedDownloadSuccess))

	// Then: both are listed with their status
	feeds, err := c.Feeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	byURL := map[string]Feed{}
	for _, f := range feeds {
		byURL[f.URL] = f
	}
	assert.Equal(t, podcast.FeedHTTP403, byURL["https://a.example.com/feed"].Status)
	assert.NotNil(t, byURL["https://a.example.com/feed"].LastChecked)
	assert.Equal(t, podcast.FeedDownloadSuccess, byURL["https://b.example.com/feed"].Status)
}

func TestSetFeedStatus_RejectsUnknownStatus(t *testing.T) {
	c := newTestCatalog(t)

	err := c.SetFeedStatus(context.Background(), "https://a.example.com/feed", "exploded")

	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeInvalidInput, herrors.GetCode(err))
}

func TestOpen_OnDiskPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "catalog.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	_, err = c.SaveShow(ctx, sampleShow())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ShowByExo(ctx, "show1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Test Cast", got.Title)
}

func TestClose_IsIdempotent(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.ShowByExo(context.Background(), "show1")
	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeCatalog, herrors.GetCode(err))
}
