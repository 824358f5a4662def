package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpgirro/hemin/internal/catalog"
	"github.com/mpgirro/hemin/internal/document"
	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/index"
	"github.com/mpgirro/hemin/internal/podcast"
	"github.com/mpgirro/hemin/internal/telemetry"
)

type fixture struct {
	srv     *httptest.Server
	engine  *index.Engine
	catalog *catalog.Catalog
	metrics *telemetry.QueryMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := index.Open(index.Config{})
	require.NoError(t, err)
	t.Cleanup(engine.Destroy)

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	metrics := telemetry.NewQueryMetrics(telemetry.Config{})
	srv := httptest.NewServer(NewServer(engine, cat, WithTimeout(5*time.Second), WithMetrics(metrics)))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, engine: engine, catalog: cat, metrics: metrics}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func episodeDoc(exo, title string) *document.EpisodeDocument {
	return &document.EpisodeDocument{
		Base:         document.Base{Exo: exo, Title: document.Str(title)},
		PodcastTitle: document.Str("Api Cast"),
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	f.engine.Add(episodeDoc("ep1", "Hello"))
	f.engine.Commit()

	var body healthResponse
	status := f.get(t, "/healthz", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(1), body.Documents)
}

func TestSearch(t *testing.T) {
	// Given: three committed episodes
	f := newFixture(t)
	for _, exo := range []string{"a", "b", "c"} {
		f.engine.Add(episodeDoc(exo, "Gopher talk "+exo))
	}
	f.engine.Commit()
	f.engine.Refresh()

	// When: searching with a page size of two
	var page struct {
		CurrentPage int               `json:"currentPage"`
		MaxPage     int               `json:"maxPage"`
		TotalHits   int               `json:"totalHits"`
		Results     []json.RawMessage `json:"results"`
	}
	status := f.get(t, "/api/search?q=gopher&p=1&s=2", &page)

	// Then: the first page of two is returned
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 2, page.MaxPage)
	assert.Equal(t, 3, page.TotalHits)
	assert.Len(t, page.Results, 2)
}

func TestSearch_NoHits(t *testing.T) {
	f := newFixture(t)

	var page map[string]any
	status := f.get(t, "/api/search?q=nothing", &page)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), page["totalHits"])
	assert.Equal(t, []any{}, page["results"])
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"empty query", "/api/search?q=", herrors.ErrCodeQueryEmpty},
		{"page zero", "/api/search?q=x&p=0", herrors.ErrCodeInvalidPage},
		{"size zero", "/api/search?q=x&s=0", herrors.ErrCodeInvalidSize},
		{"past window", "/api/search?q=x&p=11&s=100", herrors.ErrCodeWindowExceeded},
		{"non numeric", "/api/search?q=x&p=two", herrors.ErrCodeInvalidInput},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			status := f.get(t, tt.query, &body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestDocument(t *testing.T) {
	f := newFixture(t)
	f.engine.Add(episodeDoc("ep1", "Hello"))
	f.engine.Add(episodeDoc("dup", "One"))
	f.engine.Add(episodeDoc("dup", "Two"))
	f.engine.Commit()

	var doc map[string]any
	assert.Equal(t, http.StatusOK, f.get(t, "/api/documents/ep1", &doc))
	assert.Equal(t, "episode", doc["docType"])
	assert.Equal(t, "Hello", doc["title"])

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/documents/missing", nil))

	var conflict map[string]any
	assert.Equal(t, http.StatusConflict, f.get(t, "/api/documents/dup", &conflict))
	assert.Equal(t, herrors.ErrCodeDuplicateExternalID, conflict["code"])
}

func TestDocument_ClosedIndex(t *testing.T) {
	f := newFixture(t)
	f.engine.Destroy()

	assert.Equal(t, http.StatusServiceUnavailable, f.get(t, "/api/documents/ep1", nil))
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := f.catalog.SaveShow(ctx, &podcast.Show{Exo: "show1", Title: "Api Cast", FeedURL: "https://api.example.com/feed"})
	require.NoError(t, err)
	_, err = f.catalog.SaveEpisode(ctx, &podcast.Episode{Exo: "ep1", ShowExo: "show1", Title: "Pilot", PubDate: &pub})
	require.NoError(t, err)

	var show podcast.Show
	assert.Equal(t, http.StatusOK, f.get(t, "/api/shows/show1", &show))
	assert.Equal(t, "Api Cast", show.Title)

	var episodes []podcast.Episode
	assert.Equal(t, http.StatusOK, f.get(t, "/api/shows/show1/episodes", &episodes))
	require.Len(t, episodes, 1)
	assert.Equal(t, "Pilot", episodes[0].Title)

	var ep podcast.Episode
	assert.Equal(t, http.StatusOK, f.get(t, "/api/episodes/ep1", &ep))
	assert.Equal(t, "show1", ep.ShowExo)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/shows/nope", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/shows/nope/episodes", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/episodes/nope", nil))
}

func TestCatalogRoutes_WithoutCatalog(t *testing.T) {
	engine, err := index.Open(index.Config{})
	require.NoError(t, err)
	defer engine.Destroy()

	rec := httptest.NewRecorder()
	NewServer(engine, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shows/show1", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(herrors.SearchError(herrors.ErrCodeQueryEmpty, "query must not be empty")))
	assert.Equal(t, http.StatusConflict, statusFor(herrors.ConsistencyError("dup")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(herrors.ErrIndexClosed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(herrors.InternalError("boom", nil)))
}

func TestStats_RecordsSearches(t *testing.T) {
	// Given: one hit, one miss and one rejected search
	f := newFixture(t)
	f.engine.Add(episodeDoc("ep1", "Gopher talk"))
	f.engine.Commit()
	f.get(t, "/api/search?q=gopher", nil)
	f.get(t, "/api/search?q=zebra", nil)
	f.get(t, "/api/search?q=gopher&p=0", nil)

	// When: reading the stats
	var snap telemetry.Snapshot
	status := f.get(t, "/api/stats", &snap)

	// Then: every request is counted
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.FailedQueries)
	assert.Equal(t, []string{"zebra"}, snap.RecentZeroHit)
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "gopher", snap.TopTerms[0].Term)
}
