package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpgirro/hemin/internal/document"
	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/exo"
	"github.com/mpgirro/hemin/internal/feed"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e
}

func episode(exoID, title string) *document.EpisodeDocument {
	return &document.EpisodeDocument{
		Base: document.Base{
			Exo:   exoID,
			Title: document.Str(title),
			Link:  document.Str("https://example.com/" + exoID),
		},
		PodcastTitle: document.Str("Unit Cast"),
	}
}

func show(exoID, title string) *document.ShowDocument {
	return &document.ShowDocument{
		Base: document.Base{
			Exo:   exoID,
			Title: document.Str(title),
		},
	}
}

// commitAll commits and refreshes so the next search sees every write.
func commitAll(e *Engine) {
	e.Commit()
	e.Refresh()
}

func TestSearch_RejectsInvalidParameters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		page  int
		size  int
		want  error
	}{
		{"page zero", "alpha", 0, 1, herrors.ErrInvalidPage},
		{"negative page", "alpha", -3, 1, herrors.ErrInvalidPage},
		{"size zero", "alpha", 1, 0, herrors.ErrInvalidSize},
		{"negative size", "alpha", 1, -1, herrors.ErrInvalidSize},
		{"empty query", "", 1, 1, herrors.ErrQueryEmpty},
		{"blank query", "  \t", 1, 1, herrors.ErrQueryEmpty},
		{"window exceeded", "alpha", 11, 100, herrors.ErrWindowExceeded},
		{"window exceeded by one", "alpha", 1, 1001, herrors.ErrWindowExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := e.Search(ctx, tt.query, tt.page, tt.size)

			require.Error(t, err)
			assert.Nil(t, page)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, herrors.CategoryValidation, herrors.GetCategory(err))
		})
	}
}

func TestSearch_WindowCeilingIsInclusive(t *testing.T) {
	// Given: an empty index
	e := newTestEngine(t)

	// When: requesting exactly page*size == 1000
	page, err := e.Search(context.Background(), "alpha", 10, 100)

	// Then: the request is accepted
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalHits)
}

func TestSearch_NoHits_ReturnsEmptyPage(t *testing.T) {
	// Given: an index with unrelated documents
	e := newTestEngine(t)
	e.Add(episode("a1", "alpha"))
	commitAll(e)

	// When: searching for a term that matches nothing
	page, err := e.Search(context.Background(), "nonexistent-term", 1, 1)

	// Then: the empty page convention applies
	require.NoError(t, err)
	assert.Equal(t, 0, page.CurrentPage)
	assert.Equal(t, 0, page.MaxPage)
	assert.Equal(t, 0, page.TotalHits)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}

func TestSearch_PaginationLength(t *testing.T) {
	// Given: 25 matching episodes
	e := newTestEngine(t)
	const total = 25
	for i := 0; i < total; i++ {
		e.Add(episode(fmt.Sprintf("ep%02d", i), fmt.Sprintf("alpha episode %d", i)))
	}
	commitAll(e)

	sizes := []int{1, 3, 7, 10, 25, 40}
	for _, size := range sizes {
		for page := 1; page*size <= MaxResultWindow && page <= 30; page++ {
			t.Run(fmt.Sprintf("p%d_s%d", page, size), func(t *testing.T) {
				// When: requesting the page
				res, err := e.Search(context.Background(), "alpha", page, size)
				require.NoError(t, err)

				// Then: length follows the window arithmetic
				want := min(page*size, total) - (page-1)*size
				if want < 0 {
					want = 0
				}
				assert.Len(t, res.Results, want)
				assert.Equal(t, total, res.TotalHits)
				assert.Equal(t, page, res.CurrentPage)
				assert.Equal(t, (total+size-1)/size, res.MaxPage)
			})
		}
	}
}

func TestSearch_PagesDoNotOverlap(t *testing.T) {
	// Given: 12 matching documents
	e := newTestEngine(t)
	for i := 0; i < 12; i++ {
		e.Add(episode(fmt.Sprintf("ep%02d", i), "beta"))
	}
	commitAll(e)

	// When: walking all pages of size 5
	seen := map[string]bool{}
	for p := 1; p <= 3; p++ {
		res, err := e.Search(context.Background(), "beta", p, 5)
		require.NoError(t, err)
		for _, d := range res.Results {
			exoID := d.Common().Exo
			assert.False(t, seen[exoID], "duplicate %s on page %d", exoID, p)
			seen[exoID] = true
		}
	}

	// Then: every document shows up exactly once
	assert.Len(t, seen, 12)
}

func TestSearch_MatchesAcrossFields(t *testing.T) {
	e := newTestEngine(t)

	withSummary := show("s1", "Plain Title")
	withSummary.ItunesSummary = document.Str("conversations about gardening")

	withChapters := episode("e1", "Another Title")
	withChapters.ChapterMarks = document.Str("Intro\nCompost basics")

	withContent := episode("e2", "Third Title")
	withContent.ContentEncoded = document.Str("<p>mulch and compost</p>")

	withWebsite := show("s2", "Fourth Title")
	withWebsite.WebsiteData = document.Str("seasonal gardening guide")

	for _, d := range []document.Document{withSummary, withChapters, withContent, withWebsite} {
		e.Add(d)
	}
	commitAll(e)

	tests := []struct {
		query string
		want  []string
	}{
		{"gardening", []string{"s1", "s2"}},
		{"compost", []string{"e1", "e2"}},
		{"unit cast", []string{"e1", "e2"}},
		{"example.com", []string{"e1", "e2"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := e.Search(context.Background(), tt.query, 1, 10)
			require.NoError(t, err)

			var got []string
			for _, d := range res.Results {
				got = append(got, d.Common().Exo)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestFindByExternalID(t *testing.T) {
	// Given: one unique document and one exo added twice
	e := newTestEngine(t)
	e.Add(episode("unique", "Only Once"))
	e.Add(episode("twice", "First Copy"))
	e.Add(episode("twice", "Second Copy"))
	commitAll(e)
	ctx := context.Background()

	t.Run("present once", func(t *testing.T) {
		doc, err := e.FindByExternalID(ctx, "unique")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, document.KindEpisode, doc.Kind())
		assert.Equal(t, "Only Once", document.Deref(doc.Common().Title))
	})

	t.Run("absent", func(t *testing.T) {
		doc, err := e.FindByExternalID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("present twice", func(t *testing.T) {
		doc, err := e.FindByExternalID(ctx, "twice")
		require.Error(t, err)
		assert.Nil(t, doc)
		assert.True(t, errors.Is(err, herrors.ErrDuplicateExo))
	})

	t.Run("empty exo", func(t *testing.T) {
		_, err := e.FindByExternalID(ctx, " ")
		require.Error(t, err)
		assert.Equal(t, herrors.ErrCodeInvalidInput, herrors.GetCode(err))
	})
}

func TestFindByExternalID_RoundTripsStoredFields(t *testing.T) {
	// Given: an episode with every optional field set
	e := newTestEngine(t)
	pub := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	ep := &document.EpisodeDocument{
		Base: document.Base{
			Exo:         "full",
			Title:       document.Str("Full Episode"),
			Link:        document.Str("https://example.com/full"),
			Description: document.Str("Everything set"),
			PubDate:     &pub,
			Image:       document.Str("https://example.com/full.jpg"),
		},
		PodcastTitle:   document.Str("Unit Cast"),
		ItunesAuthor:   document.Str("Jane"),
		ItunesSummary:  document.Str("Summary"),
		ItunesDuration: document.Str("01:02:03"),
		ChapterMarks:   document.Str("Intro\nOutro"),
		ContentEncoded: document.Str("<p>body</p>"),
		Transcript:     document.Str("hello world"),
	}
	e.Add(ep)
	commitAll(e)

	// When: looking it up
	doc, err := e.FindByExternalID(context.Background(), "full")
	require.NoError(t, err)

	// Then: stored fields survive and unstored bodies stay in the index
	got, ok := doc.(*document.EpisodeDocument)
	require.True(t, ok)
	assert.Equal(t, "Full Episode", document.Deref(got.Title))
	assert.Equal(t, "https://example.com/full", document.Deref(got.Link))
	assert.Equal(t, "Everything set", document.Deref(got.Description))
	assert.Equal(t, "https://example.com/full.jpg", document.Deref(got.Image))
	assert.Equal(t, "Unit Cast", document.Deref(got.PodcastTitle))
	assert.Equal(t, "Jane", document.Deref(got.ItunesAuthor))
	assert.Equal(t, "Summary", document.Deref(got.ItunesSummary))
	assert.Equal(t, "01:02:03", document.Deref(got.ItunesDuration))
	assert.Equal(t, "Intro\nOutro", document.Deref(got.ChapterMarks))
	require.NotNil(t, got.PubDate)
	assert.True(t, pub.Equal(*got.PubDate))
	assert.Nil(t, got.ContentEncoded)
	assert.Nil(t, got.Transcript)
}

func TestFindByExternalID_ShowKeepsAbsentFieldsNil(t *testing.T) {
	e := newTestEngine(t)
	e.Add(show("s1", "Bare Show"))
	commitAll(e)

	doc, err := e.FindByExternalID(context.Background(), "s1")
	require.NoError(t, err)

	got, ok := doc.(*document.ShowDocument)
	require.True(t, ok)
	assert.Equal(t, "Bare Show", document.Deref(got.Title))
	assert.Nil(t, got.Link)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.PubDate)
	assert.Nil(t, got.ItunesAuthor)
}

func TestUpdate_ReplacesCommittedEntry(t *testing.T) {
	// Given: a committed document
	e := newTestEngine(t)
	e.Add(episode("e1", "old title"))
	commitAll(e)

	// When: updating it
	e.Update(episode("e1", "new title"))
	commitAll(e)

	// Then: exactly one entry remains, with the new content
	doc, err := e.FindByExternalID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "new title", document.Deref(doc.Common().Title))
	assert.Equal(t, uint64(1), e.DocCount())

	res, err := e.Search(context.Background(), "old", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
}

func TestUpdate_WithoutMatchInserts(t *testing.T) {
	e := newTestEngine(t)

	e.Update(episode("fresh", "brand new"))
	commitAll(e)

	doc, err := e.FindByExternalID(context.Background(), "fresh")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, uint64(1), e.DocCount())
}

func TestUpdate_SupersedesPendingWrites(t *testing.T) {
	// Given: an uncommitted add
	e := newTestEngine(t)
	e.Add(episode("e1", "draft"))

	// When: updating the same exo before commit
	e.Update(episode("e1", "final"))
	assert.Equal(t, 1, e.Pending())
	commitAll(e)

	// Then: only the final version is stored
	doc, err := e.FindByExternalID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "final", document.Deref(doc.Common().Title))
}

func TestAdd_WithoutExoIsRejected(t *testing.T) {
	// Given: an engine logging to a buffer
	var buf bytes.Buffer
	e, err := Open(Config{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	require.NoError(t, err)
	defer e.Destroy()

	// When: adding a document without exo
	e.Add(episode("", "nameless"))

	// Then: nothing is buffered and the failure is logged
	assert.Zero(t, e.Pending())
	assert.Equal(t, int64(1), e.Failures())
	assert.Contains(t, buf.String(), "index_write_rejected")
}

func TestRefresh_ControlsVisibility(t *testing.T) {
	// Given: a searched, cached query
	e := newTestEngine(t)
	e.Add(episode("e1", "gamma one"))
	commitAll(e)

	res, err := e.Search(context.Background(), "gamma", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalHits)

	// When: committing another match without refreshing
	e.Add(episode("e2", "gamma two"))
	e.Commit()

	// Then: the old generation is still served
	stale, err := e.Search(context.Background(), "gamma", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.TotalHits)

	// When: refreshing
	e.Refresh()

	// Then: the new document is visible
	fresh, err := e.Search(context.Background(), "gamma", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalHits)
}

func TestSearch_ResultsAreCallerOwned(t *testing.T) {
	e := newTestEngine(t)
	e.Add(episode("e1", "delta"))
	commitAll(e)

	first, err := e.Search(context.Background(), "delta", 1, 10)
	require.NoError(t, err)
	first.Results[0].Common().Title = document.Str("MUTATED")
	*first.Results[0].Common().Link = "https://mutated.example.com/"
	first.Results[0] = nil

	second, err := e.Search(context.Background(), "delta", 1, 10)
	require.NoError(t, err)
	require.NotNil(t, second.Results[0])
	assert.Equal(t, "delta", *second.Results[0].Common().Title)
	assert.Equal(t, "https://example.com/e1", *second.Results[0].Common().Link)
}

func TestDestroy_IsIdempotentAndFinal(t *testing.T) {
	// Given: an open engine
	e, err := Open(Config{})
	require.NoError(t, err)
	e.Add(episode("e1", "epsilon"))
	commitAll(e)

	// When: destroying twice
	e.Destroy()
	e.Destroy()

	// Then: reads fail with index closed
	_, err = e.Search(context.Background(), "epsilon", 1, 1)
	assert.True(t, errors.Is(err, herrors.ErrIndexClosed))

	_, err = e.FindByExternalID(context.Background(), "e1")
	assert.True(t, errors.Is(err, herrors.ErrIndexClosed))

	// And: writes are swallowed but counted
	before := e.Failures()
	e.Add(episode("e2", "zeta"))
	e.Commit()
	e.Refresh()
	assert.Equal(t, before+2, e.Failures())
	assert.Zero(t, e.DocCount())
}

func TestEngine_ConcurrentWritersAndReaders(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				e.Add(episode(fmt.Sprintf("w%d-%d", w, i), "omega"))
				if i%5 == 4 {
					e.Commit()
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, err := e.Search(ctx, "omega", 1, 10)
				assert.NoError(t, err)
				e.Refresh()
			}
		}()
	}
	wg.Wait()

	commitAll(e)
	res, err := e.Search(ctx, "omega", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 80, res.TotalHits)
	assert.Zero(t, e.Failures())
}

func TestOpen_OnDiskPersistsAcrossReopen(t *testing.T) {
	// Given: an on-disk index with one committed document
	path := filepath.Join(t.TempDir(), "index")
	e, err := Open(Config{Path: path})
	require.NoError(t, err)
	e.Add(show("s1", "Persistent Show"))
	e.Commit()
	e.Destroy()

	// When: reopening it
	reopened, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer reopened.Destroy()

	// Then: the document is still there
	doc, err := reopened.FindByExternalID(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, document.KindShow, doc.Kind())
}

func TestOpen_SecondWriterIsLockedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	first, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer first.Destroy()

	_, err = Open(Config{Path: path})

	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeIndexLocked, herrors.GetCode(err))
}

func TestOpen_ClearsCorruptIndex(t *testing.T) {
	// Given: an index directory with unreadable metadata
	path := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "index_meta.json"), []byte("{trunc"), 0o644))

	// When: opening it
	e, err := Open(Config{Path: path})

	// Then: a fresh empty index is created
	require.NoError(t, err)
	defer e.Destroy()
	assert.Zero(t, e.DocCount())
}

func TestFromFields_MissingDocTypeIsFatal(t *testing.T) {
	_, err := fromFields(map[string]any{document.FieldExo: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, herrors.ErrMissingDocType))
	assert.True(t, herrors.IsFatal(err))
}

func TestFromFields_DecodesEachKind(t *testing.T) {
	tests := []struct {
		docType string
		want    document.Kind
		wantErr bool
	}{
		{"show", document.KindShow, false},
		{"episode", document.KindEpisode, false},
		{"trailer", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.docType, func(t *testing.T) {
			doc, err := fromFields(map[string]any{
				document.FieldDocType: tt.docType,
				document.FieldExo:     "x",
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Kind())
			assert.Equal(t, "x", doc.Common().Exo)
		})
	}
}

func TestEndToEnd_TestCast(t *testing.T) {
	// Given: the Test Cast feed normalized and assigned exos
	data, err := os.ReadFile(filepath.Join("..", "feed", "testdata", "testcast.xml"))
	require.NoError(t, err)

	res, err := feed.NewNormalizer().Normalize(data)
	require.NoError(t, err)
	require.Equal(t, "Test Cast", res.Show.Title)
	require.Len(t, res.Episodes, 2)

	gen, err := exo.New(1)
	require.NoError(t, err)
	res.Show.Exo = gen.Next()

	// When: projecting, adding, committing and refreshing
	e := newTestEngine(t)
	e.Add(document.ProjectShow(res.Show))
	for _, ep := range res.Episodes {
		ep.Exo = gen.Next()
		ep.ShowExo = res.Show.Exo
		e.Add(document.ProjectEpisode(ep))
	}
	commitAll(e)

	// Then: searching for the title finds the show document
	page, err := e.Search(context.Background(), "Test Cast", 1, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.TotalHits, 1)

	var found bool
	for _, d := range page.Results {
		if d.Kind() == document.KindShow && document.Deref(d.Common().Title) == "Test Cast" {
			found = true
			assert.Equal(t, res.Show.Exo, d.Common().Exo)
		}
	}
	assert.True(t, found, "show document not in results")
}
