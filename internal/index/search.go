package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/errors"
)

// ResultPage is one page of search results.
type ResultPage struct {
	CurrentPage int                 `json:"currentPage"`
	MaxPage     int                 `json:"maxPage"`
	TotalHits   int                 `json:"totalHits"`
	Results     []document.Document `json:"results"`
}

// emptyPage is returned for queries without hits.
func emptyPage() *ResultPage {
	return &ResultPage{Results: []document.Document{}}
}

// clone deep-copies the page so callers never alias cached documents.
func (p *ResultPage) clone() *ResultPage {
	c := *p
	c.Results = make([]document.Document, len(p.Results))
	for i, d := range p.Results {
		c.Results[i] = document.Clone(d)
	}
	return &c
}

// validateSearch rejects paging parameters and queries before the index
// is touched.
func validateSearch(q string, page, size int) error {
	if strings.TrimSpace(q) == "" {
		return errors.SearchError(errors.ErrCodeQueryEmpty, "query must not be empty")
	}
	if page < 1 {
		return errors.SearchError(errors.ErrCodeInvalidPage, fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if size < 1 {
		return errors.SearchError(errors.ErrCodeInvalidSize, fmt.Sprintf("size must be >= 1, got %d", size))
	}
	if page > MaxResultWindow/size {
		return errors.SearchError(errors.ErrCodeWindowExceeded,
			fmt.Sprintf("page*size must not exceed %d, got %d*%d", MaxResultWindow, page, size)).
			WithSuggestion("Narrow the query or request an earlier page")
	}
	return nil
}

// Search matches q against every search field and returns the requested
// page. Pages start at 1. A storage failure is logged and yields an empty
// page.
func (e *Engine) Search(ctx context.Context, q string, page, size int) (*ResultPage, error) {
	if err := validateSearch(q, page, size); err != nil {
		return nil, err
	}

	e.readMu.Lock()
	defer e.readMu.Unlock()

	key := pageKey{query: q, page: page, size: size}
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached.clone(), nil
		}
	}

	idx, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer e.release()

	req := bleve.NewSearchRequestOptions(matchAll(q), size, (page-1)*size, false)
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.fail("index_search_failed", err, slog.String("query", q))
		return emptyPage(), nil
	}

	total := int(res.Total)
	if total == 0 {
		out := emptyPage()
		e.store(key, out)
		return out.clone(), nil
	}

	results := make([]document.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := fromFields(hit.Fields)
		if err != nil {
			return nil, err
		}
		results = append(results, doc)
	}

	maxPage := (total + size - 1) / size
	if maxPage == 0 && page == 1 {
		maxPage = 1
	}

	out := &ResultPage{
		CurrentPage: page,
		MaxPage:     maxPage,
		TotalHits:   total,
		Results:     results,
	}
	e.store(key, out)
	return out.clone(), nil
}

func (e *Engine) store(key pageKey, page *ResultPage) {
	if e.cache != nil {
		e.cache.Add(key, page)
	}
}

// matchAll builds a disjunction of match queries, one per search field.
func matchAll(q string) query.Query {
	clauses := make([]query.Query, 0, len(document.SearchFields))
	for _, field := range document.SearchFields {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(field)
		clauses = append(clauses, mq)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// FindByExternalID returns the document with the given exo, or nil when
// there is none. More than one match is a consistency error.
func (e *Engine) FindByExternalID(ctx context.Context, exo string) (document.Document, error) {
	if strings.TrimSpace(exo) == "" {
		return nil, errors.ValidationError("exo must not be empty", nil)
	}

	e.readMu.Lock()
	defer e.readMu.Unlock()

	idx, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer e.release()

	req := bleve.NewSearchRequestOptions(exoQuery(exo), 2, 0, false)
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeIndexRead, "failed to look up document", err).
			WithDetail("exo", exo)
	}

	switch {
	case res.Total == 0:
		return nil, nil
	case res.Total > 1:
		return nil, errors.ConsistencyError(
			fmt.Sprintf("found %d documents for exo %s", res.Total, exo)).
			WithDetail("exo", exo)
	}
	return fromFields(res.Hits[0].Fields)
}

func exoQuery(exo string) query.Query {
	tq := bleve.NewTermQuery(exo)
	tq.SetField(document.FieldExo)
	return tq
}

// committedKeys returns the internal keys of committed entries for exo.
func committedKeys(idx bleve.Index, exo string, limit int) ([]string, error) {
	req := bleve.NewSearchRequestOptions(exoQuery(exo), limit, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		keys[i] = hit.ID
	}
	return keys, nil
}
