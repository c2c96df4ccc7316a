package videos

import (
	"context"
	"strings"

	"github.com/sawaflix/backend/internal/logging"
	"github.com/sawaflix/backend/internal/upstream"
)

// Options fixes the search parameters that do not come from the caller.
type Options struct {
	RegionCode        string
	RelevanceLanguage string
	DefaultQuery      string
	PageSize          int64
}

// Aggregator builds feed pages in two phases: an id-only search followed by a
// details lookup for exactly those ids.
type Aggregator struct {
	search Searcher
	enrich Enricher
	opts   Options
}

func NewAggregator(search Searcher, enrich Enricher, opts Options) *Aggregator {
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	return &Aggregator{search: search, enrich: enrich, opts: opts}
}

// Fetch returns one page of videos for query, continuing from pageToken when
// it is set. A blank query falls back to the configured default. Any upstream
// failure aborts the whole fetch with an *upstream.Error.
func (a *Aggregator) Fetch(ctx context.Context, query, pageToken string) (Page, error) {
	if a == nil || a.search == nil || a.enrich == nil {
		return Page{}, ErrProviderUnavailable
	}

	query = strings.TrimSpace(query)
	if query == "" {
		query = a.opts.DefaultQuery
	}

	ctx, span := logging.StartSpan(ctx, "videos.fetch", "query", query, "has_page_token", pageToken != "")
	defer span.End()

	found, err := a.search.Search(ctx, SearchParams{
		Query:             query,
		PageToken:         pageToken,
		RegionCode:        a.opts.RegionCode,
		RelevanceLanguage: a.opts.RelevanceLanguage,
		MaxResults:        a.opts.PageSize,
	})
	if err != nil {
		err = asUpstream("search", err)
		span.Fail(err)
		return Page{}, err
	}

	if len(found.IDs) == 0 {
		return Page{Items: []Video{}}, nil
	}

	enriched, err := a.enrich.Enrich(ctx, found.IDs)
	if err != nil {
		err = asUpstream("videos", err)
		span.Fail(err)
		return Page{}, err
	}

	items := make([]Video, 0, len(enriched))
	for _, v := range enriched {
		if v.ID == "" {
			continue
		}
		items = append(items, v)
	}

	page := Page{Items: items}
	if found.NextPageToken != "" {
		token := found.NextPageToken
		page.NextPageToken = &token
	}

	logging.FromContext(ctx).Debug("feed page assembled", "ids", len(found.IDs), "items", len(items))
	return page, nil
}

func asUpstream(op string, err error) error {
	if _, ok := upstream.As(err); ok {
		return err
	}
	return &upstream.Error{Service: serviceName, Op: op, Err: err}
}
