// Package listing walks a paginated collection endpoint of the backend.
package listing

import (
	"context"
	"iter"
	"net/url"
	"strconv"

	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
)

// ErrorCode defines error types for listing operations
type ErrorCode string

const (
	// ErrListingUnavailable is returned when not a single page could be fetched
	ErrListingUnavailable ErrorCode = "ListingUnavailable"
	// ErrMalformedPage is reported when a page lacks the data or meta envelope
	ErrMalformedPage ErrorCode = "MalformedPage"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Getter fetches a JSON document. *cms.Client implements it.
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Query selects the collection and the nested collections to populate
type Query struct {
	// Path of the collection endpoint, e.g. /api/investors
	Path string
	// Populate lists relations to include, sent as populate[i]
	Populate []string
	// Status filters by publication state when non-empty
	Status   string
	PageSize int
}

// Values builds the query string for page (1-based)
func (q Query) Values(page int) url.Values {
	v := url.Values{}
	for i, p := range q.Populate {
		v.Set("populate["+strconv.Itoa(i)+"]", p)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	v.Set("pagination[page]", strconv.Itoa(page))
	v.Set("pagination[pageSize]", strconv.Itoa(q.PageSize))
	return v
}

// Page is one page of the listing
type Page struct {
	Number    int
	PageCount int
	Records   []reference.Record
}

type envelope struct {
	Data *[]reference.Record `json:"data"`
	Meta *struct {
		Pagination *struct {
			PageCount *int `json:"pageCount"`
		} `json:"pagination"`
	} `json:"meta"`
}

// DefaultPageSize is used when a query does not set one
const DefaultPageSize = 50

// Fetcher reads a listing page by page
type Fetcher struct {
	getter Getter
	query  Query
}

// NewFetcher creates a fetcher for query
func NewFetcher(getter Getter, query Query) *Fetcher {
	if query.PageSize <= 0 {
		query.PageSize = DefaultPageSize
	}
	return &Fetcher{getter: getter, query: query}
}

// Pages returns a lazy sequence of pages. Every iteration starts again at page 1.
// The sequence ends after the page whose number reaches the reported page count.
// A failed or malformed page is yielded as an error and ends the sequence.
func (f *Fetcher) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for page := 1; ; page++ {
			p, err := f.fetchPage(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(p, nil) {
				return
			}
			if page >= p.PageCount {
				return
			}
		}
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) (*Page, error) {
	var env envelope
	if err := f.getter.GetJSON(ctx, f.query.Path, f.query.Values(page), &env); err != nil {
		return nil, failure.Wrap(err, failure.Context{"page": strconv.Itoa(page)})
	}
	if env.Data == nil || env.Meta == nil || env.Meta.Pagination == nil || env.Meta.Pagination.PageCount == nil {
		return nil, failure.New(ErrMalformedPage,
			failure.Message("Listing page has no data/meta envelope"),
			failure.Context{
				"path": f.query.Path,
				"page": strconv.Itoa(page),
			},
		)
	}
	return &Page{
		Number:    page,
		PageCount: *env.Meta.Pagination.PageCount,
		Records:   *env.Data,
	}, nil
}

// Result is the outcome of reading a whole listing
type Result struct {
	Records []reference.Record
	// Pages is the number of pages obtained
	Pages int
	// Err is set when the listing stopped early; Records then holds what was read before it
	Err error
}

// Partial reports whether the listing stopped before its last page
func (r *Result) Partial() bool {
	return r.Err != nil
}

// FetchAll accumulates every page. An error part-way through is kept in Result.Err
// and the pages read so far are returned. It fails only when no page was obtained.
func (f *Fetcher) FetchAll(ctx context.Context) (*Result, error) {
	result := &Result{}
	for p, err := range f.Pages(ctx) {
		if err != nil {
			result.Err = err
			break
		}
		result.Pages++
		result.Records = append(result.Records, p.Records...)
		log.Debug("Fetched listing page", "path", f.query.Path, "page", p.Number, "page_count", p.PageCount, "records", len(p.Records))
	}

	if result.Pages == 0 {
		return nil, failure.Wrap(result.Err, failure.WithCode(ErrListingUnavailable),
			failure.Message("Could not fetch the source listing"),
			failure.Context{"path": f.query.Path},
		)
	}
	if result.Err != nil {
		log.Warn("Listing stopped early, continuing with partial result",
			"path", f.query.Path,
			"pages", result.Pages,
			"records", len(result.Records),
			"error", result.Err,
		)
	}
	return result, nil
}
