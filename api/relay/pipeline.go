// Package relay downloads files referenced by a listing and re-uploads them to the backend.
//
// The pipeline runs one task per reference on a fixed number of workers. Each task ends in
// exactly one Result; a failing reference never stops the others.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ka2n/cmsrelay/api/cms"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/morikuni/failure/v2"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads a file. *Downloader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Download, int, error)
}

// Uploader relays a downloaded file. *cms.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, target reference.RelayTarget, file cms.File) ([]cms.UploadedFile, error)
}

// Observer is notified as the pipeline progresses. Finished is called from worker goroutines.
type Observer interface {
	Started(total int)
	Finished(r Result)
}

// Pipeline is the bounded fetch-relay worker pool
type Pipeline struct {
	cfg      Config
	fetcher  Fetcher
	uploader Uploader

	// TargetFunc overrides where each reference is uploaded; nil uses Config.Target
	TargetFunc func(reference.FileReference) reference.RelayTarget
}

// New creates a pipeline
func New(cfg Config, fetcher Fetcher, uploader Uploader) *Pipeline {
	if cfg.PoolWidth < 1 {
		cfg.PoolWidth = 1
	}
	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		uploader: uploader,
	}
}

// Run processes every reference and returns once all of them reached a terminal outcome.
// The report holds exactly one result per reference, in no particular relation to the input order.
func (p *Pipeline) Run(ctx context.Context, refs []reference.FileReference, obs Observer) *Report {
	startedAt := time.Now()
	if obs == nil {
		obs = nopObserver{}
	}
	obs.Started(len(refs))

	results := make(chan Result, len(refs))

	var g errgroup.Group
	g.SetLimit(p.cfg.PoolWidth)
	for _, ref := range refs {
		g.Go(func() error {
			r := p.safeProcess(ctx, ref)
			results <- r
			obs.Finished(r)
			return nil
		})
	}
	// tasks report through results and never return an error
	_ = g.Wait()
	close(results)

	collected := make([]Result, 0, len(refs))
	for r := range results {
		collected = append(collected, r)
	}
	return NewReport(collected, startedAt)
}

func (p *Pipeline) safeProcess(ctx context.Context, ref reference.FileReference) (r Result) {
	defer func() {
		if v := recover(); v != nil {
			r = failed(ref, ref.URL, fmt.Sprintf("panic: %v", v), nil)
		}
	}()
	return p.process(ctx, ref)
}

func (p *Pipeline) process(ctx context.Context, ref reference.FileReference) Result {
	if strings.TrimSpace(ref.URL) == "" {
		return skipped(ref, ref.URL, "missing URL", failure.New(ErrMissingURL))
	}

	u := NormalizeURL(ref.URL)
	dl, attempts, err := p.fetcher.Fetch(ctx, EncodeURL(u))
	if err != nil {
		var r Result
		if failure.Is(err, ErrNotFound) {
			r = skipped(ref, u, reasonOf(err), err)
		} else {
			r = failed(ref, u, reasonOf(err), err)
		}
		r.Attempts = attempts
		return r
	}

	if !MatchContentType(dl.ContentType, p.cfg.ExpectedType) {
		r := failed(ref, u, "invalid content type: "+dl.ContentType,
			failure.New(ErrInvalidContentType, failure.Context{
				"url":          u,
				"content_type": dl.ContentType,
			}),
		)
		r.Attempts = attempts
		r.ContentType = dl.ContentType
		r.Size = len(dl.Body)
		return r
	}

	name := SanitizeFileName(uploadName(u, ref.Name))
	target := p.target(ref)
	contentType := p.cfg.ExpectedType
	if contentType == "" {
		contentType = dl.ContentType
	}

	files, err := p.uploader.Upload(ctx, target, cms.File{
		Name:        name,
		ContentType: contentType,
		Data:        dl.Body,
	})
	if err != nil {
		r := failed(ref, u, cms.ResponseBody(err), failure.Wrap(err, failure.WithCode(ErrUpload)))
		r.Attempts = attempts
		r.FileName = name
		return r
	}

	r := success(ref, u)
	r.Attempts = attempts
	r.Size = len(dl.Body)
	r.ContentType = dl.ContentType
	r.FileName = name
	if len(files) > 0 {
		r.UploadedID = files[0].ID.String()
	}
	return r
}

func (p *Pipeline) target(ref reference.FileReference) reference.RelayTarget {
	if p.TargetFunc != nil {
		return p.TargetFunc(ref)
	}
	return p.cfg.Target(ref)
}

type nopObserver struct{}

func (nopObserver) Started(int)     {}
func (nopObserver) Finished(Result) {}
