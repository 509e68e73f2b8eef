// Package api wires the listing, extraction and relay stages into a run.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ka2n/cmsrelay/api/cms"
	"github.com/ka2n/cmsrelay/api/listing"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/ka2n/cmsrelay/api/session"
	"github.com/ka2n/cmsrelay/config"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
)

// Plan is what a run is going to relay
type Plan struct {
	// Pages is the number of listing pages obtained
	Pages int `json:"pages"`
	// Partial is set when the listing stopped early; ListingErr holds the cause
	Partial    bool  `json:"partial"`
	ListingErr error `json:"-"`

	References []reference.FileReference `json:"references"`
}

// Outcome is a finished run
type Outcome struct {
	Plan   *Plan
	Report *relay.Report
}

// Runner executes runs against one backend
type Runner struct {
	cfg     config.Config
	backend *cms.Client
	origin  *http.Client
}

// NewRunner validates cfg and prepares the HTTP clients
func NewRunner(cfg config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendHTTP := &http.Client{
		Timeout:   cfg.Pool.RequestTimeout,
		Transport: log.Transport(nil),
	}
	return &Runner{
		cfg:     cfg,
		backend: cms.New(cfg.BaseURL, cfg.Token, backendHTTP, cfg.BackendPolicy()),
		origin:  session.New(cfg.Session()),
	}, nil
}

// References reads the whole listing and extracts the file references in it.
// It fails only when not a single listing page could be read.
func (r *Runner) References(ctx context.Context) (*Plan, error) {
	result, err := listing.NewFetcher(r.backend, r.cfg.Query()).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	refs := r.cfg.Extractor().Extract(result.Records)
	log.Info("Collected file references",
		"pages", result.Pages,
		"records", len(result.Records),
		"references", len(refs),
	)
	return &Plan{
		Pages:      result.Pages,
		Partial:    result.Partial(),
		ListingErr: result.Err,
		References: refs,
	}, nil
}

// Relay runs the whole pipeline: listing, extraction, then the bounded fetch-relay pool.
// Per-reference failures end up in the report; only an unavailable listing is returned as an error.
func (r *Runner) Relay(ctx context.Context, obs relay.Observer) (*Outcome, error) {
	plan, err := r.References(ctx)
	if err != nil {
		return nil, err
	}

	rc := r.cfg.Relay()
	dl, err := relay.NewDownloader(r.origin, rc)
	if err != nil {
		return nil, failure.Wrap(err)
	}
	report := relay.New(rc, dl, r.backend).Run(ctx, plan.References, obs)

	log.Info("Relay finished",
		"run_id", report.RunID,
		"total", report.Total,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration().Round(time.Millisecond),
	)
	return &Outcome{Plan: plan, Report: report}, nil
}
