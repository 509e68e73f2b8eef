package relay

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/samber/lo"
)

// Status is the terminal outcome of one reference
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome of processing one FileReference. Every reference yields exactly one Result.
type Result struct {
	Status    Status                  `json:"status"`
	Reference reference.FileReference `json:"reference"`
	// URL is the normalized URL that was requested, or the raw one if nothing was requested
	URL string `json:"url"`
	// Reason explains a skipped or failed outcome
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts"`

	Size        int    `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	UploadedID  string `json:"uploaded_id,omitempty"`

	Err error `json:"-"`
}

func success(ref reference.FileReference, url string) Result {
	return Result{Status: StatusSuccess, Reference: ref, URL: url}
}

func skipped(ref reference.FileReference, url, reason string, err error) Result {
	return Result{Status: StatusSkipped, Reference: ref, URL: url, Reason: reason, Err: err}
}

func failed(ref reference.FileReference, url, reason string, err error) Result {
	return Result{Status: StatusFailed, Reference: ref, URL: url, Reason: reason, Err: err}
}

// Report aggregates the results of one run
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	Results []Result `json:"results"`

	// FailuresByReason maps each failure or skip reason to the URLs that hit it
	FailuresByReason map[string][]string `json:"failures_by_reason,omitempty"`
}

// NewReport reduces results into a report. Results are ordered by URL so reports are stable.
func NewReport(results []Result, startedAt time.Time) *Report {
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].URL < sorted[j].URL
	})

	counts := lo.CountValuesBy(sorted, func(r Result) Status {
		return r.Status
	})
	unsuccessful := lo.Filter(sorted, func(r Result, _ int) bool {
		return r.Status != StatusSuccess
	})
	byReason := lo.MapValues(lo.GroupBy(unsuccessful, func(r Result) string {
		return r.Reason
	}), func(rs []Result, _ string) []string {
		return lo.Map(rs, func(r Result, _ int) string {
			return r.URL
		})
	})

	return &Report{
		RunID:            uuid.NewString(),
		StartedAt:        startedAt,
		FinishedAt:       time.Now(),
		Total:            len(sorted),
		Succeeded:        counts[StatusSuccess],
		Skipped:          counts[StatusSkipped],
		Failed:           counts[StatusFailed],
		Results:          sorted,
		FailuresByReason: byReason,
	}
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Unsuccessful returns the skipped and failed results
func (r *Report) Unsuccessful() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool {
		return res.Status != StatusSuccess
	})
}
