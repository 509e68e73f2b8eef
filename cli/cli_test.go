package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/ka2n/cmsrelay/config"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/pflag"
)

func parseOverrides(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvCacheDir, "")
	var o overrides
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerOverrides(fs, &o)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return loadConfig(fs, &o)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := parseOverrides(t,
		"--base-url", "https://cms.example.org",
		"--workers", "8",
		"--attempts", "5",
		"--retry-delay", "2s",
		"--strategy", "Exponential",
		"--rate-limit", "2.5",
	)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.BaseURL != "https://cms.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	p := cfg.Pool
	if p.Workers != 8 || p.Attempts != 5 || p.RetryDelay != 2*time.Second || p.Strategy != retry.Exponential || p.RateLimit != 2.5 {
		t.Errorf("Pool = %+v", p)
	}
	// flags not given keep the defaults
	if p.RequestTimeout != 30*time.Second || cfg.Listing.PageSize != 50 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	if _, err := parseOverrides(t, "--workers", "0"); !failure.Is(err, config.ErrInvalidConfig) {
		t.Errorf("loadConfig() error = %v, want ErrInvalidConfig", err)
	}
	if _, err := parseOverrides(t, "--strategy", "linear"); err == nil {
		t.Error("unknown strategy was accepted")
	}
}

func TestReportMarkdown(t *testing.T) {
	results := []relay.Result{
		{Status: relay.StatusSuccess, URL: "https://example.org/a.pdf"},
		{Status: relay.StatusSkipped, URL: "https://example.org/b.pdf", Reason: "file not found (404)"},
		{Status: relay.StatusFailed, URL: "https://example.org/c_d.pdf", Reason: "invalid content type: text/html"},
		{Status: relay.StatusSkipped, Reason: "missing URL"},
	}
	out := &api.Outcome{
		Plan:   &api.Plan{Pages: 1, Partial: true},
		Report: relay.NewReport(results, time.Now()),
	}

	md := reportMarkdown(out)
	for _, want := range []string{
		"| Relayed | 1 |",
		"| Skipped | 2 |",
		"| Failed | 1 |",
		"### file not found (404) (1)",
		`- https://example.org/c\_d.pdf`,
		"- (no URL)",
		"stopped after 1 page(s)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report does not contain %q:\n%s", want, md)
		}
	}

	var buf bytes.Buffer
	if err := printReport(&buf, out); err != nil {
		t.Fatal(err)
	}
	if buf.String() != md {
		t.Error("printReport() to a non-terminal should write plain Markdown")
	}
}

func TestWriteRefsTable(t *testing.T) {
	plan := &api.Plan{
		Pages: 2,
		References: []reference.FileReference{
			{URL: "https://example.org/a.pdf", ID: "11", Name: "Annual", Owner: "inv1"},
		},
	}
	var buf bytes.Buffer
	if err := writeRefsTable(&buf, plan); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"OWNER", "inv1", "https://example.org/a.pdf", "1 reference(s) from 2 page(s)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table does not contain %q:\n%s", want, buf.String())
		}
	}
}

func TestProgressModel(t *testing.T) {
	cancelled := false
	m := newProgressModel(func() { cancelled = true })

	var model = m
	next, _ := model.Update(startedMsg{total: 2})
	model = next.(progressModel)
	next, _ = model.Update(resultMsg{result: relay.Result{Status: relay.StatusSuccess, URL: "https://example.org/a.pdf"}})
	model = next.(progressModel)

	if got := model.finished(); got != 1 {
		t.Errorf("finished() = %d, want 1", got)
	}
	if v := model.View(); !strings.Contains(v, "1/2") || !strings.Contains(v, "1 relayed") {
		t.Errorf("View() = %q", v)
	}

	next, cmd := model.Update(doneMsg{})
	if cmd == nil || next.View() != "" {
		t.Error("doneMsg should quit and clear the view")
	}
	if cancelled {
		t.Error("cancel called without a key press")
	}
}
