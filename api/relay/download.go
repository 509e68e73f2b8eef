package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ka2n/cmsrelay/api/cache"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
	"golang.org/x/time/rate"
)

// Download is a fetched file
type Download struct {
	ContentType string
	Body        []byte
}

// Downloader GETs files from their origin with retries.
// It is safe for concurrent use.
type Downloader struct {
	client  *http.Client
	policy  retry.Policy
	timeout time.Duration
	limiter *rate.Limiter
	cache   *cache.Cache[Download]
}

// NewDownloader creates a downloader using client for every request
func NewDownloader(client *http.Client, cfg Config) (*Downloader, error) {
	d := &Downloader{
		client:  client,
		policy:  cfg.RetryPolicy(),
		timeout: cfg.RequestTimeout,
	}
	if cfg.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if cfg.CacheDir != "" {
		c, err := cache.New[Download](cfg.CacheDir, cache.DefaultTTL)
		if err != nil {
			return nil, failure.Wrap(err,
				failure.Message("Cannot create download cache directory"),
				failure.Context{"dir": cfg.CacheDir},
			)
		}
		d.cache = c
	}
	return d, nil
}

// Fetch downloads u. It returns the number of requests made, zero when served from the cache.
// Transport failures and unexpected statuses are retried; a 404 is returned at once as ErrNotFound.
func (d *Downloader) Fetch(ctx context.Context, u string) (Download, int, error) {
	attempts := 0
	var fetchErr error
	fetch := func() (Download, error) {
		var dl Download
		attempts, fetchErr = d.policy.Do(ctx, isRetryable, func(attempt int) error {
			var err error
			dl, err = d.get(ctx, u)
			if err != nil && isRetryable(err) {
				log.Warn("Download attempt failed", "url", u, "attempt", attempt, "error", reasonOf(err))
			}
			return err
		})
		return dl, fetchErr
	}

	if d.cache == nil {
		dl, err := fetch()
		return dl, attempts, err
	}

	dl, err := d.cache.GetOrSet(u, fetch, false)
	if err != nil && fetchErr == nil {
		// the download succeeded, only storing it failed
		log.Warn("Could not cache download", "url", u, "error", err)
		err = nil
	}
	return dl, attempts, err
}

func isRetryable(err error) bool {
	return failure.Is(err, ErrTransport, ErrStatus)
}

func (d *Downloader) get(ctx context.Context, u string) (Download, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return Download{}, failure.Wrap(err, failure.WithCode(ErrTransport), failure.Message(err.Error()))
		}
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Download{}, failure.Wrap(err, failure.WithCode(ErrInvalidURL),
			failure.Message(fmt.Sprintf("invalid URL: %v", err)),
			failure.Context{"url": u},
		)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Download{}, failure.Wrap(err, failure.WithCode(ErrTransport),
			failure.Message(err.Error()),
			failure.Context{"url": u},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Download{}, failure.New(ErrNotFound,
			failure.Message("file not found (404)"),
			failure.Context{"url": u},
		)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Download{}, failure.New(ErrStatus,
			failure.Message(fmt.Sprintf("HTTP %s", resp.Status)),
			failure.Context{"url": u},
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, failure.Wrap(err, failure.WithCode(ErrTransport),
			failure.Message(fmt.Sprintf("reading body: %v", err)),
			failure.Context{"url": u},
		)
	}
	return Download{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// reasonOf returns the user-facing message of err, falling back to its text
func reasonOf(err error) string {
	if msg := failure.MessageOf(err); msg != "" {
		return msg.String()
	}
	return err.Error()
}

// ClearCache removes every download cached under dir
func ClearCache(dir string) error {
	c, err := cache.New[Download](dir, cache.DefaultTTL)
	if err != nil {
		return failure.Wrap(err)
	}
	if err := c.Clear(); err != nil {
		return failure.Wrap(err, failure.Message("Cannot clear the download cache"), failure.Context{"dir": dir})
	}
	return nil
}
