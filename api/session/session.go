// Package session builds HTTP clients that look like a browser to file origins.
package session

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/ka2n/cmsrelay/log"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent to origins that reject non-browser clients
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Options configures a session
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Accept is the media type asked for, e.g. application/pdf
	Accept  string
	Referer string

	// Transport is the underlying round tripper; nil uses http.DefaultTransport
	Transport http.RoundTripper
}

// Headers returns the header set sent with every request
func (o Options) Headers() http.Header {
	h := http.Header{}
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	h.Set("User-Agent", ua)
	if o.Accept != "" {
		h.Set("Accept", o.Accept)
	}
	if o.Referer != "" {
		h.Set("Referer", o.Referer)
	}
	h.Set("Connection", "keep-alive")
	return h
}

// New returns a client that sends the browser-like headers, keeps cookies across requests and
// logs traffic at debug level. The client is safe to share between goroutines.
func New(opts Options) *http.Client {
	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
		Transport: &headerTransport{
			headers: opts.Headers(),
			base:    log.Transport(opts.Transport),
		},
	}
}

// headerTransport sets default headers on requests that do not carry them yet
type headerTransport struct {
	headers http.Header
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
