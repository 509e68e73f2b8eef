package relay

import (
	"time"

	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/api/retry"
)

// ErrorCode defines error types for fetch and relay operations
type ErrorCode string

const (
	// ErrTransport represents connection errors and timeouts; retried
	ErrTransport ErrorCode = "TransportError"
	// ErrStatus represents non-2xx origin responses other than 404; retried
	ErrStatus ErrorCode = "UnexpectedStatus"
	// ErrNotFound represents a 404 from the origin; terminal, the reference is skipped
	ErrNotFound ErrorCode = "NotFound"
	// ErrInvalidURL represents a URL that cannot be requested; terminal
	ErrInvalidURL ErrorCode = "InvalidURL"
	// ErrMissingURL represents a reference without URL; terminal, the reference is skipped
	ErrMissingURL ErrorCode = "MissingURL"
	// ErrInvalidContentType represents a download of the wrong media type; terminal
	ErrInvalidContentType ErrorCode = "InvalidContentType"
	// ErrUpload represents a rejected or failed relay upload; terminal
	ErrUpload ErrorCode = "UploadError"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Config holds the pipeline parameters
type Config struct {
	// PoolWidth is the number of references processed concurrently
	PoolWidth int

	MaxAttempts    int
	RetryDelay     time.Duration
	RetryStrategy  retry.Strategy
	RequestTimeout time.Duration

	// RateLimit caps origin GETs per second; zero disables the limit
	RateLimit float64

	// ExpectedType is the media type a download must declare to be relayed
	ExpectedType string

	// UploadEndpoint, Ref and Field describe where downloads are attached
	UploadEndpoint string
	Ref            string
	Field          string

	// CacheDir enables the on-disk download cache when non-empty
	CacheDir string
}

// DefaultConfig returns the parameters the investor document relay runs with
func DefaultConfig() Config {
	return Config{
		PoolWidth:      5,
		MaxAttempts:    3,
		RetryDelay:     5 * time.Second,
		RetryStrategy:  retry.Constant,
		RequestTimeout: 30 * time.Second,
		ExpectedType:   "application/pdf",
		UploadEndpoint: "/api/upload",
		Ref:            "investors.file-data",
		Field:          "file",
	}
}

// RetryPolicy is the policy applied to origin GETs
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		Delay:       c.RetryDelay,
		Strategy:    c.RetryStrategy,
	}
}

// Target attaches ref to the record entry it was found in
func (c Config) Target(ref reference.FileReference) reference.RelayTarget {
	return reference.RelayTarget{
		Endpoint: c.UploadEndpoint,
		RefID:    ref.ID,
		Ref:      c.Ref,
		Field:    c.Field,
	}
}
