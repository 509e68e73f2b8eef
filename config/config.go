// Package config loads the cmsrelay settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ka2n/cmsrelay/api/listing"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/ka2n/cmsrelay/api/session"
	"github.com/morikuni/failure/v2"
	"gopkg.in/yaml.v3"
)

// ErrorCode defines error types for configuration
type ErrorCode string

const (
	ErrConfigRead    ErrorCode = "ConfigReadFailed"
	ErrInvalidConfig ErrorCode = "InvalidConfig"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Environment variables that override the file
const (
	EnvBaseURL  = "CMSRELAY_BASE_URL"
	EnvToken    = "CMSRELAY_TOKEN"
	EnvCacheDir = "CMSRELAY_CACHE_DIR"
)

// Config is the complete run configuration
type Config struct {
	// BaseURL is the root of the backend REST API
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"token"`

	Listing Listing `yaml:"listing"`
	Upload  Upload  `yaml:"upload"`
	Origin  Origin  `yaml:"origin"`
	Pool    Pool    `yaml:"pool"`

	CacheDir string `yaml:"cache_dir"`
}

// Listing describes the collection to page through and where file entries sit in each record
type Listing struct {
	Path     string   `yaml:"path" validate:"required,startswith=/"`
	Populate []string `yaml:"populate"`
	Status   string   `yaml:"status"`
	PageSize int      `yaml:"page_size" validate:"min=1,max=1000"`

	// ChildPath is the chain of keys from a record down to its file entries
	ChildPath []string       `yaml:"child_path" validate:"min=1,dive,required"`
	Keys      reference.Keys `yaml:"keys"`
}

// Upload describes the relay endpoint
type Upload struct {
	Path  string `yaml:"path" validate:"required"`
	Ref   string `yaml:"ref" validate:"required"`
	Field string `yaml:"field" validate:"required"`
}

// Origin describes how files are downloaded
type Origin struct {
	UserAgent    string `yaml:"user_agent"`
	Referer      string `yaml:"referer" validate:"omitempty,url"`
	ExpectedType string `yaml:"expected_type"`
}

// Pool holds the worker pool and retry parameters
type Pool struct {
	Workers        int            `yaml:"workers" validate:"min=1,max=64"`
	Attempts       int            `yaml:"attempts" validate:"min=1,max=20"`
	RetryDelay     time.Duration  `yaml:"retry_delay" validate:"min=0"`
	Strategy       retry.Strategy `yaml:"strategy" validate:"oneof=constant exponential"`
	RequestTimeout time.Duration  `yaml:"request_timeout" validate:"min=0"`
	// RateLimit is the maximum origin requests per second; zero means unlimited
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
}

// Default returns the settings of the investor document relay
func Default() Config {
	rc := relay.DefaultConfig()
	return Config{
		BaseURL: "http://localhost:1337",
		Listing: Listing{
			Path:      "/api/investors",
			Populate:  []string{"investor_info", "investor_info.file_info"},
			Status:    "draft",
			PageSize:  listing.DefaultPageSize,
			ChildPath: []string{"investor_info", "file_info"},
			Keys:      reference.DefaultKeys,
		},
		Upload: Upload{
			Path:  rc.UploadEndpoint,
			Ref:   rc.Ref,
			Field: rc.Field,
		},
		Origin: Origin{
			UserAgent:    session.DefaultUserAgent,
			Referer:      "https://www.centuryply.com/",
			ExpectedType: rc.ExpectedType,
		},
		Pool: Pool{
			Workers:        rc.PoolWidth,
			Attempts:       rc.MaxAttempts,
			RetryDelay:     rc.RetryDelay,
			Strategy:       rc.RetryStrategy,
			RequestTimeout: rc.RequestTimeout,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, failure.Wrap(err, failure.WithCode(ErrConfigRead),
				failure.Message("Cannot read config file"),
				failure.Context{"path": path},
			)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, failure.Wrap(err, failure.WithCode(ErrConfigRead),
				failure.Message("Config file is not valid YAML: "+err.Error()),
				failure.Context{"path": path},
			)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvToken); ok {
		c.Token = v
	}
	if v, ok := lookup(EnvCacheDir); ok {
		c.CacheDir = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return failure.Wrap(err, failure.WithCode(ErrInvalidConfig))
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" fails "+fe.Tag())
	}
	return failure.New(ErrInvalidConfig,
		failure.Message("Invalid configuration: "+strings.Join(msgs, ", ")),
	)
}

// Relay returns the pipeline parameters
func (c Config) Relay() relay.Config {
	return relay.Config{
		PoolWidth:      c.Pool.Workers,
		MaxAttempts:    c.Pool.Attempts,
		RetryDelay:     c.Pool.RetryDelay,
		RetryStrategy:  c.Pool.Strategy,
		RequestTimeout: c.Pool.RequestTimeout,
		RateLimit:      c.Pool.RateLimit,
		ExpectedType:   c.Origin.ExpectedType,
		UploadEndpoint: c.Upload.Path,
		Ref:            c.Upload.Ref,
		Field:          c.Upload.Field,
		CacheDir:       c.CacheDir,
	}
}

// Query returns the listing query
func (c Config) Query() listing.Query {
	return listing.Query{
		Path:     c.Listing.Path,
		Populate: c.Listing.Populate,
		Status:   c.Listing.Status,
		PageSize: c.Listing.PageSize,
	}
}

// Extractor returns the reference extractor for listing records
func (c Config) Extractor() reference.Extractor {
	return reference.Extractor{
		Path: c.Listing.ChildPath,
		Keys: c.Listing.Keys,
	}
}

// Session returns the options of the origin session
func (c Config) Session() session.Options {
	return session.Options{
		Timeout:   c.Pool.RequestTimeout,
		UserAgent: c.Origin.UserAgent,
		Accept:    c.Origin.ExpectedType,
		Referer:   c.Origin.Referer,
	}
}

// BackendPolicy is the retry policy of listing requests: the pool attempts with exponential backoff
func (c Config) BackendPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Pool.Attempts,
		Delay:       c.Pool.RetryDelay,
		Strategy:    retry.Exponential,
	}
}
