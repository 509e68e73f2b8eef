// Package cms is a small REST client for the content-management backend.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
)

// ErrorCode defines error types for backend requests
type ErrorCode string

const (
	// ErrRequest represents transport failures: the request never produced a response
	ErrRequest ErrorCode = "CMSRequestFailed"
	// ErrStatus represents a response with a non-2xx status
	ErrStatus ErrorCode = "CMSUnexpectedStatus"
	// ErrDecode represents a response body that is not the expected JSON
	ErrDecode ErrorCode = "CMSDecodeFailed"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// StatusError carries a non-2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether a later attempt may succeed
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	policy     retry.Policy
}

// New creates a client for baseURL. token may be empty.
// GET requests follow policy; uploads are attempted once.
func New(baseURL, token string, httpClient *http.Client, policy retry.Policy) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		policy:     policy,
	}
}

// URL resolves path against the base URL and appends query
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// GetJSON fetches path and decodes the JSON body into out.
// Transport failures, 429 and 5xx responses are retried according to the client policy.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.URL(path, query)

	var body []byte
	_, err := c.policy.Do(ctx, IsRetryable, func(attempt int) error {
		b, err := c.get(ctx, u)
		if err != nil {
			log.Warn("Backend request failed", "url", u, "attempt", attempt, "error", err)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrDecode),
			failure.Message("Backend returned invalid JSON"),
			failure.Context{"url": u},
		)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrRequest), failure.Context{"url": u})
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrRequest),
			failure.Message("Backend is unreachable"),
			failure.Context{"url": req.URL.String()},
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrRequest), failure.Context{"url": req.URL.String()})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failure.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: string(body)},
			failure.WithCode(ErrStatus),
			failure.Context{
				"url":    req.URL.String(),
				"status": resp.Status,
			},
		)
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// File is an upload payload
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadedFile is the backend's description of a stored file
type UploadedFile struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	URL  string      `json:"url"`
}

// Upload posts file as multipart form data to target.Endpoint, attaching it to the target record.
// It returns the stored files reported by the backend; an unparseable success body yields no files.
func (c *Client) Upload(ctx context.Context, target reference.RelayTarget, file File) ([]UploadedFile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, file.Name))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, failure.Wrap(err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, failure.Wrap(err)
	}

	fields := [][2]string{
		{"refId", target.RefID},
		{"ref", target.Ref},
		{"field", target.Field},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, failure.Wrap(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, failure.Wrap(err)
	}

	endpoint := target.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = c.URL(endpoint, nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrRequest), failure.Context{"url": endpoint})
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var files []UploadedFile
	if err := json.Unmarshal(body, &files); err != nil {
		log.Debug("Upload response is not a file list", "url", endpoint, "error", err)
		return nil, nil
	}
	return files, nil
}

// IsRetryable reports whether err is a transport failure or a retryable status
func IsRetryable(err error) bool {
	if failure.Is(err, ErrRequest) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

// ResponseBody returns the body of a non-2xx response carried by err, or err's text.
// An empty body is replaced by the status line.
func ResponseBody(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		if body := strings.TrimSpace(se.Body); body != "" {
			return body
		}
		return fmt.Sprintf("HTTP %d %s", se.StatusCode, http.StatusText(se.StatusCode))
	}
	return err.Error()
}
