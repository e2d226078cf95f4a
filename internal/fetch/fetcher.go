// Package fetch retrieves the HTML of audit targets.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/pkg/safehttp"
)

const (
	// DefaultUserAgent mimics a desktop browser; many sites refuse bare Go clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBody   = 5 << 20
)

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client. It replaces the SSRF-guarded default.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBody limits how many bytes of the page are read.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// Fetcher performs the plain GET of the target page.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxBody   int64
}

// New creates a fetcher. Without WithHTTPClient it refuses private network targets.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Transport: safehttp.NewTransport()},
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		maxBody:   DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL and returns the body. Non-2xx responses are failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", &domain.FetchError{URL: rawURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return string(body), nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	return nil
}

var _ domain.Fetcher = (*Fetcher)(nil)
