package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRateLimit      = 100 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
	maxRetries            = 3
	initialBackoff        = 1 * time.Second
	maxBackoff            = 16 * time.Second
	maxBodySize           = 32 << 20
)

// HTTPSource fetches the manifest and set files from a static host with rate limiting.
type HTTPSource struct {
	baseURL      *url.URL
	manifestFile string
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	userAgent    string
	backoff      time.Duration
}

// NewHTTPSource creates a new HTTP source rooted at opts.Location.
func NewHTTPSource(opts Options) *HTTPSource {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "SWU-Binder/1.0"
	}
	if opts.ManifestFile == "" {
		opts.ManifestFile = "sets.json"
	}

	base, err := url.Parse(strings.TrimRight(opts.Location, "/") + "/")
	if err != nil {
		base = &url.URL{}
	}

	return &HTTPSource{
		baseURL:      base,
		manifestFile: opts.ManifestFile,
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		userAgent:   opts.UserAgent,
		backoff:     initialBackoff,
	}
}

// Manifest fetches and decodes the manifest.
func (s *HTTPSource) Manifest(ctx context.Context) (*Manifest, error) {
	u := s.resolve(s.manifestFile)
	body, err := s.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	return decodeManifest(body, u)
}

// SetFile fetches the raw card file for a set.
func (s *HTTPSource) SetFile(ctx context.Context, entry SetEntry) ([]byte, error) {
	u := s.resolve(entry.File)
	body, err := s.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to get set %s: %w", entry.Key, err)
	}
	return body, nil
}

func (s *HTTPSource) resolve(ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return s.baseURL.String() + ref
	}
	return s.baseURL.ResolveReference(r).String()
}

// doRequest performs a GET with rate limiting and retry on network errors,
// 429 and 5xx responses.
func (s *HTTPSource) doRequest(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	backoff := s.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, retry, err := s.fetchOnce(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retry || attempt == maxRetries {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *HTTPSource) fetchOnce(ctx context.Context, u string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, true, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &NotFoundError{Resource: u}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("request failed with status %d", resp.StatusCode)

	default:
		return nil, false, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
}
