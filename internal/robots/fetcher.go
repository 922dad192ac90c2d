package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single robots.txt fetch, including reading the body.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes caps how much of a robots.txt body is read.
	DefaultMaxBytes int64 = 1 << 20
)

// Response is the raw outcome of a robots.txt request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher retrieves the robots.txt file for a domain key.
type Fetcher interface {
	Fetch(ctx context.Context, domain string) (Response, error)
}

// FetcherConfig configures an HTTPFetcher.
type FetcherConfig struct {
	// Client is used for requests; a client with Timeout is built when nil.
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

// HTTPFetcher fetches https://<domain>/robots.txt.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxBytes  int64
	logger    *zap.Logger
}

// NewHTTPFetcher builds an HTTPFetcher, filling in defaults.
func NewHTTPFetcher(cfg FetcherConfig, logger *zap.Logger) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, domain string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	robotsURL := url.URL{Scheme: "https", Host: domain, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("new robots request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read robots body: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
