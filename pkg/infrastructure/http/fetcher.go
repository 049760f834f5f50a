package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"golang.org/x/time/rate"
)

// DefaultMaxBodySize caps the bytes read from a response body
const DefaultMaxBodySize = 10 * 1024 * 1024

// Fetcher implements service.Fetcher
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   *UserAgent
	limiter     *rate.Limiter
}

// Config holds HTTP fetcher configuration
type Config struct {
	Timeout     time.Duration
	MaxBodySize int64
	UserAgent   string
	// Rate is the number of requests per second across all workers, 0 for
	// no limit
	Rate  float64
	Burst int
}

// NewFetcher creates a new HTTP fetcher
func NewFetcher(config Config) *Fetcher {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client:      NewClient(config.Timeout),
		timeout:     config.Timeout,
		maxBodySize: config.MaxBodySize,
		userAgent:   NewUserAgent(config.UserAgent),
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// Fetch performs a GET on url and reads at most the configured body size.
// Any status code is a successful fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*entity.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent.Get())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &entity.Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
