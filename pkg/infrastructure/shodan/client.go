// Package shodan searches the Shodan host index.
package shodan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/service"
	"github.com/projectdiscovery/retryablehttp-go"
)

// DefaultBaseURL is the public Shodan API
const DefaultBaseURL = "https://api.shodan.io"

// Config holds client configuration
type Config struct {
	BaseURL string
	Key     string
	Timeout time.Duration
	Retries int
}

// Client implements service.HostSearcher
type Client struct {
	client  *retryablehttp.Client
	baseURL string
	key     string
}

type match struct {
	IP    uint32 `json:"ip"`
	IPStr string `json:"ip_str"`
	Port  int    `json:"port"`
}

type searchResponse struct {
	Matches []match `json:"matches"`
	Error   string  `json:"error"`
}

// NewClient creates a client
func NewClient(config Config) *Client {
	opts := retryablehttp.DefaultOptionsSingle
	if config.Timeout > 0 {
		opts.Timeout = config.Timeout
	}
	if config.Retries > 0 {
		opts.RetryMax = config.Retries
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		client:  retryablehttp.NewClient(opts),
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     config.Key,
	}
}

// Search returns the hosts of one result page. An error object in the
// response is returned as service.ErrSearchRejected.
func (c *Client) Search(ctx context.Context, query string, page int) ([]service.Host, error) {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("facets", "country")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/shodan/host/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", redact(err, c.key))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode search response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", service.ErrSearchRejected, result.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	hosts := make([]service.Host, 0, len(result.Matches))
	for _, m := range result.Matches {
		ip := m.IPStr
		if ip == "" {
			var b [4]byte
			b[0], b[1], b[2], b[3] = byte(m.IP>>24), byte(m.IP>>16), byte(m.IP>>8), byte(m.IP)
			ip = netip.AddrFrom4(b).String()
		}
		hosts = append(hosts, service.Host{IP: ip, Port: m.Port})
	}
	return hosts, nil
}

// redact keeps the API key out of errors that quote the request URL. The
// cause stays reachable through errors.Is and errors.As.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}
