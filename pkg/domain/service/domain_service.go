package service

import (
	"context"
	"errors"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

// Fetcher fetches web content
type Fetcher interface {
	// Fetch fetches a URL within the configured timeout
	Fetch(ctx context.Context, url string) (*entity.Response, error)
}

// LinkExtractor extracts hyperlink targets from a document body
type LinkExtractor interface {
	// Extract returns the distinct href values found in body
	Extract(body []byte) []string
}

// ModuleRunner runs a follow-up module against a URL
type ModuleRunner interface {
	// Run executes module of target against url and returns its exit code
	Run(ctx context.Context, target, module, url string) (int, error)
}

// ErrSearchRejected is returned by a HostSearcher when the search API
// answers with an error object. It ends a search, usually after the last
// page.
var ErrSearchRejected = errors.New("search rejected")

// Host is one host returned by a host search
type Host struct {
	IP   string
	Port int
}

// HostSearcher enumerates hosts matching a query, one page at a time
type HostSearcher interface {
	// Search returns the hosts of page, which starts at 1
	Search(ctx context.Context, query string, page int) ([]Host, error)
}
