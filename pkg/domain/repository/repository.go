package repository

import (
	"errors"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

// ErrEmptyFrontier is returned by Frontier.Drain when nothing is pending.
// It ends the crawl and is not a failure.
var ErrEmptyFrontier = errors.New("empty frontier")

// ErrInvalidURL is returned for entries that cannot be queued, such as the
// empty string or a URL containing a line break
var ErrInvalidURL = errors.New("invalid url")

// Frontier is the deduplicating queue of URLs not yet fetched
type Frontier interface {
	// Push enqueues url unless a URL with the same domain key was seen before
	Push(url string) error
	// Extend pushes every url in order
	Extend(urls []string) error
	// Drain moves all pending URLs into a new Drain
	Drain() (Drain, error)
	// Close releases the backing storage
	Close() error
}

// Drain is a read-once snapshot of a Frontier, safe for concurrent consumers
type Drain interface {
	// Len returns the number of URLs the snapshot was taken with
	Len() int
	// Pop returns the next URL, or false once the snapshot is exhausted
	Pop() (string, bool, error)
	// Close releases the snapshot
	Close() error
}

// DomainSet records domain keys. Callers serialize access.
type DomainSet interface {
	// Contains checks if a domain key has been seen before
	Contains(key string) bool
	// Add records a domain key
	Add(key string)
}

// FindingWriter writes findings
type FindingWriter interface {
	// Write writes a single finding
	Write(finding entity.Finding) error
	// Flush ensures all buffered data is written
	Flush() error
	// Close closes the writer
	Close() error
}
