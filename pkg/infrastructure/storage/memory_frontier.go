package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/WangYihang/lazyscan/pkg/domain/repository"
)

// MemoryFrontier implements repository.Frontier with an in-memory slice
type MemoryFrontier struct {
	mu      sync.Mutex
	pending []string
	seen    repository.DomainSet
}

// NewMemoryFrontier creates an empty frontier deduplicating through seen
func NewMemoryFrontier(seen repository.DomainSet) *MemoryFrontier {
	return &MemoryFrontier{seen: seen}
}

// Push enqueues url unless its domain was seen before
func (f *MemoryFrontier) Push(url string) error {
	if err := validateURL(url); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.push(url)
	return nil
}

// Extend pushes every url in order. Invalid entries are skipped and
// reported once the rest of the batch is applied.
func (f *MemoryFrontier) Extend(urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for _, url := range urls {
		if err := validateURL(url); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		f.push(url)
	}
	return firstErr
}

func (f *MemoryFrontier) push(url string) {
	key := entity.DomainKey(url)
	if f.seen.Contains(key) {
		return
	}
	f.seen.Add(key)
	f.pending = append(f.pending, url)
}

// Drain moves all pending URLs into a new Drain
func (f *MemoryFrontier) Drain() (repository.Drain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil, repository.ErrEmptyFrontier
	}

	entries := f.pending
	f.pending = nil
	return &MemoryDrain{entries: entries, size: len(entries)}, nil
}

// Close releases the pending entries
func (f *MemoryFrontier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = nil
	return nil
}

// MemoryDrain is a snapshot popped from its tail
type MemoryDrain struct {
	mu      sync.Mutex
	entries []string
	size    int
}

// Len returns the size the snapshot was taken with
func (d *MemoryDrain) Len() int {
	return d.size
}

// Pop returns the next URL
func (d *MemoryDrain) Pop() (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.entries)
	if n == 0 {
		return "", false, nil
	}
	url := d.entries[n-1]
	d.entries = d.entries[:n-1]
	return url, true, nil
}

// Close drops whatever was not popped
func (d *MemoryDrain) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = nil
	return nil
}

func validateURL(url string) error {
	if url == "" {
		return fmt.Errorf("%w: empty", repository.ErrInvalidURL)
	}
	if strings.ContainsAny(url, "\r\n") {
		return fmt.Errorf("%w: %q contains a line break", repository.ErrInvalidURL, url)
	}
	return nil
}
