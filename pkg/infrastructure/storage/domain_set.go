package storage

import (
	"fmt"

	"github.com/WangYihang/lazyscan/pkg/domain/repository"
	"github.com/bits-and-blooms/bloom/v3"
	mapset "github.com/deckarep/golang-set/v2"
)

// Dedup kinds accepted by NewDomainSet
const (
	DedupExact = "exact"
	DedupBloom = "bloom"
)

// ExactDomainSet implements repository.DomainSet with a hash set
type ExactDomainSet struct {
	set mapset.Set[string]
}

// NewExactDomainSet creates an empty exact set
func NewExactDomainSet() *ExactDomainSet {
	return &ExactDomainSet{set: mapset.NewThreadUnsafeSet[string]()}
}

// Contains checks if a domain key has been seen before
func (s *ExactDomainSet) Contains(key string) bool {
	return s.set.Contains(key)
}

// Add records a domain key
func (s *ExactDomainSet) Add(key string) {
	s.set.Add(key)
}

// Len returns the number of recorded keys
func (s *ExactDomainSet) Len() int {
	return s.set.Cardinality()
}

// BloomDomainSet implements repository.DomainSet using a Bloom filter. A
// false positive makes a new domain look seen, so it is never crawled; a
// seen domain is never reported as new.
type BloomDomainSet struct {
	filter *bloom.BloomFilter
}

// BloomConfig holds Bloom filter configuration
type BloomConfig struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomDomainSet creates a new Bloom filter backed set
func NewBloomDomainSet(config BloomConfig) *BloomDomainSet {
	return &BloomDomainSet{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
	}
}

// Contains checks if a domain key has been seen before
func (s *BloomDomainSet) Contains(key string) bool {
	return s.filter.TestString(key)
}

// Add records a domain key
func (s *BloomDomainSet) Add(key string) {
	s.filter.AddString(key)
}

// NewDomainSet builds the set for a configured dedup kind
func NewDomainSet(kind string, config BloomConfig) (repository.DomainSet, error) {
	switch kind {
	case "", DedupExact:
		return NewExactDomainSet(), nil
	case DedupBloom:
		return NewBloomDomainSet(config), nil
	default:
		return nil, fmt.Errorf("unknown dedup kind %q", kind)
	}
}
