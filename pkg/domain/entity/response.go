package entity

import (
	"net/http"
	"time"
)

// Response is a fetched HTTP response reduced to what the scanner and
// the link extractor need
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JobResult describes the outcome of processing one URL of a layer
type JobResult struct {
	Layer    int
	URL      string
	Links    int
	Duration time.Duration
	Err      error
}
