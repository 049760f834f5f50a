package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/WangYihang/lazyscan/pkg/domain/repository"
	"github.com/WangYihang/lazyscan/pkg/domain/service"
	"github.com/WangYihang/lazyscan/pkg/extract"
	"github.com/sirupsen/logrus"
)

// ErrDrainRead marks a failure to read the current layer. It ends the crawl.
var ErrDrainRead = errors.New("read drain")

// Worker fetches, scans and expands URLs
type Worker struct {
	frontier  repository.Frontier
	fetcher   service.Fetcher
	extractor service.LinkExtractor
	scanner   Scanner
	observers observers
	logger    logrus.FieldLogger
}

// NewWorker creates a worker. frontier and extractor may be nil when links
// are never followed.
func NewWorker(
	frontier repository.Frontier,
	fetcher service.Fetcher,
	extractor service.LinkExtractor,
	scanner Scanner,
	logger logrus.FieldLogger,
) *Worker {
	return &Worker{
		frontier:  frontier,
		fetcher:   fetcher,
		extractor: extractor,
		scanner:   scanner,
		logger:    logger,
	}
}

// RegisterObserver registers an observer of processed URLs
func (w *Worker) RegisterObserver(observer Observer) {
	w.observers = append(w.observers, observer)
}

// Run processes URLs popped from drain until it is exhausted. It returns
// an error wrapping ErrDrainRead when the drain fails, the context error on
// cancellation, or the frontier error that stopped it.
func (w *Worker) Run(ctx context.Context, layer int, drain repository.Drain, follow bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		url, ok, err := drain.Pop()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDrainRead, err)
		}
		if !ok {
			return nil
		}

		if err := w.Process(ctx, layer, url, follow); err != nil {
			return err
		}
	}
}

// Process handles one URL. Fetch and scan failures are logged and do not
// fail the job; only a frontier write error is returned.
// Links the frontier rejects as invalid are skipped.
func (w *Worker) Process(ctx context.Context, layer int, url string, follow bool) error {
	start := time.Now()
	result := entity.JobResult{Layer: layer, URL: url}
	log := w.logger.WithFields(logrus.Fields{"layer": layer, "url": url})

	defer func() {
		result.Duration = time.Since(start)
		w.observers.urlProcessed(result)
	}()

	resp, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		result.Err = err
		if ctx.Err() == nil {
			log.WithError(err).Warn("fetch failed")
		}
		return nil
	}
	log.WithField("status", resp.StatusCode).Debug("fetched")

	if _, err := w.scanner.Scan(ctx, url, resp.Header); err != nil {
		log.WithError(err).Error("scan failed")
	}

	if !follow || w.frontier == nil || w.extractor == nil {
		return nil
	}

	links := extract.JoinAll(url, w.extractor.Extract(resp.Body))
	result.Links = len(links)
	if len(links) == 0 {
		return nil
	}
	if err := w.frontier.Extend(links); err != nil {
		if errors.Is(err, repository.ErrInvalidURL) {
			log.WithError(err).Debug("skipped links")
			return nil
		}
		result.Err = err
		return fmt.Errorf("extend frontier from %s: %w", url, err)
	}
	return nil
}
