package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/domain/repository"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// CrawlUseCase crawls the frontier layer by layer. Every layer is the drain
// of everything queued so far; it is consumed by Threads workers and fully
// joined before the next drain is taken.
type CrawlUseCase struct {
	config    Config
	frontier  repository.Frontier
	worker    *Worker
	observers observers
	logger    logrus.FieldLogger
}

// Config holds the use case configuration
type Config struct {
	Threads int
	// MaxDepth limits the number of layers, 0 for no limit. Links found on
	// the last allowed layer are not queued.
	MaxDepth int
}

// NewCrawlUseCase creates a new crawl use case
func NewCrawlUseCase(config Config, frontier repository.Frontier, worker *Worker, logger logrus.FieldLogger) *CrawlUseCase {
	if config.Threads <= 0 {
		config.Threads = 1
	}
	return &CrawlUseCase{
		config:   config,
		frontier: frontier,
		worker:   worker,
		logger:   logger,
	}
}

// RegisterObserver registers a progress observer. It must be called before
// Execute.
func (uc *CrawlUseCase) RegisterObserver(observer Observer) {
	uc.observers = append(uc.observers, observer)
	uc.worker.RegisterObserver(observer)
}

// Execute runs layers until the frontier is empty, the depth limit is
// reached or ctx is canceled, in which case ctx.Err() is returned.
func (uc *CrawlUseCase) Execute(ctx context.Context) error {
	pool, err := ants.NewPool(uc.config.Threads, ants.WithPreAlloc(true), ants.WithNonblocking(false))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	for layer := 0; ; layer++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if uc.config.MaxDepth > 0 && layer >= uc.config.MaxDepth {
			uc.logger.WithField("max_depth", uc.config.MaxDepth).Info("depth limit reached")
			return nil
		}

		drain, err := uc.frontier.Drain()
		if errors.Is(err, repository.ErrEmptyFrontier) {
			uc.logger.WithField("layers", layer).Info("frontier exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("drain layer %d: %w", layer, err)
		}

		follow := uc.config.MaxDepth == 0 || layer < uc.config.MaxDepth-1
		uc.logger.WithFields(logrus.Fields{"layer": layer, "size": drain.Len()}).Info("layer started")
		uc.observers.layerStart(layer, drain.Len())

		err = uc.runLayer(ctx, pool, layer, drain, follow)
		if cerr := drain.Close(); cerr != nil {
			uc.logger.WithError(cerr).Warn("failed to close drain")
		}
		uc.observers.layerDone(layer)
		if err != nil {
			return err
		}
	}
}

// runLayer starts exactly Threads worker loops sharing drain and waits for
// all of them
func (uc *CrawlUseCase) runLayer(ctx context.Context, pool *ants.Pool, layer int, drain repository.Drain, follow bool) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal []error

	record := func(err error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if errors.Is(err, ErrDrainRead) {
			mu.Lock()
			fatal = append(fatal, err)
			mu.Unlock()
			return
		}
		uc.logger.WithError(err).WithField("layer", layer).Error("worker stopped")
	}

	for i := 0; i < uc.config.Threads; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := uc.worker.Run(ctx, layer, drain, follow); err != nil {
				record(err)
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			fatal = append(fatal, fmt.Errorf("submit worker: %w", err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(fatal) > 0 {
		return fmt.Errorf("layer %d: %w", layer, errors.Join(fatal...))
	}
	return nil
}
