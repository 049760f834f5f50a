package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/WangYihang/lazyscan/pkg/application"
	"github.com/WangYihang/lazyscan/pkg/config"
	"github.com/WangYihang/lazyscan/pkg/domain/fingerprint"
	"github.com/WangYihang/lazyscan/pkg/domain/repository"
	"github.com/WangYihang/lazyscan/pkg/extract"
	"github.com/WangYihang/lazyscan/pkg/infrastructure/http"
	"github.com/WangYihang/lazyscan/pkg/infrastructure/metrics"
	"github.com/WangYihang/lazyscan/pkg/infrastructure/module"
	"github.com/WangYihang/lazyscan/pkg/infrastructure/shodan"
	"github.com/WangYihang/lazyscan/pkg/infrastructure/storage"
	"github.com/WangYihang/lazyscan/pkg/input"
	"github.com/WangYihang/lazyscan/pkg/interface/presenter"
	"github.com/WangYihang/lazyscan/pkg/logger"
)

// Assembler assembles all components for the application
type Assembler struct {
	options *Options
	config  *config.Config
	logger  *logger.Logger

	// Stdout and Stderr default to the process streams
	Stdout io.Writer
	Stderr io.Writer
}

// NewAssembler creates a new assembler
func NewAssembler(options *Options, cfg *config.Config, log *logger.Logger) *Assembler {
	return &Assembler{
		options: options,
		config:  cfg,
		logger:  log,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// App is an assembled run of the configured source
type App struct {
	run         func(ctx context.Context) error
	logger      *logger.Logger
	progress    *presenter.Progress
	metrics     *metrics.Collector
	metricsAddr string
	closers     []func() error
}

// observable is implemented by both use cases
type observable interface {
	RegisterObserver(observer application.Observer)
}

// Assemble builds the app for the configured source
func (a *Assembler) Assemble() (*App, error) {
	app := &App{
		logger:      a.logger,
		metrics:     metrics.NewCollector(),
		metricsAddr: a.options.MetricsAddr,
	}

	writer, err := storage.NewFindingWriter(a.options.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create finding writer: %w", err)
	}
	app.closers = append(app.closers, writer.Flush, writer.Close)

	opts := []fingerprint.Option{
		fingerprint.WithReporter(writer),
		fingerprint.WithReporter(app.metrics),
		fingerprint.WithModuleRunner(module.NewExecRunner(a.config.Modules.Dir, a.config.ModuleTimeout())),
		fingerprint.WithLogger(a.logger),
	}
	if a.options.Output != "-" {
		opts = append(opts, fingerprint.WithReporter(presenter.NewConsole(a.Stdout)))
	}
	scanner := fingerprint.NewScanner(a.config.Rules(), opts...)
	if len(scanner.Targets()) == 0 {
		app.Close()
		return nil, fmt.Errorf("no known target in the configuration")
	}

	fetcher := http.NewFetcher(http.Config{
		Timeout:     a.config.FetchTimeout(),
		MaxBodySize: a.config.General.MaxBodySize,
		UserAgent:   a.config.General.UserAgent,
		Rate:        a.config.General.Rate,
	})

	var useCase observable
	label := "layer"
	switch a.config.SourceKind() {
	case config.SourceCrawler:
		useCase, err = a.assembleCrawler(app, fetcher, scanner)
	case config.SourceFile:
		useCase, err = a.assembleFile(app, fetcher, scanner)
	case config.SourceShodan:
		label = "page"
		useCase, err = a.assembleShodan(app, fetcher, scanner)
	default:
		err = fmt.Errorf("no source configured")
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	useCase.RegisterObserver(app.metrics)
	if !a.options.NoProgress {
		app.progress = presenter.NewProgress(a.Stderr, label)
		useCase.RegisterObserver(app.progress)
	}
	return app, nil
}

func (a *Assembler) newFrontier(app *App, crawler *config.CrawlerSource) (repository.Frontier, error) {
	seen, err := storage.NewDomainSet(crawler.Dedup, storage.BloomConfig{
		Size:              crawler.BloomSize,
		FalsePositiveRate: crawler.BloomFalsePositive,
	})
	if err != nil {
		return nil, err
	}

	var frontier repository.Frontier
	switch crawler.Queue {
	case config.QueueFile:
		frontier, err = storage.NewFileFrontier(crawler.Dir, seen)
		if err != nil {
			return nil, fmt.Errorf("failed to create file queue: %w", err)
		}
	default:
		frontier = storage.NewMemoryFrontier(seen)
	}
	app.closers = append(app.closers, frontier.Close)
	return frontier, nil
}

func (a *Assembler) seed(frontier repository.Frontier, seeds []string) error {
	err := frontier.Extend(seeds)
	if errors.Is(err, repository.ErrInvalidURL) {
		a.logger.WithError(err).Warn("skipped invalid seed")
		return nil
	}
	return err
}

func (a *Assembler) assembleCrawler(app *App, fetcher *http.Fetcher, scanner *fingerprint.Scanner) (observable, error) {
	crawler := a.config.Source.Crawler
	frontier, err := a.newFrontier(app, crawler)
	if err != nil {
		return nil, err
	}
	if err := a.seed(frontier, crawler.Seeds); err != nil {
		return nil, fmt.Errorf("failed to queue seeds: %w", err)
	}

	worker := application.NewWorker(frontier, fetcher, extract.NewLinkExtractor(), scanner, a.logger)
	uc := application.NewCrawlUseCase(application.Config{
		Threads:  a.config.General.Threads,
		MaxDepth: crawler.MaxDepth,
	}, frontier, worker, a.logger)
	app.run = uc.Execute
	return uc, nil
}

// assembleFile scans the listed targets without following links
func (a *Assembler) assembleFile(app *App, fetcher *http.Fetcher, scanner *fingerprint.Scanner) (observable, error) {
	urls, err := input.NewLoader().Load(a.config.Source.File.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}

	frontier, err := a.newFrontier(app, &config.CrawlerSource{Queue: config.QueueMemory, Dedup: config.DedupExact})
	if err != nil {
		return nil, err
	}
	if err := a.seed(frontier, urls); err != nil {
		return nil, fmt.Errorf("failed to queue targets: %w", err)
	}

	worker := application.NewWorker(frontier, fetcher, nil, scanner, a.logger)
	uc := application.NewCrawlUseCase(application.Config{
		Threads:  a.config.General.Threads,
		MaxDepth: 1,
	}, frontier, worker, a.logger)
	app.run = uc.Execute
	return uc, nil
}

func (a *Assembler) assembleShodan(app *App, fetcher *http.Fetcher, scanner *fingerprint.Scanner) (observable, error) {
	source := a.config.Source.Shodan
	if a.options.APIKey == "" {
		return nil, fmt.Errorf("the shodan source needs an API key (--api-key or API_KEY)")
	}

	client := shodan.NewClient(shodan.Config{
		BaseURL: source.BaseURL,
		Key:     a.options.APIKey,
		Timeout: a.config.FetchTimeout(),
	})
	worker := application.NewWorker(nil, fetcher, nil, scanner, a.logger)
	uc := application.NewSearchUseCase(client, worker, source.MaxPages, a.logger)
	app.run = func(ctx context.Context) error {
		return uc.Execute(ctx, source.Query)
	}
	return uc, nil
}

// Run runs the source until it is done or ctx is canceled. Terminal logging
// is printed above the progress bars while they are drawn.
func (a *App) Run(ctx context.Context) error {
	if a.metricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.metricsAddr); err != nil {
				a.logger.WithError(err).Error("metrics exporter stopped")
			}
		}()
	}

	if a.progress != nil {
		a.logger.Redirect(a.progress.Writer())
		defer func() {
			a.progress.Wait()
			a.logger.Resume()
		}()
	}
	return a.run(ctx)
}

// Metrics returns the collector the app reports to
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// Close flushes the findings and releases the queue
func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
