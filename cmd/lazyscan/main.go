package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/WangYihang/lazyscan/pkg/common"
	"github.com/WangYihang/lazyscan/pkg/config"
	"github.com/WangYihang/lazyscan/pkg/interface/cli"
	"github.com/WangYihang/lazyscan/pkg/logger"
	"github.com/jessevdk/go-flags"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	options, err := cli.ParseFlags(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if options.Version {
		fmt.Println(common.Current().String())
		return 0
	}

	cfg, err := config.Load(options.Args.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: options.LogLevel, File: cfg.General.Log}, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer log.Close()

	// Assemble the configured source with all dependencies
	app, err := cli.NewAssembler(options, cfg, log).Assemble()
	if err != nil {
		log.WithError(err).Error("failed to start")
		return 1
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	log.WithField("version", common.Current().Short()).Info("starting lazyscan")
	runErr := app.Run(ctx)
	closeErr := app.Close()

	switch {
	case runErr != nil && !errors.Is(runErr, context.Canceled):
		log.WithError(runErr).Error("scan failed")
		return 1
	case closeErr != nil:
		log.WithError(closeErr).Error("failed to flush findings")
		return 1
	case runErr != nil:
		log.Info("scan interrupted")
	default:
		log.Info("scan completed successfully")
	}
	return 0
}
