package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vk/brainjit/internal/app"
	"github.com/vk/brainjit/internal/cli"
	"github.com/vk/brainjit/internal/hcl_adapter"
)

// main is the entrypoint for the brainjit compiler.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, app.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(app.ExitFailure)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, streams app.Streams, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, usageWriter(streams))
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	loader := hcl_adapter.NewLoader()
	brainjit := app.NewApp(streams, appConfig, loader)
	if err := brainjit.Run(ctx); err != nil {
		return &cli.ExitError{Code: app.ExitCode(err), Message: err.Error()}
	}
	return nil
}

// usageWriter is where help and flag errors go.
func usageWriter(streams app.Streams) io.Writer {
	if streams.Err != nil {
		return streams.Err
	}
	return io.Discard
}
