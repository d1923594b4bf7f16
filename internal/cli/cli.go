package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/vk/brainjit/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(msg string) *ExitError {
	return &ExitError{Code: app.ExitUsage, Message: msg}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("brainjit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
brainjit - a just-in-time compiler for the eight-operation tape language.

Usage:
  brainjit [options] INPUT

Arguments:
  INPUT
    Path to the program source.

Without -o, -print or -jit the program is only compiled and verified.

Options:
`)
		flagSet.PrintDefaults()
	}

	outputFlag := flagSet.String("o", "", "Serialize the verified module to this file.")
	jitFlag := flagSet.Bool("jit", false, "Run the module in the execution engine.")
	optFlag := flagSet.Bool("opt", false, "Run the optimization pipeline over the program.")
	printFlag := flagSet.Bool("print", false, "Print the module to standard output.")
	configFlag := flagSet.String("config", env.Str("BRAINJIT_CONFIG"), "Path to an HCL settings file. Defaults to $BRAINJIT_CONFIG.")
	cacheFlag := flagSet.String("cache", env.Str("BRAINJIT_CACHE"), "Path to the SQLite compile cache. Defaults to $BRAINJIT_CACHE.")
	tapeFlag := flagSet.Uint("tape-size", 0, "Number of tape cells (overrides the settings file).")
	nestingFlag := flagSet.Int("max-nesting", 0, "Maximum loop nesting, 0 for unlimited (overrides the settings file).")
	stepsFlag := flagSet.Uint64("max-steps", 0, "Maximum branches per run, 0 for unlimited (overrides the settings file).")
	logFormatFlag := flagSet.String("log-format", env.Str("BRAINJIT_LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", env.Str("BRAINJIT_LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No input provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, false, usageError("missing INPUT argument")
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError(fmt.Sprintf("expected one INPUT argument, got %d", flagSet.NArg()))
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	cfg := app.Config{
		InputPath:  flagSet.Arg(0),
		OutputPath: *outputFlag,
		Print:      *printFlag,
		JIT:        *jitFlag,
		Optimize:   *optFlag,
		ConfigPath: *configFlag,
		CachePath:  *cacheFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	}

	// Numeric flags only override the settings file when given explicitly.
	var rangeErr error
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tape-size":
			if *tapeFlag > 1<<31-1 {
				rangeErr = fmt.Errorf("tape-size %d is too large", *tapeFlag)
				return
			}
			size := uint32(*tapeFlag)
			cfg.TapeSize = &size
		case "max-nesting":
			cfg.MaxNesting = nestingFlag
		case "max-steps":
			cfg.MaxSteps = stepsFlag
		}
	})
	if rangeErr != nil {
		return nil, false, usageError(rangeErr.Error())
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError(err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "input", config.InputPath, "mode", config.Mode().String())
	return config, false, nil
}
