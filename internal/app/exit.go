package app

import (
	"errors"

	"github.com/vk/brainjit/internal/compiler"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitInput        = 3
	ExitSyntax       = 4
	ExitVerification = 5
	ExitBackend      = 6
	ExitResource     = 7
)

// ErrInvalidSettings marks failures to load or apply the settings file.
var ErrInvalidSettings = errors.New("invalid settings")

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrInvalidSettings) {
		return ExitUsage
	}
	switch compiler.KindOf(err) {
	case compiler.KindInput:
		return ExitInput
	case compiler.KindSyntax:
		return ExitSyntax
	case compiler.KindVerification:
		return ExitVerification
	case compiler.KindBackend:
		return ExitBackend
	case compiler.KindResource:
		return ExitResource
	}
	return ExitFailure
}
