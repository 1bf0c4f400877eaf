package tui

import (
	"os"

	"golang.org/x/term"
)

// EnvNonInteractive forces non-interactive mode when set to "1".
const EnvNonInteractive = "PGSEED_NON_INTERACTIVE"

// Mode represents the interaction mode for pgseed.
type Mode int

const (
	// ModeNonInteractive is used for container init scripts, CI/CD pipelines and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether pgseed may prompt and animate.
//
// Returns ModeNonInteractive if:
//   - PGSEED_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - stdin is not a terminal (nobody can answer a prompt)
//   - stderr is not a terminal (prompts and progress are written there)
//
// Returns ModeInteractive otherwise.
func DetectMode() Mode {
	if os.Getenv(EnvNonInteractive) == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
