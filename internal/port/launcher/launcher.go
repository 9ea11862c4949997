// Package launcher defines the terminal launcher port (interface) used by the
// fork lifecycle manager to open a command in a new terminal window.
package launcher

import (
	"context"
	"fmt"
)

// Result describes a successfully opened terminal.
type Result struct {
	// PID is the process id of the spawned terminal, when the platform exposes one.
	PID *int
	// Terminal names the emulator or tool that was used (e.g. "gnome-terminal").
	Terminal string
}

// LaunchError reports why a terminal could not be opened.
type LaunchError struct {
	Reason string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Launcher opens a shell command in a new terminal window.
type Launcher interface {
	// Name returns the variant identifier (e.g. "linux", "darwin").
	Name() string

	// Launch runs shellCommand in workDir inside a new terminal window.
	// Implementations return *LaunchError on failure.
	Launch(ctx context.Context, shellCommand, workDir string) (Result, error)
}

// Killer sends a platform kill signal to a process.
type Killer interface {
	Kill(ctx context.Context, pid int) error
}

// Options carries host preferences into launcher factories.
type Options struct {
	// PreferredTerminal is tried first on platforms that probe for emulators.
	PreferredTerminal string
}
