// Package terminal implements launcher.Launcher for macOS, Windows and Linux
// desktops. Each variant registers itself with the launcher port so the host
// picks one at startup by runtime.GOOS.
package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Strob0t/promptbox/internal/port/launcher"
)

func init() {
	launcher.Register("darwin", func(_ launcher.Options) (launcher.Launcher, launcher.Killer, error) {
		return NewDarwin(), &Killer{}, nil
	})
	launcher.Register("windows", func(_ launcher.Options) (launcher.Launcher, launcher.Killer, error) {
		return NewWindows(), &Killer{windows: true}, nil
	})
	launcher.Register("linux", func(opts launcher.Options) (launcher.Launcher, launcher.Killer, error) {
		return NewLinux(opts.PreferredTerminal), &Killer{}, nil
	})
}

// runner abstracts process creation so launchers can be tested without
// opening windows.
type runner interface {
	LookPath(file string) (string, error)
	// Start starts cmd detached from the caller and returns its pid.
	Start(cmd *exec.Cmd) (int, error)
	// Output runs cmd to completion and returns its combined output.
	Output(cmd *exec.Cmd) ([]byte, error)
}

type osRunner struct{}

func (osRunner) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osRunner) Start(cmd *exec.Cmd) (int, error) {
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }() // reap
	return pid, nil
}

func (osRunner) Output(cmd *exec.Cmd) ([]byte, error) { return cmd.CombinedOutput() }

// resolveWorkDir defaults an empty dir to the process working directory.
func resolveWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", &launcher.LaunchError{Reason: "resolve working directory", Err: err}
	}
	return wd, nil
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Killer terminates a spawned terminal by pid using the platform command.
type Killer struct {
	windows bool
	run     runner
}

// Kill sends `kill <pid>`, or `taskkill /F /PID <pid>` on Windows.
func (k *Killer) Kill(ctx context.Context, pid int) error {
	r := k.run
	if r == nil {
		r = osRunner{}
	}

	var cmd *exec.Cmd
	if k.windows {
		cmd = exec.CommandContext(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid))
	} else {
		cmd = exec.CommandContext(ctx, "kill", strconv.Itoa(pid))
	}
	if out, err := r.Output(cmd); err != nil {
		return fmt.Errorf("kill %d: %w: %s", pid, err, strings.TrimSpace(string(out)))
	}
	return nil
}
