package terminal

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Strob0t/promptbox/internal/port/launcher"
)

// Darwin opens commands in Terminal.app through AppleScript. It cannot
// report a pid.
type Darwin struct {
	run runner
}

// NewDarwin creates the macOS launcher.
func NewDarwin() *Darwin { return &Darwin{run: osRunner{}} }

// Name implements launcher.Launcher.
func (d *Darwin) Name() string { return "darwin" }

// Launch implements launcher.Launcher.
func (d *Darwin) Launch(ctx context.Context, shellCommand, workDir string) (launcher.Result, error) {
	dir, err := resolveWorkDir(workDir)
	if err != nil {
		return launcher.Result{}, err
	}

	cmd := exec.CommandContext(ctx, "osascript", "-e", appleScript(dir, shellCommand))
	if out, err := d.run.Output(cmd); err != nil {
		return launcher.Result{}, &launcher.LaunchError{
			Reason: fmt.Sprintf("osascript failed: %s", strings.TrimSpace(string(out))),
			Err:    err,
		}
	}
	return launcher.Result{Terminal: "Terminal.app"}, nil
}

// appleScript builds the do-script statement. Backslashes and double quotes
// are escaped for the AppleScript string literal.
func appleScript(dir, shellCommand string) string {
	full := "cd " + shellQuote(dir) + " && " + shellCommand
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(full)
	return `tell application "Terminal" to do script "` + escaped + `"`
}
