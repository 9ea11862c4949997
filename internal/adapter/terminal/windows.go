package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Strob0t/promptbox/internal/port/launcher"
)

// Windows writes a PowerShell script and opens it in a new PowerShell
// window. The reported pid is the launcher process.
type Windows struct {
	run     runner
	tempDir string
}

// NewWindows creates the Windows launcher.
func NewWindows() *Windows { return &Windows{run: osRunner{}} }

// Name implements launcher.Launcher.
func (w *Windows) Name() string { return "windows" }

// Launch implements launcher.Launcher.
func (w *Windows) Launch(_ context.Context, shellCommand, workDir string) (launcher.Result, error) {
	dir, err := resolveWorkDir(workDir)
	if err != nil {
		return launcher.Result{}, err
	}

	path, err := w.writeScript(powerShellScript(dir, shellCommand))
	if err != nil {
		return launcher.Result{}, &launcher.LaunchError{Reason: "write launch script", Err: err}
	}

	// Not bound to ctx: the window must outlive the request.
	cmd := exec.Command("powershell", "-Command", //nolint:gosec // G204: script path is generated
		fmt.Sprintf("Start-Process powershell -ArgumentList '-NoExit', '-ExecutionPolicy', 'Bypass', '-File', '%s'", path))
	pid, err := w.run.Start(cmd)
	if err != nil {
		return launcher.Result{}, &launcher.LaunchError{Reason: "start powershell", Err: err}
	}
	return launcher.Result{PID: &pid, Terminal: "powershell"}, nil
}

func (w *Windows) writeScript(body string) (string, error) {
	f, err := os.CreateTemp(w.tempDir, "promptbox-fork-*.ps1")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// powerShellScript renders the script run in the new window. Newlines in the
// command are flattened; single quotes are doubled for the literal.
func powerShellScript(dir, shellCommand string) string {
	single := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(shellCommand)
	quote := func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

	var b strings.Builder
	b.WriteString("Set-Location -Path " + quote(dir) + "\n")
	b.WriteString("Write-Host 'Starting fork...' -ForegroundColor Cyan\n")
	b.WriteString("Write-Host ''\n")
	b.WriteString("$cmd = " + quote(single) + "\n")
	b.WriteString("Write-Host \"Executing: $cmd\" -ForegroundColor DarkGray\n")
	b.WriteString("Write-Host ''\n")
	b.WriteString("Invoke-Expression $cmd\n")
	b.WriteString("Write-Host ''\n")
	b.WriteString("Write-Host 'Fork completed. Press any key to exit...' -ForegroundColor Gray\n")
	b.WriteString("$null = $Host.UI.RawUI.ReadKey('NoEcho,IncludeKeyDown')\n")
	return b.String()
}
