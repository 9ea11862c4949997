//go:build !windows

package terminal

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own session so it survives the server.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
