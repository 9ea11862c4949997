//go:build windows

package terminal

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// detach starts cmd in a new process group so it survives the server.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}
