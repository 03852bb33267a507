//go:build unix

package daemonctl

import (
	"os/exec"
	"syscall"
)

// detach puts the daemon in its own session so it outlives the CLI.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
