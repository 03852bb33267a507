//go:build unix

package mirror

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess runs the tool in its own process group so cancellation
// also reaches any helpers it spawns.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
