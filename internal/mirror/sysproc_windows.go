//go:build windows

package mirror

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureProcess keeps the tool from opening a console window.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
