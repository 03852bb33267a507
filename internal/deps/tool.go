package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveMirrorTool reports where the mirroring tool will be executed from.
//
// A bare name is resolved on PATH first. On Windows robocopy ships in
// %SystemRoot%\System32, which services launched without a full PATH may
// not see, so that directory is tried as a fallback.
func ResolveMirrorTool(binary string) Status {
	result := Status{
		Name:        "Mirroring tool",
		Description: "Performs the directory mirroring",
	}

	name := strings.TrimSpace(binary)
	if name == "" {
		result.Detail = "command not configured"
		return result
	}

	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	if candidate, ok := systemCandidate(name); ok {
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func systemCandidate(name string) (string, bool) {
	if runtime.GOOS != "windows" || filepath.IsAbs(name) {
		return "", false
	}
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = `C:\Windows`
	}
	if filepath.Ext(name) == "" {
		name += ".exe"
	}
	return filepath.Join(root, "System32", name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
