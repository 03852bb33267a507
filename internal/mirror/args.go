package mirror

import (
	"fmt"
	"strings"

	"mirrorvault/internal/pairs"
)

// BuildArgs renders tool options as switches. The trailing switches are
// fixed: no per-file progress, no directory listing, console plus log.
func BuildArgs(opts pairs.ToolOptions) []string {
	args := make([]string, 0, 8)
	if opts.MirrorMode {
		args = append(args, "/MIR")
	}
	args = append(args, fmt.Sprintf("/MT:%d", opts.Threads))
	if opts.FatFileTiming {
		args = append(args, "/FFT")
	}
	args = append(args,
		fmt.Sprintf("/R:%d", opts.RetryCount),
		fmt.Sprintf("/W:%d", opts.RetryWaitSeconds),
		"/NP",
		"/NDL",
		"/TEE",
	)
	return args
}

// PreviewCommand renders the exact command line Execute would run.
func PreviewCommand(binary, source, destination string, opts pairs.ToolOptions) string {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return fmt.Sprintf("%s %q %q %s", binary, source, destination, strings.Join(BuildArgs(opts), " "))
}
