package mirror

import (
	"fmt"
	"time"
)

// Kind classifies one execution attempt.
type Kind int

const (
	Success Kind = iota
	Warning
	Failed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Warning:
		return "warning"
	default:
		return "failed"
	}
}

// Outcome is the classified result of one tool invocation. FilesCopied and
// BytesTransferred are only populated for Success.
type Outcome struct {
	Kind             Kind
	FilesCopied      int64
	BytesTransferred int64
	Message          string
	ExitCode         int
	Duration         time.Duration
}

// Failure builds a Failed outcome for attempts that never reached the tool.
func Failure(format string, args ...any) Outcome {
	return Outcome{Kind: Failed, Message: fmt.Sprintf(format, args...), ExitCode: -1}
}

var warningMessages = map[int]string{
	2: "Extra files/dirs in destination",
	3: "Files copied + extra files in dest",
	4: "Some mismatched files/dirs",
	5: "Files copied + some mismatched",
	6: "Extra + mismatched files",
	7: "Files copied + extra + mismatched",
}

// Classify maps a tool exit status to an outcome kind and message.
func Classify(exitCode int) (Kind, string) {
	switch {
	case exitCode == 0:
		return Success, "No changes"
	case exitCode == 1:
		return Success, "Files copied"
	case exitCode >= 2 && exitCode <= 7:
		return Warning, warningMessages[exitCode]
	default:
		return Failed, fmt.Sprintf("Mirroring tool failed (exit code %d)", exitCode)
	}
}
