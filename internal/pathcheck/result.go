package pathcheck

import "strings"

// Level classifies a single validation result.
type Level int

const (
	Valid Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "valid"
	}
}

// Result is one validation verdict with an optional message.
type Result struct {
	Level   Level  `json:"level"`
	Message string `json:"message,omitempty"`
}

func ok() Result { return Result{Level: Valid} }

func warn(msg string) Result { return Result{Level: Warning, Message: msg} }

func fail(msg string) Result { return Result{Level: Error, Message: msg} }

// IsError reports whether the result blocks the change.
func (r Result) IsError() bool { return r.Level == Error }

func (r Result) IsWarning() bool { return r.Level == Warning }

func (r Result) String() string {
	if r.Message == "" {
		return r.Level.String()
	}
	return r.Level.String() + ": " + r.Message
}

// Report holds the three independent verdicts for a candidate pair.
type Report struct {
	Source      Result `json:"source"`
	Destination Result `json:"destination"`
	Cross       Result `json:"cross"`
}

// IsValid reports whether every verdict is Valid.
func (r Report) IsValid() bool {
	return r.Source.Level == Valid && r.Destination.Level == Valid && r.Cross.Level == Valid
}

// HasErrors reports whether any verdict blocks the change.
func (r Report) HasErrors() bool {
	return r.Source.IsError() || r.Destination.IsError() || r.Cross.IsError()
}

// Errors returns the blocking messages, prefixed with the field they concern.
func (r Report) Errors() []string {
	return r.collect(Error)
}

// Warnings returns advisory messages, prefixed with the field they concern.
func (r Report) Warnings() []string {
	return r.collect(Warning)
}

// Summary joins Errors (or Warnings when there are none) into one line.
func (r Report) Summary() string {
	if msgs := r.Errors(); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return strings.Join(r.Warnings(), "; ")
}

func (r Report) collect(level Level) []string {
	var out []string
	if r.Source.Level == level {
		out = append(out, "source: "+r.Source.Message)
	}
	if r.Destination.Level == level {
		out = append(out, "destination: "+r.Destination.Message)
	}
	if r.Cross.Level == level {
		out = append(out, r.Cross.Message)
	}
	return out
}
