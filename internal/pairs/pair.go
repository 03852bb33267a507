package pairs

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Pair is one source to destination mirroring relationship.
type Pair struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`
}

// NewPair returns an enabled pair with a fresh identifier.
func NewPair(source, destination string) Pair {
	return Pair{
		ID:          uuid.NewString(),
		Source:      strings.TrimSpace(source),
		Destination: strings.TrimSpace(destination),
		Enabled:     true,
	}
}

// DisplayName renders "<source base> → <destination base>".
func (p Pair) DisplayName() string {
	return baseName(p.Source) + " → " + baseName(p.Destination)
}

func baseName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return ""
	}
	// Windows paths are stored verbatim; split on either separator.
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return filepath.Base(trimmed)
}
