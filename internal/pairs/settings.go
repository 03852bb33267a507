package pairs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrIndexOutOfRange reports a pair-management command that referenced a
// position outside the pair list.
var ErrIndexOutOfRange = errors.New("pair index out of range")

// ErrValidation marks settings rejected before any mutation.
var ErrValidation = errors.New("invalid settings")

// Tool option bounds.
const (
	MinThreads          = 1
	MaxThreads          = 128
	MaxRetryCount       = 255
	MaxRetryWaitSeconds = 300
)

// ToolOptions are the parameters passed to every mirroring tool invocation.
type ToolOptions struct {
	MirrorMode       bool `json:"mirror_mode"`
	Threads          int  `json:"threads"`
	FatFileTiming    bool `json:"fat_file_timing"`
	RetryCount       int  `json:"retry_count"`
	RetryWaitSeconds int  `json:"retry_wait_seconds"`
}

// Validate checks the options against the tool's accepted ranges.
func (o ToolOptions) Validate() error {
	if o.Threads < MinThreads || o.Threads > MaxThreads {
		return fmt.Errorf("%w: threads must be between %d and %d", ErrValidation, MinThreads, MaxThreads)
	}
	if o.RetryCount < 0 || o.RetryCount > MaxRetryCount {
		return fmt.Errorf("%w: retry count must be between 0 and %d", ErrValidation, MaxRetryCount)
	}
	if o.RetryWaitSeconds < 0 || o.RetryWaitSeconds > MaxRetryWaitSeconds {
		return fmt.Errorf("%w: retry wait must be between 0 and %d seconds", ErrValidation, MaxRetryWaitSeconds)
	}
	return nil
}

// Settings is the persisted application configuration.
type Settings struct {
	Pairs                []Pair      `json:"backup_pairs"`
	CheckIntervalSeconds int         `json:"check_interval_seconds"`
	StartWithSystem      bool        `json:"start_with_system"`
	Tool                 ToolOptions `json:"tool"`
}

// Clone returns a deep copy safe to mutate.
func (s Settings) Clone() Settings {
	out := s
	out.Pairs = append([]Pair(nil), s.Pairs...)
	return out
}

// Validate checks global values and the pair list invariants. Filesystem
// checks on pair paths belong to pathcheck.
func (s Settings) Validate() error {
	if s.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrValidation)
	}
	if err := s.Tool.Validate(); err != nil {
		return err
	}
	return ValidatePairs(s.Pairs)
}

// ValidatePairs requires non-empty unique ids, distinct source and
// destination, and no two enabled pairs with the same paths.
func ValidatePairs(list []Pair) error {
	ids := make(map[string]int, len(list))
	tuples := make(map[[2]string]int, len(list))
	for i, p := range list {
		pos := i + 1
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("%w: pair %d has no id", ErrValidation, pos)
		}
		if prev, ok := ids[id]; ok {
			return fmt.Errorf("%w: pairs %d and %d share id %s", ErrValidation, prev, pos, id)
		}
		ids[id] = pos

		src, dst := cleanPath(p.Source), cleanPath(p.Destination)
		if src == "" || dst == "" {
			return fmt.Errorf("%w: pair %d needs a source and a destination", ErrValidation, pos)
		}
		if src == dst {
			return fmt.Errorf("%w: pair %d mirrors %s onto itself", ErrValidation, pos, p.Source)
		}
		if !p.Enabled {
			continue
		}
		key := [2]string{src, dst}
		if prev, ok := tuples[key]; ok {
			return fmt.Errorf("%w: pairs %d and %d have the same paths", ErrValidation, prev, pos)
		}
		tuples[key] = pos
	}
	return nil
}

func cleanPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return filepath.Clean(trimmed)
}

// Interval is the pause between scheduled ticks.
func (s Settings) Interval() time.Duration {
	seconds := s.CheckIntervalSeconds
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// EnabledPairs returns the enabled pairs in stored order.
func (s Settings) EnabledPairs() []Pair {
	out := make([]Pair, 0, len(s.Pairs))
	for _, p := range s.Pairs {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns the set of pair identifiers.
func (s Settings) IDs() []string {
	ids := make([]string, 0, len(s.Pairs))
	for _, p := range s.Pairs {
		ids = append(ids, p.ID)
	}
	return ids
}

// IndexOf returns the position of the pair with id, or -1.
func (s Settings) IndexOf(id string) int {
	for i, p := range s.Pairs {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Add appends p at the end of the list.
func (s *Settings) Add(p Pair) Pair {
	s.Pairs = append(s.Pairs, p)
	s.renumber()
	return s.Pairs[len(s.Pairs)-1]
}

// Update replaces the paths of the pair at index, keeping its identity.
func (s *Settings) Update(index int, source, destination string) (Pair, error) {
	if err := s.checkIndex(index); err != nil {
		return Pair{}, err
	}
	s.Pairs[index].Source = strings.TrimSpace(source)
	s.Pairs[index].Destination = strings.TrimSpace(destination)
	return s.Pairs[index], nil
}

// Remove deletes the pair at index.
func (s *Settings) Remove(index int) (Pair, error) {
	if err := s.checkIndex(index); err != nil {
		return Pair{}, err
	}
	removed := s.Pairs[index]
	s.Pairs = append(s.Pairs[:index], s.Pairs[index+1:]...)
	s.renumber()
	return removed, nil
}

// MoveUp swaps the pair at index with its predecessor. It reports whether
// anything moved; index 0 is a no-op.
func (s *Settings) MoveUp(index int) (bool, error) {
	if err := s.checkIndex(index); err != nil {
		return false, err
	}
	if index == 0 {
		return false, nil
	}
	s.Pairs[index], s.Pairs[index-1] = s.Pairs[index-1], s.Pairs[index]
	s.renumber()
	return true, nil
}

// MoveDown swaps the pair at index with its successor. The last index is a no-op.
func (s *Settings) MoveDown(index int) (bool, error) {
	if err := s.checkIndex(index); err != nil {
		return false, err
	}
	if index == len(s.Pairs)-1 {
		return false, nil
	}
	s.Pairs[index], s.Pairs[index+1] = s.Pairs[index+1], s.Pairs[index]
	s.renumber()
	return true, nil
}

// SetEnabled sets the enabled flag of the pair at index.
func (s *Settings) SetEnabled(index int, enabled bool) (Pair, error) {
	if err := s.checkIndex(index); err != nil {
		return Pair{}, err
	}
	s.Pairs[index].Enabled = enabled
	return s.Pairs[index], nil
}

func (s *Settings) checkIndex(index int) error {
	if index < 0 || index >= len(s.Pairs) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.Pairs))
	}
	return nil
}

// renumber keeps Priority equal to list position.
func (s *Settings) renumber() {
	for i := range s.Pairs {
		s.Pairs[i].Priority = i
	}
}
