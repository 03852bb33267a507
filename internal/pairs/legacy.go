package pairs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// legacySettings is the JSON settings file written by earlier releases.
// Tool options lived under "robocopy" and a single pair could be stored
// in source_folder/destination_folder.
type legacySettings struct {
	Pairs                []Pair      `json:"backup_pairs"`
	SourceFolder         string      `json:"source_folder"`
	DestinationFolder    string      `json:"destination_folder"`
	CheckIntervalSeconds *int        `json:"check_interval_seconds"`
	StartWithWindows     *bool       `json:"start_with_windows"`
	StartWithSystem      *bool       `json:"start_with_system"`
	Robocopy             *legacyTool `json:"robocopy"`
}

type legacyTool struct {
	MirrorMode     *bool `json:"mirror_mode"`
	Multithreading *int  `json:"multithreading"`
	FatFileTiming  *bool `json:"fat_file_timing"`
	RetryCount     *int  `json:"retry_count"`
	RetryWait      *int  `json:"retry_wait"`
}

// ImportLegacy converts a legacy JSON settings file. Fields absent from the
// file keep their value from defaults. When the file has no pairs but names
// a single source and destination, that pair is migrated with a fresh id;
// migrated reports whether that happened.
func ImportLegacy(data []byte, defaults Settings) (settings Settings, migrated bool, err error) {
	var raw legacySettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, false, fmt.Errorf("parse legacy settings: %w", err)
	}

	settings = defaults.Clone()
	settings.Pairs = nil
	for _, p := range raw.Pairs {
		if strings.TrimSpace(p.ID) == "" {
			p.ID = NewPair(p.Source, p.Destination).ID
		}
		settings.Pairs = append(settings.Pairs, p)
	}
	if len(settings.Pairs) == 0 {
		src := strings.TrimSpace(raw.SourceFolder)
		dst := strings.TrimSpace(raw.DestinationFolder)
		if src != "" && dst != "" {
			settings.Pairs = append(settings.Pairs, NewPair(src, dst))
			migrated = true
		}
	}
	settings.renumber()

	if raw.CheckIntervalSeconds != nil {
		settings.CheckIntervalSeconds = *raw.CheckIntervalSeconds
	}
	switch {
	case raw.StartWithSystem != nil:
		settings.StartWithSystem = *raw.StartWithSystem
	case raw.StartWithWindows != nil:
		settings.StartWithSystem = *raw.StartWithWindows
	}
	if tool := raw.Robocopy; tool != nil {
		setIf(&settings.Tool.MirrorMode, tool.MirrorMode)
		setIf(&settings.Tool.Threads, tool.Multithreading)
		setIf(&settings.Tool.FatFileTiming, tool.FatFileTiming)
		setIf(&settings.Tool.RetryCount, tool.RetryCount)
		setIf(&settings.Tool.RetryWaitSeconds, tool.RetryWait)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, false, err
	}
	return settings, migrated, nil
}

func setIf[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}
