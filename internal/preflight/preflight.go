package preflight

import (
	"context"

	"mirrorvault/internal/config"
	"mirrorvault/internal/pairs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory and tool checks, then a free-space check for
// each enabled pair's destination.
func RunAll(ctx context.Context, cfg *config.Config, settings pairs.Settings) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}

	for _, p := range settings.EnabledPairs() {
		results = append(results, CheckDestinationSpace(ctx, "Destination "+p.DisplayName(), p.Destination))
	}

	return results
}
