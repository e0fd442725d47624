package preflight

import (
	"context"

	"whispersub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes the filesystem and service checks for cfg. The translation
// check is skipped when skipNetwork is set.
func RunAll(ctx context.Context, cfg *config.Config, skipNetwork bool) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Runs directory", cfg.Paths.RunsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if !skipNetwork {
		results = append(results, CheckTranslation(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
