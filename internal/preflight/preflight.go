package preflight

import (
	"context"
	"path/filepath"

	"ocrcache/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// minCacheFreeBytes is the free space below which the cache volume check fails.
const minCacheFreeBytes = 64 << 20

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Cache.Enabled {
		results = append(results,
			CheckDirectoryAccess("Cache directory", cfg.Cache.Dir),
			CheckDiskSpace("Cache volume", cfg.Cache.Dir, minCacheFreeBytes),
		)
		if cfg.Cache.CrossProcessLock {
			results = append(results, CheckDirectoryAccess("Lock directory", cfg.Cache.LockDir))
		}
	}

	if cfg.Jobs.Enabled {
		results = append(results, CheckDirectoryAccess("Job history directory", filepath.Dir(cfg.Jobs.Path)))
	}

	results = append(results, CheckEngine(ctx, cfg.Recognition.Engine))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
