package testsupport

import (
	"testing"

	"ocrcache/internal/config"
	"ocrcache/internal/jobs"
	"ocrcache/internal/logging"
	"ocrcache/internal/resultcache"
)

// MustOpenJobs opens the job history for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg.Jobs.Path)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewCache builds a result cache from cfg with a silent logger.
func NewCache(t testing.TB, cfg *config.Config) *resultcache.Cache {
	t.Helper()
	return resultcache.New(resultcache.OptionsFromConfig(cfg), logging.NewNop())
}
