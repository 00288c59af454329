// Package jobs persists the history of recognition requests in SQLite.
//
// Every call to the recognition runner records one row: which file was
// processed, with which settings and cache key, whether the result came from
// the cache, how long it took and how it ended. The store backs the
// /jobs API endpoints and the `ocrcache jobs` commands.
//
// The schema is versioned. Opening a database written by an incompatible
// version fails with ErrSchemaMismatch instead of migrating in place.
package jobs
