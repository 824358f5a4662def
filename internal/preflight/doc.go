// Package preflight checks that the index and catalog locations are usable
// before hemin writes to them.
//
// The checks cover free disk space, write permissions of the index and
// catalog directories, the index lock and the open file limit:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Targets{IndexPath: p, CatalogPath: c})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to ingest
//	}
package preflight
