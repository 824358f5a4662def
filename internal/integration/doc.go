// Package integration holds end-to-end tests that run the ingestion
// pipeline against an on-disk index and catalog and read the results back
// through the HTTP and MCP surfaces.
package integration
