// Package version reports build information for hemin.
package version

import (
	"fmt"
	"runtime"
)

// Version is set with -X github.com/mpgirro/hemin/pkg/version.Version at
// build time.
var Version = "dev"

var (
	// Commit is the short git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the toolchain that built the binary.
	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form of the version command.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	UserAgent string `json:"user_agent"`
}

// String returns the one-line version banner.
func String() string {
	return fmt.Sprintf("hemin %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns the bare version.
func Short() string {
	return Version
}

// UserAgent returns the HTTP User-Agent hemin sends to feed hosts.
func UserAgent() string {
	return fmt.Sprintf("hemin/%s (+https://github.com/mpgirro/hemin)", Version)
}

// GetInfo returns structured build information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		UserAgent: UserAgent(),
	}
}
