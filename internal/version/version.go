// Package version provides build-time version information and the
// server API compatibility check. Variables are injected at build time
// via ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// MinServerVersion is the oldest backend API version this client
// understands (the listing pagination summary changed in 1.2.0).
const MinServerVersion = "1.2.0"

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("Hearthview %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, runtime.Version())
}

// Short returns just the version string (e.g., "0.3.0" or "dev").
func Short() string {
	return Version
}

// Map returns version info as a map for JSON serialization.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

// Compatible reports whether the server's reported API version meets
// MinServerVersion. An unparseable server version is treated as
// incompatible.
func Compatible(server string) bool {
	v := canonical(server)
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, canonical(MinServerVersion)) >= 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
