// Package version holds findex build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns a one-line build description for startup logs.
func String() string {
	return fmt.Sprintf("findex %s (%s, built %s)", Version, Commit, Date)
}
