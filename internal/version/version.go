package version

import "fmt"

// Build-time variables set by ldflags:
//
//	-X github.com/MeKo-Tech/ticketscan/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version, commit and build date.
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build information for --version output.
func String() string {
	return fmt.Sprintf("ticketscan %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
