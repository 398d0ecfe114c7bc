package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Full describes the build for --version output.
func Full() string {
	return fmt.Sprintf("xsg %s, commit %s, built at %s", Version, GitSHA, BuildTime)
}
