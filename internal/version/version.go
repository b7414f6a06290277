// Package version exposes build-time version metadata.
//
// The variables are meant to be set through ldflags at release time:
//
//	go build -ldflags "-X github.com/yorickpeterse/wobsite/internal/version.Version=v1.2.0"
package version

// Version is the release version, "unknown" for untagged builds.
var Version = "unknown"

// Additional build metadata, also set through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version, including the commit when one is known.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}

	return Version + " (" + GitCommit + ")"
}
