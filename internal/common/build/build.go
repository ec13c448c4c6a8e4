// Package build holds build information that is set at link time, e.g.,
//
//	go build -ldflags "-X github.com/armadaproject/loadgate/internal/common/build.GitCommit=$(git rev-parse HEAD)"
package build

import "runtime"

var (
	// ReleaseVersion is the semantic version of the release, or "UNKNOWN_VERSION" for development builds.
	ReleaseVersion = "UNKNOWN_VERSION"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "UNKNOWN_GITCOMMIT"
	// BuildTime is the time the binary was built at.
	BuildTime = "UNKNOWN_BUILDTIME"
	// GoVersion is the version of the Go toolchain used for the build.
	GoVersion = runtime.Version()
)
