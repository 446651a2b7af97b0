// Package version reports the build version. Both values are set at build time:
//
//	go build -ldflags "-X github.com/ramonehamilton/swu-binder/internal/version.Version=v0.3.0 -X github.com/ramonehamilton/swu-binder/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

// Version is the application version.
var Version = "dev"

// Commit is the source revision the binary was built from.
var Commit = "unknown"

// String returns "Version (Commit)", or just Version when the commit is unknown.
func String() string {
	if Commit == "" || Commit == "unknown" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
