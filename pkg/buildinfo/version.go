// Package buildinfo holds version information stamped in at link time:
//
//	go build -ldflags "-X github.com/matzehuels/rankbars/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/rankbars/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/rankbars/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/rankbars
package buildinfo

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// String returns the build information on three lines.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, Commit, Date)
}
