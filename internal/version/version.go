// Package version carries build metadata injected with -ldflags.
package version

var (
	// Version is the release tag. Empty for development builds.
	Version = ""
	// Commit is the short git SHA the binary was built from.
	Commit = ""
)

// String renders the version for logs and the health endpoint:
// the release tag when set, otherwise "dev" or "dev-<sha>".
func String() string {
	switch {
	case Version != "":
		return Version
	case Commit != "":
		return "dev-" + Commit
	default:
		return "dev"
	}
}
