// Package version holds the build identity reported by the CLI and the
// HTTP health endpoints.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at link time:
// go build -ldflags "-X sparqld/internal/version.Version=1.0.0 -X sparqld/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const shortCommit = 7

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Revision returns the commit the binary was built from: the linked Commit
// when set, otherwise the VCS revision the Go toolchain stamped, otherwise
// "unknown". A "-dirty" suffix marks a modified work tree.
func Revision() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return "unknown"
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "unknown"
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

// Info is the one-line version reported by /health, e.g. "0.4.0 (abc1234)".
func Info() string {
	rev := Revision()
	if rev == "unknown" {
		return Version
	}
	hash, dirty, _ := strings.Cut(rev, "-")
	if len(hash) > shortCommit {
		hash = hash[:shortCommit]
	}
	if dirty != "" {
		hash += "-" + dirty
	}
	return Version + " (" + hash + ")"
}

// Full is the multi-line text printed by `sparqld --version`.
func Full() string {
	return "sparqld version " + Version + "\n" +
		"Commit: " + Revision() + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}
