package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the released version of the service.
// Override at build time:
//
//	go build -ldflags "-X github.com/hrygo/triage/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// DevVersion is reported in dev and demo mode.
var DevVersion = Version

// GitCommit is the commit hash at build time.
var GitCommit = "unknown"

// GitBranch is the branch at build time.
var GitBranch = "unknown"

// BuildTime is the RFC3339 build timestamp.
var BuildTime = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// Canonical normalizes a "major.minor.patch" revision string (with or
// without the leading "v") and reports whether it is valid semver.
// Routing tables carry such a revision.
func Canonical(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	return strings.TrimPrefix(semver.Canonical(v), "v"), true
}

// IsVersionGreaterOrEqualThan returns true if version >= target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > -1
}

// String returns the version with a short commit suffix when known.
func String() string {
	v := Version
	if GitCommit != "" && GitCommit != "unknown" {
		v = fmt.Sprintf("%s-%s", v, shortCommit())
	}
	return v
}

// StringFull returns the version plus build metadata.
func StringFull() string {
	parts := []string{fmt.Sprintf("Version=%s", Version)}
	if GitCommit != "" && GitCommit != "unknown" {
		parts = append(parts, fmt.Sprintf("Commit=%s", shortCommit()))
	}
	if GitBranch != "" && GitBranch != "unknown" {
		parts = append(parts, fmt.Sprintf("Branch=%s", GitBranch))
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, fmt.Sprintf("BuildTime=%s", BuildTime))
	}
	return strings.Join(parts, " ")
}

func shortCommit() string {
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}
