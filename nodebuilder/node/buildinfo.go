package node

import (
	"fmt"
	"runtime"
)

const emptyValue = "unknown"

// set with -ldflags on build
var (
	buildTime       string
	lastCommit      string
	semanticVersion string
)

// BuildInfo stores all necessary information for the current build.
type BuildInfo struct {
	BuildTime       string
	LastCommit      string
	SemanticVersion string
	SystemVersion   string
	GolangVersion   string
}

// GetBuildInfo returns the information about the running binary.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		BuildTime:       buildTime,
		LastCommit:      lastCommit,
		SemanticVersion: semanticVersion,
		SystemVersion:   fmt.Sprintf("%s/%s", runtime.GOARCH, runtime.GOOS),
		GolangVersion:   runtime.Version(),
	}
}

// GetSemanticVersion returns the semantic version with a leading v, or unknown.
func (b *BuildInfo) GetSemanticVersion() string {
	if b.SemanticVersion == "" {
		return emptyValue
	}
	return fmt.Sprintf("v%s", b.SemanticVersion)
}

// CommitShortSha returns the first 7 characters of the last commit.
func (b *BuildInfo) CommitShortSha() string {
	if b.LastCommit == "" {
		return emptyValue
	}
	if len(b.LastCommit) < 7 {
		return b.LastCommit
	}
	return b.LastCommit[:7]
}
