// Package version reports the build identity of the subagents binary.
package version

import (
	"runtime/debug"
	"strings"
)

// Overridable at build time:
// go build -ldflags "-X subagents/internal/version.Version=1.0.0 -X subagents/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = ""
	BuildDate = ""
)

// Name is reported to MCP clients during initialize.
const Name = "subagents"

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// vcs returns the commit and build time, preferring ldflags and falling
// back to the VCS stamp the go tool embeds.
func vcs() (commit, date string) {
	commit, date = Commit, BuildDate
	if commit != "" && date != "" {
		return commit, date
	}
	info, ok := readBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "":
			commit = s.Value
		case s.Key == "vcs.time" && date == "":
			date = s.Value
		}
	}
	return commit, date
}

// Short returns "X.Y.Z" or "X.Y.Z (abcdef1)" when a commit is known.
func Short() string {
	commit, _ := vcs()
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" {
		return Version
	}
	return Version + " (" + commit + ")"
}

// Full returns the multi-line output of "subagents version".
func Full() string {
	commit, date := vcs()
	var b strings.Builder
	b.WriteString(Name + " version " + Version + "\n")
	b.WriteString("Commit: " + orUnknown(commit) + "\n")
	b.WriteString("Built: " + orUnknown(date))
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ServerInfo is the serverInfo block of an initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server returns the identity advertised over MCP.
func Server() ServerInfo {
	return ServerInfo{Name: Name, Version: Version}
}
