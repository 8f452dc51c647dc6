package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

// stubBuild pins the package variables and the embedded build info.
func stubBuild(t *testing.T, version, commit, date string, settings ...debug.BuildSetting) {
	t.Helper()
	origVersion, origCommit, origDate, origRead := Version, Commit, BuildDate, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, BuildDate, readBuildInfo = origVersion, origCommit, origDate, origRead
	})
	Version, Commit, BuildDate = version, commit, date
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		name     string
		commit   string
		settings []debug.BuildSetting
		want     string
	}{
		{"no commit", "", nil, "1.0.0"},
		{"ldflags commit", "abc1234567890", nil, "1.0.0 (abc1234)"},
		{"short ldflags commit", "abc", nil, "1.0.0 (abc)"},
		{"vcs stamp", "", []debug.BuildSetting{{Key: "vcs.revision", Value: "deadbeefcafe"}}, "1.0.0 (deadbee)"},
		{"ldflags win", "1234567890", []debug.BuildSetting{{Key: "vcs.revision", Value: "deadbeefcafe"}}, "1.0.0 (1234567)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubBuild(t, "1.0.0", tt.commit, "", tt.settings...)
			if got := Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	stubBuild(t, "1.2.3", "", "", debug.BuildSetting{Key: "vcs.time", Value: "2026-01-15T10:00:00Z"})

	got := Full()
	for _, part := range []string{
		"subagents version 1.2.3",
		"Commit: unknown",
		"Built: 2026-01-15T10:00:00Z",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
}

func TestServer(t *testing.T) {
	info := Server()
	if info.Name != Name || info.Version != Version {
		t.Errorf("Server() = %+v", info)
	}
}
