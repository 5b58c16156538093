// Package version reports build information for the talky binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty" yaml:"dirty"`
}

// These variables are set at build time using -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	// BuildTime is RFC3339
	BuildTime = "unknown"
)

// GetBuildInfo returns build information, falling back to the module's
// embedded VCS settings when ldflags were not set.
func GetBuildInfo() *BuildInfo {
	settings := vcsSettings()

	return &BuildInfo{
		Version:   resolveVersion(Version, settings),
		GitCommit: resolveCommit(GitCommit, settings),
		BuildTime: parseBuildTime(BuildTime, settings["vcs.time"]),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}
}

// GetShortVersion returns a one-line version suitable for --version.
func GetShortVersion() string {
	info := GetBuildInfo()
	if info.GitCommit == "unknown" || len(info.GitCommit) < 7 {
		return info.Version
	}

	short := info.GitCommit[:7]
	if strings.HasPrefix(info.Version, "dev") {
		return "dev-" + short
	}
	return fmt.Sprintf("%s (%s)", info.Version, short)
}

// String renders the build info as "key: value" lines.
func (b *BuildInfo) String() string {
	lines := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "Built: "+b.BuildTime.UTC().Format(time.RFC3339))
	}
	if b.Dirty {
		lines = append(lines, "Working tree: dirty")
	}
	lines = append(lines, "Go: "+b.GoVersion, "Platform: "+b.Platform)

	return strings.Join(lines, "\n")
}

// IsRelease reports whether this is a tagged release build.
func (b *BuildInfo) IsRelease() bool {
	return !strings.HasPrefix(b.Version, "dev")
}

func vcsSettings() map[string]string {
	settings := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		settings["main.version"] = info.Main.Version
	}
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

func resolveVersion(version string, settings map[string]string) string {
	if version != "" && version != "dev" {
		return version
	}
	if v, ok := settings["main.version"]; ok {
		return v
	}
	if rev := settings["vcs.revision"]; len(rev) >= 7 {
		return "dev-" + rev[:7]
	}
	return "dev"
}

func resolveCommit(commit string, settings map[string]string) string {
	if commit != "" && commit != "unknown" {
		return commit
	}
	if rev := settings["vcs.revision"]; rev != "" {
		return rev
	}
	return "unknown"
}

// parseBuildTime returns the zero time when neither value parses.
func parseBuildTime(values ...string) time.Time {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, value := range values {
		if value == "" || value == "unknown" {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
