// Copyright 2024 The Vanta Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Version information, set by the linker.
var (
	ReleaseVersion = "None"
	BuildTS        = "None"
	GitHash        = "None"
	GitBranch      = "None"
	GoVersion      = "None"
)

// gitDescribeSuffix matches what `git describe` appends to the nearest tag.
var gitDescribeSuffix = regexp.MustCompile(`-[0-9]+-g[0-9a-f]{7,}(-dev)?`)

// Info describes the running build.
type Info struct {
	ReleaseVersion string `json:"release_version"`
	Semver         string `json:"semver,omitempty"`
	GitHash        string `json:"git_hash"`
	GitBranch      string `json:"git_branch"`
	BuildTS        string `json:"utc_build_time"`
	GoVersion      string `json:"go_version"`
}

// GetInfo returns the build information. GoVersion falls back to the
// version of the running toolchain when the linker did not set it.
func GetInfo() Info {
	goVersion := GoVersion
	if goVersion == "None" {
		goVersion = runtime.Version()
	}
	return Info{
		ReleaseVersion: ReleaseVersion,
		Semver:         ReleaseSemver(),
		GitHash:        GitHash,
		GitBranch:      GitBranch,
		BuildTS:        BuildTS,
		GoVersion:      goVersion,
	}
}

// ReleaseSemver returns the semantic version of ReleaseVersion, or an empty
// string if it is not a release build.
func ReleaseSemver() string {
	v, err := semver.NewVersion(trimRelease(ReleaseVersion))
	if err != nil {
		return ""
	}
	return v.String()
}

// LogVersionInfo logs the build of app.
func LogVersionInfo(app string) {
	info := GetInfo()
	log.Info("Welcome to Vanta",
		zap.String("app", app),
		zap.String("release-version", info.ReleaseVersion),
		zap.String("git-hash", info.GitHash),
		zap.String("git-branch", info.GitBranch),
		zap.String("utc-build-time", info.BuildTS),
		zap.String("go-version", info.GoVersion),
	)
}

// GetRawInfo returns the build information as printed by `vanta version`.
func GetRawInfo() string {
	info := GetInfo()
	var b strings.Builder
	fmt.Fprintf(&b, "Release Version: %s\n", info.ReleaseVersion)
	fmt.Fprintf(&b, "Git Commit Hash: %s\n", info.GitHash)
	fmt.Fprintf(&b, "Git Branch: %s\n", info.GitBranch)
	fmt.Fprintf(&b, "UTC Build Time: %s\n", info.BuildTS)
	fmt.Fprintf(&b, "Go Version: %s\n", info.GoVersion)
	return b.String()
}

// trimRelease turns "v1.2.0-3-gabcdef0-dirty" into "1.2.0".
func trimRelease(v string) string {
	v = gitDescribeSuffix.ReplaceAllLiteralString(v, "")
	v = strings.TrimSuffix(v, "-dirty")
	return strings.TrimPrefix(v, "v")
}
