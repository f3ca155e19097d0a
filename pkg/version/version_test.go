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
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReleaseSemver(t *testing.T) {
	cases := []struct{ releaseVersion, releaseSemver string }{
		{"None", ""},
		{"HEAD", ""},
		{"v1.2.0", "1.2.0"},
		{"v1.2.0-rc.1", "1.2.0-rc.1"},
		{"v1.2.0-rc.1-dirty", "1.2.0-rc.1"},
		{"v1.2.0-12-g6f3b2a1c", "1.2.0"},
		{"v1.2.0-alpha-12-g6f3b2a1c-dirty", "1.2.0-alpha"},
	}

	for _, cs := range cases {
		ReleaseVersion = cs.releaseVersion
		require.Equal(t, cs.releaseSemver, ReleaseSemver(), "%v", cs)
	}
	ReleaseVersion = "None"
}

func TestGetRawInfo(t *testing.T) {
	info := GetRawInfo()
	require.Contains(t, info, "Release Version: None")
	require.Contains(t, info, "Go Version: "+runtime.Version())
}

func TestGetInfo(t *testing.T) {
	ReleaseVersion = "v0.3.1-4-g1a2b3c4d"
	GoVersion = "go1.21.0"
	defer func() {
		ReleaseVersion = "None"
		GoVersion = "None"
	}()

	info := GetInfo()
	require.Equal(t, "v0.3.1-4-g1a2b3c4d", info.ReleaseVersion)
	require.Equal(t, "0.3.1", info.Semver)
	require.Equal(t, "go1.21.0", info.GoVersion)
	require.Equal(t, "None", info.GitHash)
}
