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

package util

import (
	"bytes"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/config"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/leakutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "vanta.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStrictDecodeValidFile(t *testing.T) {
	path := writeConfig(t, `
name = "lobby"
strategy = "sharded"
parallelism = 4
shutdown-timeout = "3s"
status-addr = "127.0.0.1:18300"

[log]
level = "debug"
max-size = 200
max-days = 1
max-backups = 1

[actor]
mailbox-capacity = 128
mailbox-offer-timeout = "50ms"
supervise-exceptions = false
continue-on-exception = false
throughput = 16
`)

	conf := config.GetDefaultServerConfig()
	require.NoError(t, StrictDecodeFile(path, "test", conf))
	require.NoError(t, conf.ValidateAndAdjust())

	require.Equal(t, "lobby", conf.Name)
	require.Equal(t, 4, conf.Parallelism)
	require.Equal(t, config.TomlDuration(3*time.Second), conf.ShutdownTimeout)
	require.Equal(t, "debug", conf.Log.Level)
	require.Equal(t, 1, conf.Log.FileMaxBackups)
	require.Equal(t, 128, conf.Actor.MailboxCapacity)
	require.Equal(t, config.TomlDuration(50*time.Millisecond), conf.Actor.MailboxOfferTimeout)
	require.False(t, conf.Actor.SuperviseExceptions)
	require.False(t, conf.Actor.ContinueOnException)
	require.Equal(t, 16, conf.Actor.Throughput)
}

func TestStrictDecodeInvalidFile(t *testing.T) {
	path := writeConfig(t, `
unknown = "127.0.0.1:1234"

[log.unknown]
max-size = 200
`)

	conf := config.GetDefaultServerConfig()
	err := StrictDecodeFile(path, "test", conf)
	require.Error(t, err)
	require.Regexp(t, ".*contained unknown configuration options: .*log.unknown.*", err.Error())
}

func TestIgnoreStrictCheckItem(t *testing.T) {
	path := writeConfig(t, `
name = "lobby"
[unknown]
max-size = 200
`)

	conf := config.GetDefaultServerConfig()
	require.NoError(t, StrictDecodeFile(path, "test", conf, "unknown"))
	require.Equal(t, "lobby", conf.Name)

	path = writeConfig(t, `
[unknown]
max-size = 200
[unknown2]
max-size = 200
`)
	err := StrictDecodeFile(path, "test", conf, "unknown")
	require.Regexp(t, ".*contained unknown configuration options: unknown2.*", err.Error())
}

func TestStrictDecodeMalformedFile(t *testing.T) {
	path := writeConfig(t, `name = `)
	conf := config.GetDefaultServerConfig()
	require.Error(t, StrictDecodeFile(path, "test", conf))
}

func TestJSONPrint(t *testing.T) {
	cmd := new(cobra.Command)
	type testStruct struct {
		A string `json:"a"`
	}

	var b bytes.Buffer
	cmd.SetOut(&b)

	require.NoError(t, JSONPrint(cmd, &testStruct{A: "string"}))

	output := `{
  "a": "string"
}
`
	require.Equal(t, output, b.String())
}

func TestStrictDecodeErrorCodes(t *testing.T) {
	conf := config.GetDefaultServerConfig()

	err := StrictDecodeFile(writeConfig(t, `typo = 1`), "test", conf)
	require.True(t, cerrors.ErrUnknownConfigOption.Equal(err), "%v", err)

	err = StrictDecodeFile(writeConfig(t, `name = `), "test", conf)
	require.True(t, stdErrors.Is(err, cerrors.ErrDecodeFailed), "%v", err)

	err = StrictDecodeFile(filepath.Join(t.TempDir(), "missing.toml"), "test", conf)
	require.Error(t, err)
}
