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

package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageConstructors(t *testing.T) {
	t.Parallel()

	require.Equal(t, Message[int]{Tp: TypeValue, Value: 1}, ValueMessage(1))
	require.Equal(t, Message[string]{Tp: TypeTimer, Value: "t", ScheduleID: 3}, TimerMessage(3, "t"))
	require.Equal(t, Message[string]{Tp: TypeTick, Value: "t", ScheduleID: 4}, TickMessage(4, "t"))
	require.Equal(t, TypeStart, StartMessage[int]().Tp)
	require.Equal(t, TypeStop, StopMessage[int]().Tp)
}

func TestMessageKinds(t *testing.T) {
	t.Parallel()

	require.True(t, ValueMessage(1).HasValue())
	require.True(t, TimerMessage(1, 1).HasValue())
	require.True(t, TickMessage(1, 1).HasValue())
	require.False(t, StartMessage[int]().HasValue())
	require.False(t, StopMessage[int]().HasValue())

	require.True(t, TypeStart.IsSystem())
	require.True(t, TypeStop.IsSystem())
	require.False(t, TypeTick.IsSystem())
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "value", TypeValue.String())
	require.Equal(t, "tick", TypeTick.String())
	require.Equal(t, "unknown", Type(100).String())
	require.Equal(t, "unknown", Type(-1).String())
}
