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
	"math"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// unlimited is what memory.max reads when a cgroup sets no limit.
const unlimited uint64 = math.MaxUint64

// MemoryStats is the memory budget of the process and the host usage.
type MemoryStats struct {
	// Limit is the cgroup memory limit, or the host memory when the process
	// runs without one.
	Limit uint64
	// FromCgroup is true if Limit was read from a cgroup.
	FromCgroup bool
	// Used is the memory in use on the host.
	Used uint64
	// UsedPercent is Used as a percentage of the host memory.
	UsedPercent float64
}

// GetMemoryLimit returns the cgroup memory limit of the process. Without a
// cgroup limit it returns the total memory of the host.
func GetMemoryLimit() (uint64, bool, error) {
	limit, err := memlimit.FromCgroup()
	if err == nil && limit != unlimited && limit > 0 {
		return limit, true, nil
	}
	log.Debug("no cgroup memory limit", zap.Error(err))
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, false, errors.Trace(err)
	}
	return stat.Total, false, nil
}

// ReadMemoryStats reads the memory limit and the host memory usage.
func ReadMemoryStats() (MemoryStats, error) {
	limit, fromCgroup, err := GetMemoryLimit()
	if err != nil {
		return MemoryStats{}, err
	}
	stat, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, errors.Trace(err)
	}
	return MemoryStats{
		Limit:       limit,
		FromCgroup:  fromCgroup,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// HasHeadroom returns true if less than maxPercent of the host memory is in
// use.
func (s MemoryStats) HasHeadroom(maxPercent float64) bool {
	return s.UsedPercent < maxPercent
}
