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

package workerpool

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	totalWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vanta",
			Subsystem: "workerpool",
			Name:      "number_of_workers",
			Help:      "The number of fixed workers (lanes) of an executor.",
		}, []string{"name", "kind"})
	workingWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vanta",
			Subsystem: "workerpool",
			Name:      "number_of_working_workers",
			Help:      "The number of goroutines currently running a task.",
		}, []string{"name", "kind"})
	workingDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vanta",
			Subsystem: "workerpool",
			Name:      "workers_cpu_seconds_total",
			Help:      "Total working time spent in seconds.",
		}, []string{"name", "kind"})
	pendingTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vanta",
			Subsystem: "workerpool",
			Name:      "pending_tasks",
			Help:      "The number of submitted tasks that have not started yet.",
		}, []string{"name", "kind"})
	scheduledTimers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vanta",
			Subsystem: "workerpool",
			Name:      "scheduled_timers",
			Help:      "The number of live one-shot and periodic timers.",
		}, []string{"name", "kind"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(totalWorkers)
	registry.MustRegister(workingWorkers)
	registry.MustRegister(workingDuration)
	registry.MustRegister(pendingTasks)
	registry.MustRegister(scheduledTimers)
}

type poolMetrics struct {
	name, kind      string
	totalWorkers    prometheus.Gauge
	workingWorkers  prometheus.Gauge
	workingDuration prometheus.Counter
	pendingTasks    prometheus.Gauge
	scheduledTimers prometheus.Gauge
}

func newPoolMetrics(name string, kind Kind) *poolMetrics {
	k := kind.String()
	return &poolMetrics{
		name:            name,
		kind:            k,
		totalWorkers:    totalWorkers.WithLabelValues(name, k),
		workingWorkers:  workingWorkers.WithLabelValues(name, k),
		workingDuration: workingDuration.WithLabelValues(name, k),
		pendingTasks:    pendingTasks.WithLabelValues(name, k),
		scheduledTimers: scheduledTimers.WithLabelValues(name, k),
	}
}

func (m *poolMetrics) cleanup() {
	totalWorkers.DeleteLabelValues(m.name, m.kind)
	workingWorkers.DeleteLabelValues(m.name, m.kind)
	workingDuration.DeleteLabelValues(m.name, m.kind)
	pendingTasks.DeleteLabelValues(m.name, m.kind)
	scheduledTimers.DeleteLabelValues(m.name, m.kind)
}
