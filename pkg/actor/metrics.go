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

package actor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	aliveActors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vanta",
			Subsystem: "actor",
			Name:      "number_of_actors",
			Help:      "The number of actors that have not stopped in an actor system.",
		}, []string{"system"})
	processedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vanta",
			Subsystem: "actor",
			Name:      "processed_messages_total",
			Help:      "Total number of messages processed by behaviors.",
		}, []string{"system", "type"})
	behaviorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vanta",
			Subsystem: "actor",
			Name:      "behavior_failures_total",
			Help:      "Total number of behavior errors and recovered panics.",
		}, []string{"system"})
	mailboxRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vanta",
			Subsystem: "actor",
			Name:      "mailbox_rejections_total",
			Help:      "Total number of messages rejected by a full or closed mailbox.",
		}, []string{"system", "reason"})
	processDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vanta",
			Subsystem: "actor",
			Name:      "process_duration_seconds",
			Help:      "Bucketed histogram of the time spent by a behavior on one message.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20), // 10us ~ 5s
		}, []string{"system"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(aliveActors)
	registry.MustRegister(processedMessages)
	registry.MustRegister(behaviorFailures)
	registry.MustRegister(mailboxRejections)
	registry.MustRegister(processDuration)
}

type systemMetrics struct {
	system string

	aliveActors       prometheus.Gauge
	behaviorFailures  prometheus.Counter
	rejectionsFull    prometheus.Counter
	rejectionsClosed  prometheus.Counter
	processDuration   prometheus.Observer
	processedMessages *prometheus.CounterVec
}

func newSystemMetrics(system string) *systemMetrics {
	return &systemMetrics{
		system:            system,
		aliveActors:       aliveActors.WithLabelValues(system),
		behaviorFailures:  behaviorFailures.WithLabelValues(system),
		rejectionsFull:    mailboxRejections.WithLabelValues(system, "full"),
		rejectionsClosed:  mailboxRejections.WithLabelValues(system, "closed"),
		processDuration:   processDuration.WithLabelValues(system),
		processedMessages: processedMessages.MustCurryWith(prometheus.Labels{"system": system}),
	}
}

func (m *systemMetrics) cleanup() {
	aliveActors.DeleteLabelValues(m.system)
	behaviorFailures.DeleteLabelValues(m.system)
	mailboxRejections.DeleteLabelValues(m.system, "full")
	mailboxRejections.DeleteLabelValues(m.system, "closed")
	processDuration.DeleteLabelValues(m.system)
	processedMessages.DeletePartialMatch(prometheus.Labels{"system": m.system})
}
