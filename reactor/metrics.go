/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the reactor's prometheus instrumentation. A Reactor with
// a nil *Metrics simply skips recording — metrics are entirely optional.
type Metrics struct {
	Queued      *prometheus.CounterVec
	Submitted   prometheus.Counter
	Completed   *prometheus.CounterVec
	Ignored     prometheus.Counter
	Tracked     prometheus.Gauge
	Staged      prometheus.Gauge
	WaitOutcome *prometheus.CounterVec
}

// NewMetrics registers a fresh set of reactor metrics on the default
// prometheus registry. Call it once per process; constructing more than
// one will panic on the duplicate registration, same as any other
// promauto-based package.
func NewMetrics() *Metrics {
	return &Metrics{
		Queued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "uring_reactor_operations_queued_total",
			Help: "counter of operations queued for submission to the ring, by opcode",
		}, []string{"opcode"}),
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "uring_reactor_operations_submitted_total",
			Help: "counter of staged entries actually pushed to the kernel submission queue",
		}),
		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "uring_reactor_completions_total",
			Help: "counter of completion queue entries observed, by whether the kernel signalled more are coming",
		}, []string{"more"}),
		Ignored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "uring_reactor_operations_ignored_total",
			Help: "counter of operations explicitly dropped by the caller before their terminal completion",
		}),
		Tracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "uring_reactor_tracked_operations",
			Help: "number of operations currently tracked by the reactor's state arena",
		}),
		Staged: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "uring_reactor_staged_operations",
			Help: "number of operations queued but not yet submitted to the kernel",
		}),
		WaitOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "uring_reactor_wait_for_progress_total",
			Help: "counter of WaitForProgress calls, by whether they returned due to timeout",
		}, []string{"result"}),
	}
}

func (m *Metrics) queued(opcode uint8) {
	if m == nil {
		return
	}
	m.Queued.WithLabelValues(opcodeLabel(opcode)).Inc()
}

func (m *Metrics) submitted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Submitted.Add(float64(n))
}

func (m *Metrics) completed(more bool) {
	if m == nil {
		return
	}
	m.Completed.WithLabelValues(moreLabel(more)).Inc()
}

func (m *Metrics) ignored() {
	if m == nil {
		return
	}
	m.Ignored.Inc()
}

func (m *Metrics) setTracked(n int) {
	if m == nil {
		return
	}
	m.Tracked.Set(float64(n))
}

func (m *Metrics) setStaged(n int) {
	if m == nil {
		return
	}
	m.Staged.Set(float64(n))
}

func (m *Metrics) waitOutcome(result string) {
	if m == nil {
		return
	}
	m.WaitOutcome.WithLabelValues(result).Inc()
}
