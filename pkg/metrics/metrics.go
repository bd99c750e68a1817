/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics defines the process-wide Prometheus metrics every
// controller and API handler reports to, registered once against
// controller-runtime's default registry and served on the metrics
// collaborator endpoint.
package metrics

import (
	opmetrics "github.com/awslabs/operatorpkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Namespace is the Prometheus namespace prefixing every metric below.
const Namespace = "corectl"

const (
	ControllerSubsystem  = "controller"
	SchedulerSubsystem   = "scheduler"
	LeaseSubsystem       = "lease"
	WatchSubsystem       = "watch"
	RegistrationSubsystem = "registration"

	KindLabel       = "kind"
	ReasonLabel     = "reason"
	NodeLabel       = "node"
)

// DurationBuckets mirrors the default reconcile-latency buckets used across
// the controller set.
func DurationBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
}

var (
	ReconcileDuration = opmetrics.NewPrometheusHistogram(
		crmetrics.Registry,
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ControllerSubsystem,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a controller reconcile pass, labeled by controller kind.",
			Buckets:   DurationBuckets(),
		},
		[]string{KindLabel},
	)
	ReconcileErrorsTotal = opmetrics.NewPrometheusCounter(
		crmetrics.Registry,
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ControllerSubsystem,
			Name:      "reconcile_errors_total",
			Help:      "Number of reconcile passes that returned an error, labeled by controller kind.",
		},
		[]string{KindLabel},
	)
	SchedulingAttemptsTotal = opmetrics.NewPrometheusCounter(
		crmetrics.Registry,
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "attempts_total",
			Help:      "Number of scheduling attempts, labeled by result (scheduled/unschedulable).",
		},
		[]string{ReasonLabel},
	)
	LeaderState = opmetrics.NewPrometheusGauge(
		crmetrics.Registry,
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: LeaseSubsystem,
			Name:      "is_leader",
			Help:      "1 if this replica currently holds the controller leader lease, 0 otherwise.",
		},
		[]string{},
	)
	WatchSubscribersGauge = opmetrics.NewPrometheusGauge(
		crmetrics.Registry,
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: WatchSubsystem,
			Name:      "subscribers",
			Help:      "Number of active watch subscribers on the event bus.",
		},
		[]string{},
	)
	HeartbeatsTotal = opmetrics.NewPrometheusCounter(
		crmetrics.Registry,
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RegistrationSubsystem,
			Name:      "heartbeats_total",
			Help:      "Number of heartbeats accepted, labeled by node.",
		},
		[]string{NodeLabel},
	)
)
