// Copyright 2023 ROBODRILL, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// DeriveAlternativesCounter counts property derivation calls per operator
	// kind.
	DeriveAlternativesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starrocks",
			Subsystem: "planner",
			Name:      "derive_alternatives_total",
			Help:      "Counter of physical property derivation calls.",
		}, []string{"operator"})

	// DerivePrunedCounter counts derivations that produced no legal
	// alternative, forcing the search to prune the candidate.
	DerivePrunedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starrocks",
			Subsystem: "planner",
			Name:      "derive_pruned_total",
			Help:      "Counter of derivations with no legal physical alternative.",
		}, []string{"operator"})
)

// RegisterMetrics registers the planner collectors with the default registry.
func RegisterMetrics() {
	prometheus.MustRegister(DeriveAlternativesCounter)
	prometheus.MustRegister(DerivePrunedCounter)
}
