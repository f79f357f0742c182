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

package config

// Aggregation staging choices for AggStage.
const (
	// AggStageAuto lets the deriver pick the staging, including collapsing a
	// global unsplit aggregate over a single-instance subtree into one stage
	// with no distribution requirement.
	AggStageAuto = 0
	// AggStageOne requests one-stage aggregation. Any explicit stage choice
	// turns the deriver's single-instance collapse off; the aggregate
	// splitting itself is decided before derivation.
	AggStageOne = 1
	// AggStageTwo requests two-phase aggregation, likewise turning the
	// single-instance collapse off.
	AggStageTwo = 2
)

// SessionVars holds the per-session switches the deriver consults. A
// SessionVars value must stay unchanged for the duration of one derivation
// call; distinct concurrent calls may use distinct values.
type SessionVars struct {
	// DisableColocateJoin turns the colocate join alternative off for this
	// session only.
	DisableColocateJoin bool
	// AggStage is one of the AggStage* constants.
	AggStage int

	conf *Config
}

// NewSessionVars returns session variables with defaults taken from conf.
func NewSessionVars(conf *Config) *SessionVars {
	return &SessionVars{
		DisableColocateJoin: conf.DisableColocateJoin,
		AggStage:            AggStageAuto,
		conf:                conf,
	}
}

// ColocateJoinDisabled reports whether colocate joins are off, either
// cluster-wide or for this session.
func (s *SessionVars) ColocateJoinDisabled() bool {
	return s.conf.DisableColocateJoin || s.DisableColocateJoin
}

// ForcedSingleStageAggregation reports whether the deriver may collapse a
// global unsplit aggregate into one stage with no distribution requirement.
// Only automatic staging allows the collapse; it also needs the subtree to
// execute on a single instance, which the deriver checks at the rule site. An
// explicit AggStage choice keeps the distribution requirements even there.
func (s *SessionVars) ForcedSingleStageAggregation() bool {
	return s.AggStage == AggStageAuto
}
