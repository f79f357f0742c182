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

package core

import (
	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

// deriveHashAgg enumerates aggregation strategies. A global unsplit aggregate
// over a single-instance subtree needs no distribution at all; a limited
// child is gathered first; otherwise grouping columns decide between a full
// gather (scalar aggregation) and the two-phase shuffle / single-phase local
// pair.
func (d *Deriver) deriveHashAgg(required property.PhysicalPropertySet, agg *PhysicalHashAgg, plan PlanView) []Alternative {
	if d.vars.ForcedSingleStageAggregation() && plan.ExecutesInSingleInstance() &&
		agg.Phase == AggPhaseGlobal && !agg.Split {
		alts := []Alternative{{
			Output:        property.EmptyPropertySet(),
			ChildRequired: []property.PhysicalPropertySet{property.EmptyPropertySet()},
		}}
		return d.filterAggByLocalRequirement(required, alts)
	}

	if plan.ChildHasLimit(0) && agg.Phase == AggPhaseGlobal && !agg.Split {
		alts := []Alternative{{
			Output:        property.EmptyPropertySet(),
			ChildRequired: []property.PhysicalPropertySet{limitGatherProperty(plan.ChildLimit(0))},
		}}
		return d.filterAggByLocalRequirement(required, alts)
	}

	if agg.Phase != AggPhaseLocal {
		if len(agg.GroupBy) == 0 {
			gather := property.NewPropertySet(property.NewGatherSpec())
			alts := []Alternative{{
				Output:        gather,
				ChildRequired: []property.PhysicalPropertySet{gather},
			}}
			return d.filterAggByLocalRequirement(required, alts)
		}

		shuffle := property.NewPropertySet(property.NewHashSpec(agg.GroupBy, property.ShuffleAgg))
		local := property.NewPropertySet(property.NewLocalSpec(agg.GroupBy))
		alts := []Alternative{
			{Output: shuffle, ChildRequired: []property.PhysicalPropertySet{shuffle}},
			{Output: local, ChildRequired: []property.PhysicalPropertySet{local}},
		}
		return d.filterAggByLocalRequirement(required, alts)
	}

	// The partial step of a split aggregation works wherever its input sits.
	alts := []Alternative{{
		Output:        property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{property.EmptyPropertySet()},
	}}
	return d.filterAggByLocalRequirement(required, alts)
}

// filterAggByLocalRequirement resolves an active local requirement: an
// unconstrained input is promoted to the requirement itself; the single-phase
// local alternative survives when its grouping columns are covered by the
// requirement. The scalar-aggregation gather never satisfies a local
// requirement, so it is dropped.
func (d *Deriver) filterAggByLocalRequirement(required property.PhysicalPropertySet, alts []Alternative) []Alternative {
	reqCols, ok := requiredLocalColumns(required)
	if !ok {
		return alts
	}
	reqSet := property.NewColumnSet(reqCols...)
	passDown := distributeRequirements(required)

	result := make([]Alternative, 0, len(alts))
	for _, alt := range alts {
		input := alt.ChildRequired[0].Distribution()
		switch {
		case input.IsAny():
			result = append(result, Alternative{
				Output:        passDown,
				ChildRequired: []property.PhysicalPropertySet{passDown},
			})
		case input.IsShuffle():
			output := alt.Output.Distribution()
			if output.IsLocal() && input.IsLocal() && reqSet.ContainsAll(input.HashColumns()) {
				result = append(result, Alternative{Output: passDown, ChildRequired: alt.ChildRequired})
			}
		}
	}
	return result
}
