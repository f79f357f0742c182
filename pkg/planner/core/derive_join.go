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
	"fmt"
	"slices"

	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

// deriveHashJoin enumerates the distributed join strategies, cheapest-looking
// first: broadcast, shuffle, colocate, bucket shuffle. Joins where a child
// carries a row limit gather the limited side and broadcast the other, and
// offer nothing else, so limited rows are not duplicated per instance.
func (d *Deriver) deriveHashJoin(required property.PhysicalPropertySet, join *PhysicalHashJoin, plan PlanView) []Alternative {
	rightBroadcast := property.NewPropertySet(property.NewReplicatedSpec())

	var alts []Alternative
	if plan.ChildHasLimit(0) || plan.ChildHasLimit(1) {
		leftReq := property.EmptyPropertySet()
		if plan.ChildHasLimit(0) {
			leftReq = limitGatherProperty(plan.ChildLimit(0))
		}
		alts = append(alts, Alternative{
			Output:        property.EmptyPropertySet(),
			ChildRequired: []property.PhysicalPropertySet{leftReq, rightBroadcast},
		})
		return d.filterJoinByLocalRequirement(required, alts, plan)
	}
	alts = append(alts, Alternative{
		Output:        property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{property.EmptyPropertySet(), rightBroadcast},
	})

	leftOutput := plan.ChildOutputColumns(0)
	rightOutput := plan.ChildOutputColumns(1)
	eqConjuncts := eqConjunctsBetween(join.EqualConjuncts, leftOutput, rightOutput)

	// These join shapes can only be realized by broadcasting the right side.
	if join.JoinType == CrossJoin || join.JoinType == NullAwareLeftAntiJoin ||
		(join.JoinType == InnerJoin && len(eqConjuncts) == 0) || join.Hint == HintBroadcast {
		return d.filterJoinByLocalRequirement(required, alts, plan)
	}

	// Unmatched rows of a broadcast right side would surface once per
	// instance, so right and full outer joins must not broadcast.
	if join.JoinType.IsRightJoin() || join.JoinType == FullOuterJoin || join.Hint == HintShuffle {
		alts = alts[:0]
	}

	if len(eqConjuncts) == 0 {
		return d.filterJoinByLocalRequirement(required, alts, plan)
	}

	leftCols := make([]property.ColumnID, 0, len(eqConjuncts))
	rightCols := make([]property.ColumnID, 0, len(eqConjuncts))
	for _, conj := range eqConjuncts {
		leftCols = append(leftCols, conj.LeftCol)
		rightCols = append(rightCols, conj.RightCol)
	}
	if len(leftCols) != len(rightCols) {
		panic(fmt.Sprintf("join shuffle columns are not paired: %d vs %d", len(leftCols), len(rightCols)))
	}

	leftShuffle := property.NewHashSpec(leftCols, property.ShuffleJoin)
	rightShuffle := property.NewHashSpec(rightCols, property.ShuffleJoin)
	alts = append(alts, Alternative{
		Output: property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{
			property.NewPropertySet(leftShuffle),
			property.NewPropertySet(rightShuffle),
		},
	})

	if join.Hint == HintShuffle {
		return d.filterJoinByLocalRequirement(required, alts, plan)
	}

	// Colocate and bucket shuffle need to trace shuffle columns back to table
	// bucket columns, which only works for plain column-to-column equality.
	for _, conj := range eqConjuncts {
		if !conj.ColumnToColumn() {
			return d.filterJoinByLocalRequirement(required, alts, plan)
		}
	}

	if join.Hint != HintBucket {
		if alt, ok := d.tryColocate(leftShuffle, rightShuffle, plan); ok {
			alts = append(alts, alt)
		}
	}
	if alt, ok := tryBucketShuffle(join, leftShuffle, rightShuffle, plan); ok {
		alts = append(alts, alt)
	}

	return d.filterJoinByLocalRequirement(required, alts, plan)
}

// eqConjunctsBetween keeps the conjuncts that actually bridge the two
// children, normalized so the left column comes from the left child.
func eqConjunctsBetween(conjs []EqualConjunct, leftOutput, rightOutput *property.ColumnSet) []EqualConjunct {
	kept := make([]EqualConjunct, 0, len(conjs))
	for _, conj := range conjs {
		switch {
		case leftOutput.Contains(conj.LeftCol) && rightOutput.Contains(conj.RightCol):
			kept = append(kept, conj)
		case leftOutput.Contains(conj.RightCol) && rightOutput.Contains(conj.LeftCol):
			kept = append(kept, conj.swapped())
		}
	}
	return kept
}

// tryColocate offers a zero-movement join when both shuffle sides resolve to
// scans that are bucketed compatibly: either a self join over one partition,
// or two tables of a stable colocation group whose bucket columns line up
// position by position with the predicate columns.
//
// All shuffle columns of a side must come from one scan. A predicate like
// s1.A = s3.A AND s2.A = s4.A (columns from two tables under each side) can
// not be colocated; s1.A = s3.A AND s1.B = s3.B can.
func (d *Deriver) tryColocate(leftShuffle, rightShuffle property.DistributionSpec, plan PlanView) (Alternative, bool) {
	if d.vars.ColocateJoinDisabled() {
		return Alternative{}, false
	}

	left, ok := findScanForColumns(plan, leftShuffle.HashColumns())
	if !ok {
		return Alternative{}, false
	}
	right, ok := findScanForColumns(plan, rightShuffle.HashColumns())
	if !ok {
		return Alternative{}, false
	}

	if left.TableID() == right.TableID() && !d.meta.IsSameGroup(left.TableID(), right.TableID()) {
		// Self join without a declared group: both scans must read the same
		// single partition, otherwise bucket assignment may differ.
		if len(left.SelectedPartitions()) > 1 ||
			!slices.Equal(left.SelectedPartitions(), right.SelectedPartitions()) {
			return Alternative{}, false
		}
		return Alternative{
			Output: property.EmptyPropertySet(),
			ChildRequired: []property.PhysicalPropertySet{
				property.NewPropertySet(property.NewLocalSpec(leftShuffle.HashColumns())),
				property.NewPropertySet(property.NewLocalSpec(rightShuffle.HashColumns())),
			},
		}, true
	}

	if !d.meta.IsSameGroup(left.TableID(), right.TableID()) {
		return Alternative{}, false
	}
	group, ok := d.meta.GroupOf(left.TableID())
	if !ok || d.meta.IsGroupUnstable(group) {
		return Alternative{}, false
	}

	leftScanCols := left.BucketColumns()
	rightScanCols := right.BucketColumns()
	if len(leftScanCols) != len(rightScanCols) {
		panic(fmt.Sprintf("tables %d and %d share colocation group %d with mismatched bucket column counts %d vs %d",
			left.TableID(), right.TableID(), group, len(leftScanCols), len(rightScanCols)))
	}

	if !columnsContainAll(leftShuffle.HashColumns(), leftScanCols) {
		return Alternative{}, false
	}
	if !columnsContainAll(rightShuffle.HashColumns(), rightScanCols) {
		return Alternative{}, false
	}

	// The predicate must pair the two tables' bucket columns at identical
	// positions, otherwise matching buckets hold different key ranges.
	for i := range leftScanCols {
		leftIdx := slices.Index(leftShuffle.HashColumns(), leftScanCols[i])
		rightIdx := slices.Index(rightShuffle.HashColumns(), rightScanCols[i])
		if leftIdx != rightIdx {
			return Alternative{}, false
		}
	}

	return Alternative{
		Output: property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{
			property.NewPropertySet(property.NewLocalSpec(leftScanCols)),
			property.NewPropertySet(property.NewLocalSpec(rightScanCols)),
		},
	}, true
}

// tryBucketShuffle offers to keep the left side in place and shuffle only the
// right side into the left table's bucket layout. The left scan must read
// exactly one partition; with several partitions one bucket sits on several
// instances and the coordinator cannot route the shuffled rows.
func tryBucketShuffle(join *PhysicalHashJoin, leftShuffle, rightShuffle property.DistributionSpec, plan PlanView) (Alternative, bool) {
	if join.JoinType == CrossJoin {
		return Alternative{}, false
	}

	left, ok := findScanForColumns(plan, leftShuffle.HashColumns())
	if !ok {
		return Alternative{}, false
	}
	if len(left.SelectedPartitions()) != 1 {
		return Alternative{}, false
	}

	leftScanCols := left.BucketColumns()
	if !columnsContainAll(leftShuffle.HashColumns(), leftScanCols) {
		return Alternative{}, false
	}

	// For each left bucket column, shuffle the right side by the predicate
	// partner sitting at the same position of the shuffle column lists.
	rightCols := make([]property.ColumnID, 0, len(leftScanCols))
	for _, col := range leftScanCols {
		idx := slices.Index(leftShuffle.HashColumns(), col)
		rightCols = append(rightCols, rightShuffle.HashColumns()[idx])
	}

	return Alternative{
		Output: property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{
			property.NewPropertySet(property.NewLocalSpec(leftScanCols)),
			property.NewPropertySet(property.NewHashSpec(rightCols, property.ShuffleJoin)),
		},
	}, true
}

// findScanForColumns resolves a shuffle column list back to the single base
// table scan producing all of them, if one exists.
func findScanForColumns(plan PlanView, cols []property.ColumnID) (ScanView, bool) {
	for _, scan := range plan.ScanNodes() {
		if scan.OutputColumns().ContainsAll(cols) {
			return scan, true
		}
	}
	return nil, false
}

func columnsContainAll(haystack, needles []property.ColumnID) bool {
	for _, col := range needles {
		if !slices.Contains(haystack, col) {
			return false
		}
	}
	return true
}

// filterJoinByLocalRequirement resolves an active local requirement against
// the generated alternatives. The required columns must come from exactly one
// child's output: if that is the left child, a broadcast survives by promoting
// the left input to the requirement itself, and a colocate or bucket-shuffle
// survives when its left local columns are covered by the requirement; if it
// is the right child, only a colocate's right local side can survive.
// Ambiguous or unsatisfiable ownership discards every alternative.
func (d *Deriver) filterJoinByLocalRequirement(required property.PhysicalPropertySet, alts []Alternative, plan PlanView) []Alternative {
	reqCols, ok := requiredLocalColumns(required)
	if !ok {
		return alts
	}
	reqSet := property.NewColumnSet(reqCols...)
	fromLeft := plan.ChildOutputColumns(0).IsSupersetOf(reqSet)
	fromRight := plan.ChildOutputColumns(1).IsSupersetOf(reqSet)
	if fromLeft == fromRight {
		return nil
	}

	passDown := distributeRequirements(required)
	result := make([]Alternative, 0, len(alts))
	if fromLeft {
		for _, alt := range alts {
			leftInput := alt.ChildRequired[0].Distribution()
			switch {
			case leftInput.IsAny():
				result = append(result, Alternative{
					Output:        passDown,
					ChildRequired: []property.PhysicalPropertySet{passDown, alt.ChildRequired[1]},
				})
			case leftInput.IsLocal() && reqSet.ContainsAll(leftInput.HashColumns()):
				result = append(result, Alternative{Output: passDown, ChildRequired: alt.ChildRequired})
			}
		}
		return result
	}
	for _, alt := range alts {
		rightInput := alt.ChildRequired[1].Distribution()
		if rightInput.IsLocal() && reqSet.ContainsAll(rightInput.HashColumns()) {
			result = append(result, Alternative{Output: passDown, ChildRequired: alt.ChildRequired})
		}
	}
	return result
}
