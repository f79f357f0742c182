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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ROBODRILL/starrocks/pkg/config"
	"github.com/ROBODRILL/starrocks/pkg/meta"
	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

func newTestDeriver(index *meta.ColocateIndex) (*Deriver, *config.SessionVars) {
	if index == nil {
		index = meta.NewColocateIndex()
	}
	vars := config.NewSessionVars(config.NewConfig())
	return NewDeriver(index, vars), vars
}

func scanNode(table TableID, output, buckets []property.ColumnID, partitions ...int64) *PlanNode {
	op := &PhysicalTableScan{
		Table:              table,
		BucketColumns:      buckets,
		SelectedPartitions: partitions,
	}
	return NewPlanNode(op, property.NewColumnSet(output...))
}

func joinNode(join *PhysicalHashJoin, left, right *PlanNode) *PlanNode {
	output := left.Output.Clone()
	output.UnionWith(right.Output)
	return NewPlanNode(join, output, left, right)
}

func emptyProp() property.PhysicalPropertySet {
	return property.EmptyPropertySet()
}

func localReq(cols ...property.ColumnID) property.PhysicalPropertySet {
	return property.NewPropertySet(property.NewLocalSpec(cols))
}

// twoScanJoin builds scan(A) ⋈ scan(B) on A.1 = B.4 with two selected
// partitions per side, so neither colocate self-join nor bucket shuffle can
// trigger unless a test tightens the partitions.
func twoScanJoin(joinType JoinType, hint JoinHint) *PlanNode {
	join := &PhysicalHashJoin{
		JoinType:       joinType,
		Hint:           hint,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 4)},
	}
	left := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11)
	right := scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4}, 20, 21)
	return joinNode(join, left, right)
}

func TestJoinBroadcastOnlyShapes(t *testing.T) {
	d, _ := newTestDeriver(nil)

	tests := []struct {
		name string
		plan *PlanNode
	}{
		{"cross join", twoScanJoin(CrossJoin, HintNone)},
		{"null aware left anti", twoScanJoin(NullAwareLeftAntiJoin, HintNone)},
		{"broadcast hint", twoScanJoin(InnerJoin, HintBroadcast)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alts := d.DeriveAlternatives(emptyProp(), tt.plan.Op, tt.plan)
			require.Len(t, alts, 1)
			require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())
			require.True(t, alts[0].ChildRequired[0].Distribution().IsAny())
		})
	}

	// An inner join whose conjuncts do not bridge the two sides degrades to
	// broadcast as well.
	join := &PhysicalHashJoin{JoinType: InnerJoin}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11),
		scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4}, 20, 21))
	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())
}

func TestInnerJoinBroadcastAndShuffle(t *testing.T) {
	d, _ := newTestDeriver(nil)
	plan := twoScanJoin(InnerJoin, HintNone)

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2)

	// Broadcast first: right replicated, left unconstrained.
	require.True(t, alts[0].ChildRequired[0].Distribution().IsAny())
	require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())

	// Then shuffle with positionally paired columns of equal length.
	left := alts[1].ChildRequired[0].Distribution()
	right := alts[1].ChildRequired[1].Distribution()
	require.True(t, left.IsShuffle())
	require.False(t, left.IsLocal())
	require.Equal(t, []property.ColumnID{1}, left.HashColumns())
	require.Equal(t, []property.ColumnID{4}, right.HashColumns())
	require.Len(t, left.HashColumns(), len(right.HashColumns()))
}

func TestJoinShuffleHint(t *testing.T) {
	d, _ := newTestDeriver(nil)
	plan := twoScanJoin(InnerJoin, HintShuffle)

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.Equal(t, property.ShuffleJoin, alts[0].ChildRequired[0].Distribution().HashSource())
	require.Equal(t, property.ShuffleJoin, alts[0].ChildRequired[1].Distribution().HashSource())
}

func TestRightJoinDropsBroadcast(t *testing.T) {
	d, _ := newTestDeriver(nil)
	for _, joinType := range []JoinType{RightOuterJoin, FullOuterJoin} {
		plan := twoScanJoin(joinType, HintNone)
		alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
		require.Len(t, alts, 1)
		require.True(t, alts[0].ChildRequired[0].Distribution().IsShuffle())
		require.True(t, alts[0].ChildRequired[1].Distribution().IsShuffle())
	}
}

func TestJoinChildLimitForcesBroadcast(t *testing.T) {
	d, _ := newTestDeriver(nil)

	plan := twoScanJoin(InnerJoin, HintNone)
	plan.Children[0].Limit = 10
	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	limit, ok := alts[0].ChildRequired[0].Distribution().GatherLimit()
	require.True(t, ok)
	require.Equal(t, int64(10), limit)
	require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())

	// A right-side-only limit still broadcasts; the left stays unconstrained.
	plan = twoScanJoin(InnerJoin, HintNone)
	plan.Children[1].Limit = 10
	alts = d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].ChildRequired[0].Distribution().IsAny())
	require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())
}

func TestJoinColocateAlternative(t *testing.T) {
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	index.AddTableToGroup(200, 1)
	d, vars := newTestDeriver(index)

	plan := twoScanJoin(InnerJoin, HintNone)
	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 3)

	// Colocate is appended after shuffle and requires local bucket columns on
	// both sides.
	colocate := alts[2]
	left := colocate.ChildRequired[0].Distribution()
	right := colocate.ChildRequired[1].Distribution()
	require.True(t, left.IsLocal())
	require.True(t, right.IsLocal())
	require.Equal(t, []property.ColumnID{1}, left.HashColumns())
	require.Equal(t, []property.ColumnID{4}, right.HashColumns())

	// Toggling the disable flag removes exactly the colocate alternative.
	vars.DisableColocateJoin = true
	disabled := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, disabled, 2)
	require.Equal(t, alts[:2], disabled)
	vars.DisableColocateJoin = false

	// An unstable group removes it as well.
	index.MarkGroupUnstable(1)
	unstable := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, unstable, 2)
	index.MarkGroupStable(1)
	restored := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, restored, 3)
}

func TestJoinColocateNeedsMatchingPositions(t *testing.T) {
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	index.AddTableToGroup(200, 1)
	d, _ := newTestDeriver(index)

	// Two-column buckets paired crosswise: 1↔5, 2↔4. Bucket column 1 sits at
	// shuffle position 0 on the left but its group partner 4 sits at position
	// 1 on the right.
	join := &PhysicalHashJoin{
		JoinType:       InnerJoin,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 5), ColumnPair(2, 4)},
	}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1, 2}, 10, 11),
		scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4, 5}, 20, 21))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2) // broadcast + shuffle only
}

func TestJoinSelfColocate(t *testing.T) {
	d, _ := newTestDeriver(nil)

	// Self join of table 100 over the same single partition; the two scans
	// alias disjoint column ids.
	join := &PhysicalHashJoin{
		JoinType:       InnerJoin,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 4)},
	}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 7),
		scanNode(100, []property.ColumnID{4, 5}, []property.ColumnID{4}, 7))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	// broadcast, shuffle, colocate, bucket shuffle
	require.Len(t, alts, 4)
	require.True(t, alts[2].ChildRequired[0].Distribution().IsLocal())
	require.True(t, alts[2].ChildRequired[1].Distribution().IsLocal())

	// Different partitions break the self-colocate guarantee.
	plan = joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 7),
		scanNode(100, []property.ColumnID{4, 5}, []property.ColumnID{4}, 8))
	alts = d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 3) // broadcast, shuffle, bucket shuffle
}

func TestJoinBucketShuffle(t *testing.T) {
	d, _ := newTestDeriver(nil)

	// Left scan reads exactly one partition; no colocation relationship.
	join := &PhysicalHashJoin{
		JoinType:       InnerJoin,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 4)},
	}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10),
		scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4}, 20, 21))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 3)

	bucket := alts[2]
	left := bucket.ChildRequired[0].Distribution()
	right := bucket.ChildRequired[1].Distribution()
	require.True(t, left.IsLocal())
	require.Equal(t, []property.ColumnID{1}, left.HashColumns())
	require.False(t, right.IsLocal())
	require.True(t, right.IsShuffle())
	require.Equal(t, []property.ColumnID{4}, right.HashColumns())

	// Several selected partitions rule bucket shuffle out.
	plan.Children[0].Op.(*PhysicalTableScan).SelectedPartitions = []int64{10, 11}
	alts = d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2)
}

func TestJoinNonColumnPredicateBlocksColocate(t *testing.T) {
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	index.AddTableToGroup(200, 1)
	d, _ := newTestDeriver(index)

	// cast(A.1) = B.4: still shuffles through columns 1 and 4, but colocate
	// and bucket shuffle are off the table.
	conj := EqualConjunct{LeftCol: 1, RightCol: 4, LeftIsColumn: false, RightIsColumn: true}
	join := &PhysicalHashJoin{JoinType: InnerJoin, EqualConjuncts: []EqualConjunct{conj}}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10),
		scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4}, 20))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2) // broadcast + shuffle only
}

func TestJoinLocalRequirement(t *testing.T) {
	d, _ := newTestDeriver(nil)

	// Left scan over one partition so a bucket-shuffle alternative with a
	// local left side exists.
	join := &PhysicalHashJoin{
		JoinType:       InnerJoin,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 4)},
	}
	plan := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10),
		scanNode(200, []property.ColumnID{4, 5}, []property.ColumnID{4}, 20, 21))

	required := localReq(1)
	alts := d.DeriveAlternatives(required, plan.Op, plan)
	require.Len(t, alts, 2)
	for _, alt := range alts {
		// Every surviving alternative outputs the requirement itself.
		require.True(t, alt.Output.Equals(property.NewPropertySet(required.Distribution())))
	}
	// Broadcast survives with the left child promoted to the requirement.
	require.True(t, alts[0].ChildRequired[0].Distribution().IsLocal())
	require.True(t, alts[0].ChildRequired[1].Distribution().IsReplicated())
	// Bucket shuffle survives since its left local columns are covered.
	require.True(t, alts[1].ChildRequired[0].Distribution().IsLocal())
	require.True(t,
		property.NewColumnSet(required.Distribution().HashColumns()...).
			ContainsAll(alts[1].ChildRequired[0].Distribution().HashColumns()))
}

func TestJoinLocalRequirementAmbiguous(t *testing.T) {
	d, _ := newTestDeriver(nil)
	plan := twoScanJoin(InnerJoin, HintNone)

	// Column 9 comes from neither side.
	require.Empty(t, d.DeriveAlternatives(localReq(9), plan.Op, plan))

	// A column visible on both sides is ambiguous.
	join := &PhysicalHashJoin{
		JoinType:       InnerJoin,
		EqualConjuncts: []EqualConjunct{ColumnPair(1, 4)},
	}
	both := joinNode(join,
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10),
		scanNode(200, []property.ColumnID{1, 4}, []property.ColumnID{4}, 20))
	require.Empty(t, d.DeriveAlternatives(localReq(1), join, both))
}

func TestScalarAggregationGathers(t *testing.T) {
	d, _ := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseGlobal}
	plan := NewPlanNode(agg, property.NewColumnSet(9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsGather())
	require.True(t, alts[0].ChildRequired[0].Distribution().IsGather())
	_, capped := alts[0].ChildRequired[0].Distribution().GatherLimit()
	require.False(t, capped)
}

func TestGroupedAggregationAlternatives(t *testing.T) {
	d, _ := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseGlobal, Split: true, GroupBy: []property.ColumnID{1}}
	plan := NewPlanNode(agg, property.NewColumnSet(1, 9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2)

	shuffle := alts[0].Output.Distribution()
	require.True(t, shuffle.IsShuffle())
	require.Equal(t, property.ShuffleAgg, shuffle.HashSource())
	require.Equal(t, []property.ColumnID{1}, shuffle.HashColumns())
	require.True(t, alts[0].Output.Equals(alts[0].ChildRequired[0]))

	local := alts[1].Output.Distribution()
	require.True(t, local.IsLocal())
	require.True(t, alts[1].Output.Equals(alts[1].ChildRequired[0]))
}

func TestAggregationChildLimit(t *testing.T) {
	d, _ := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseGlobal, GroupBy: []property.ColumnID{1}}
	child := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11)
	child.Limit = 5
	plan := NewPlanNode(agg, property.NewColumnSet(1, 9), child)

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	limit, ok := alts[0].ChildRequired[0].Distribution().GatherLimit()
	require.True(t, ok)
	require.Equal(t, int64(5), limit)
}

func TestAggregationSingleInstance(t *testing.T) {
	d, vars := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseGlobal, GroupBy: []property.ColumnID{1}}
	plan := NewPlanNode(agg, property.NewColumnSet(1, 9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10))
	plan.SingleInstance = true

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.True(t, alts[0].ChildRequired[0].IsEmpty())

	// Pinning two-phase aggregation disables the shortcut.
	vars.AggStage = config.AggStageTwo
	alts = d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2)
	vars.AggStage = config.AggStageAuto
}

func TestLocalAggregationImposesNothing(t *testing.T) {
	d, _ := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseLocal, Split: true, GroupBy: []property.ColumnID{1}}
	plan := NewPlanNode(agg, property.NewColumnSet(1, 9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11))

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.True(t, alts[0].ChildRequired[0].IsEmpty())
}

func TestAggregationLocalRequirement(t *testing.T) {
	d, _ := newTestDeriver(nil)
	agg := &PhysicalHashAgg{Phase: AggPhaseGlobal, Split: true, GroupBy: []property.ColumnID{1}}
	plan := NewPlanNode(agg, property.NewColumnSet(1, 9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11))

	// Only the single-phase local alternative can honor a covering local
	// requirement.
	alts := d.DeriveAlternatives(localReq(1, 2), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].ChildRequired[0].Distribution().IsLocal())

	// A requirement not covering the grouping columns defeats it.
	require.Empty(t, d.DeriveAlternatives(localReq(2), plan.Op, plan))

	// Scalar aggregation can never run without data movement.
	scalar := &PhysicalHashAgg{Phase: AggPhaseGlobal}
	scalarPlan := NewPlanNode(scalar, property.NewColumnSet(9),
		scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11))
	require.Empty(t, d.DeriveAlternatives(localReq(1), scalarPlan.Op, scalarPlan))
}

func TestTableScanDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)

	// Single partition: the intrinsic bucket layout is promised.
	single := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10)
	alts := d.DeriveAlternatives(emptyProp(), single.Op, single)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsLocal())
	require.Equal(t, []property.ColumnID{1}, alts[0].Output.Distribution().HashColumns())
	require.Empty(t, alts[0].ChildRequired)

	// Several partitions of a non-colocate table promise nothing.
	multi := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11)
	alts = d.DeriveAlternatives(emptyProp(), multi.Op, multi)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())

	// Unless the table is in a colocation group.
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	colocated, _ := newTestDeriver(index)
	alts = colocated.DeriveAlternatives(emptyProp(), multi.Op, multi)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsLocal())

	// A local requirement must cover the bucket columns.
	alts = d.DeriveAlternatives(localReq(1, 2), single.Op, single)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsLocal())
	require.Equal(t, []property.ColumnID{1, 2}, alts[0].Output.Distribution().HashColumns())
	require.Empty(t, d.DeriveAlternatives(localReq(2), single.Op, single))
}

func TestExternalScanDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	scan := NewPlanNode(&PhysicalExternalScan{}, property.NewColumnSet(1))

	alts := d.DeriveAlternatives(emptyProp(), scan.Op, scan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.Empty(t, d.DeriveAlternatives(localReq(1), scan.Op, scan))
}

func TestTopNDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	order := []property.SortItem{{Col: 1}, {Col: 2, Desc: true}}
	child := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11)

	partial := NewPlanNode(&PhysicalTopN{OrderBy: order, Phase: SortPhasePartial}, child.Output, child)
	alts := d.DeriveAlternatives(emptyProp(), partial.Op, partial)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.True(t, alts[0].ChildRequired[0].IsEmpty())

	finalSplit := NewPlanNode(&PhysicalTopN{OrderBy: order, Phase: SortPhaseFinal, Split: true}, child.Output, child)
	alts = d.DeriveAlternatives(emptyProp(), finalSplit.Op, finalSplit)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsGather())
	require.True(t, alts[0].Output.Sort().Equals(property.NewSortProperty(order)))
	require.True(t, alts[0].ChildRequired[0].IsEmpty())

	finalUnsplit := NewPlanNode(&PhysicalTopN{OrderBy: order, Phase: SortPhaseFinal}, child.Output, child)
	alts = d.DeriveAlternatives(emptyProp(), finalUnsplit.Op, finalUnsplit)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsAny())
	require.False(t, alts[0].Output.Sort().IsEmpty())

	// A limited child below an unsplit final sort is gathered first.
	limited := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10, 11)
	limited.Limit = 3
	finalOverLimit := NewPlanNode(&PhysicalTopN{OrderBy: order, Phase: SortPhaseFinal}, limited.Output, limited)
	alts = d.DeriveAlternatives(emptyProp(), finalOverLimit.Op, finalOverLimit)
	require.Len(t, alts, 1)
	limit, ok := alts[0].ChildRequired[0].Distribution().GatherLimit()
	require.True(t, ok)
	require.Equal(t, int64(3), limit)

	// Top-N offers no local alternative.
	require.Empty(t, d.DeriveAlternatives(localReq(1), finalUnsplit.Op, finalUnsplit))
}

func TestWindowDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	child := scanNode(100, []property.ColumnID{1, 2, 3}, []property.ColumnID{1}, 10, 11)

	// Partitioned window: two-phase shuffle first, then single-phase local,
	// both carrying the combined sort.
	window := &PhysicalWindow{
		PartitionBy: []property.ColumnID{1},
		OrderBy:     []property.SortItem{{Col: 2, Desc: true}},
	}
	plan := NewPlanNode(window, child.Output, child)
	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 2)

	wantSort := property.NewSortProperty([]property.SortItem{
		{Col: 1, NullsFirst: true},
		{Col: 2, Desc: true},
	})
	require.Equal(t, property.ShuffleAgg, alts[0].Output.Distribution().HashSource())
	require.True(t, alts[0].Output.Sort().Equals(wantSort))
	require.True(t, alts[1].Output.Distribution().IsLocal())
	require.True(t, alts[1].Output.Equals(alts[1].ChildRequired[0]))

	// A partition column repeated in the order-by is not added twice.
	dup := &PhysicalWindow{
		PartitionBy: []property.ColumnID{1},
		OrderBy:     []property.SortItem{{Col: 1, Desc: true}, {Col: 3}},
	}
	dupPlan := NewPlanNode(dup, child.Output, child)
	alts = d.DeriveAlternatives(emptyProp(), dupPlan.Op, dupPlan)
	require.Equal(t, property.NewSortProperty([]property.SortItem{
		{Col: 1, NullsFirst: true},
		{Col: 3},
	}), alts[0].Output.Sort())

	// No partition columns: everything is gathered.
	scalar := &PhysicalWindow{OrderBy: []property.SortItem{{Col: 2}}}
	scalarPlan := NewPlanNode(scalar, child.Output, child)
	alts = d.DeriveAlternatives(emptyProp(), scalarPlan.Op, scalarPlan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsGather())

	// Local requirement must cover the partition columns.
	alts = d.DeriveAlternatives(localReq(1, 2), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsLocal())
	require.Empty(t, d.DeriveAlternatives(localReq(2), plan.Op, plan))
	require.Empty(t, d.DeriveAlternatives(localReq(2), scalarPlan.Op, scalarPlan))
}

func TestSetOpDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	first := scanNode(100, []property.ColumnID{1}, []property.ColumnID{1}, 10)
	second := scanNode(200, []property.ColumnID{2}, []property.ColumnID{2}, 20)
	second.Limit = 5
	third := scanNode(300, []property.ColumnID{3}, []property.ColumnID{3}, 30)
	plan := NewPlanNode(&PhysicalSetOp{Op: UnionOp}, property.NewColumnSet(8), first, second, third)

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.Len(t, alts[0].ChildRequired, 3)
	require.True(t, alts[0].ChildRequired[0].IsEmpty())
	limit, ok := alts[0].ChildRequired[1].Distribution().GatherLimit()
	require.True(t, ok)
	require.Equal(t, int64(5), limit)
	require.True(t, alts[0].ChildRequired[2].IsEmpty())

	// Set operators cannot keep rows co-located.
	require.Empty(t, d.DeriveAlternatives(localReq(1), plan.Op, plan))
}

func TestPassThroughDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	child := scanNode(100, []property.ColumnID{1, 2}, []property.ColumnID{1}, 10)

	ops := []Operator{
		&PhysicalProjection{},
		&PhysicalFilter{},
		&PhysicalRepeat{},
		&PhysicalTableFunction{},
	}
	required := property.NewPropertySet(property.NewGatherSpec())
	for _, op := range ops {
		plan := NewPlanNode(op, child.Output, child)

		alts := d.DeriveAlternatives(required, plan.Op, plan)
		require.Len(t, alts, 2)
		require.True(t, alts[0].Output.Distribution().IsGather())
		require.True(t, alts[0].Output.Equals(alts[0].ChildRequired[0]))
		require.True(t, alts[1].Output.IsEmpty())
		require.True(t, alts[1].ChildRequired[0].IsEmpty())

		local := d.DeriveAlternatives(localReq(1), plan.Op, plan)
		require.Len(t, local, 1)
		require.True(t, local[0].Output.Distribution().IsLocal())
		require.True(t, local[0].Output.Equals(local[0].ChildRequired[0]))
	}
}

func TestValuesDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	plan := NewPlanNode(&PhysicalValues{}, property.NewColumnSet(1))

	required := property.NewPropertySet(property.NewGatherSpec())
	alts := d.DeriveAlternatives(required, plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.Distribution().IsGather())
	require.Empty(t, alts[0].ChildRequired)
}

func TestAssertOneRowDerive(t *testing.T) {
	d, _ := newTestDeriver(nil)
	child := scanNode(100, []property.ColumnID{1}, []property.ColumnID{1}, 10)
	plan := NewPlanNode(&PhysicalAssertOneRow{}, child.Output, child)

	alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Len(t, alts, 1)
	require.True(t, alts[0].Output.IsEmpty())
	require.True(t, alts[0].ChildRequired[0].Distribution().IsGather())

	require.Empty(t, d.DeriveAlternatives(localReq(1), plan.Op, plan))
}

func TestDeriveAlternativesConcurrently(t *testing.T) {
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	index.AddTableToGroup(200, 1)
	d, _ := newTestDeriver(index)
	plan := twoScanJoin(InnerJoin, HintNone)

	violations := atomic.NewInt64(0)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			index.MarkGroupUnstable(1)
			index.MarkGroupStable(1)
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				alts := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
				// The colocate alternative comes and goes with group stability;
				// broadcast and shuffle are always present, in that order.
				if len(alts) < 2 || len(alts) > 3 {
					violations.Inc()
					continue
				}
				if !alts[0].ChildRequired[1].Distribution().IsReplicated() ||
					!alts[1].ChildRequired[0].Distribution().IsShuffle() {
					violations.Inc()
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, violations.Load())
}

func TestDeriveIsDeterministic(t *testing.T) {
	index := meta.NewColocateIndex()
	index.AddTableToGroup(100, 1)
	index.AddTableToGroup(200, 1)
	d, _ := newTestDeriver(index)
	plan := twoScanJoin(InnerJoin, HintNone)

	first := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	second := d.DeriveAlternatives(emptyProp(), plan.Op, plan)
	require.Equal(t, first, second)
}
