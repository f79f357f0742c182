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
	"github.com/ROBODRILL/starrocks/pkg/meta"
	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

// OperatorKind tags the concrete operator shapes the deriver understands.
// Adding a kind means extending this list and every switch over it.
type OperatorKind int

// Operator kinds.
const (
	KindHashJoin OperatorKind = iota
	KindHashAgg
	KindTableScan
	KindExternalScan
	KindTopN
	KindWindow
	KindSetOp
	KindProjection
	KindFilter
	KindRepeat
	KindTableFunction
	KindValues
	KindAssertOneRow
)

// String implements fmt.Stringer.
func (k OperatorKind) String() string {
	switch k {
	case KindHashJoin:
		return "HashJoin"
	case KindHashAgg:
		return "HashAgg"
	case KindTableScan:
		return "TableScan"
	case KindExternalScan:
		return "ExternalScan"
	case KindTopN:
		return "TopN"
	case KindWindow:
		return "Window"
	case KindSetOp:
		return "SetOp"
	case KindProjection:
		return "Projection"
	case KindFilter:
		return "Filter"
	case KindRepeat:
		return "Repeat"
	case KindTableFunction:
		return "TableFunction"
	case KindValues:
		return "Values"
	case KindAssertOneRow:
		return "AssertOneRow"
	}
	return "Unknown"
}

// Operator is the closed set of physical operator shapes over which
// alternatives are derived. Implementations carry only the facts the
// derivation rules consult; costing and execution details live elsewhere.
type Operator interface {
	Kind() OperatorKind
}

// JoinType enumerates join semantics.
type JoinType int

// Join types.
const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	LeftSemiJoin
	RightSemiJoin
	LeftAntiJoin
	RightAntiJoin
	// NullAwareLeftAntiJoin implements NOT IN semantics; unmatched rows must
	// see the full right side, so only broadcast is legal.
	NullAwareLeftAntiJoin
	CrossJoin
)

// IsRightJoin reports whether unmatched right rows (or right-driven
// semantics) make a broadcast of the right side incorrect.
func (t JoinType) IsRightJoin() bool {
	return t == RightOuterJoin || t == RightSemiJoin || t == RightAntiJoin
}

// JoinHint is an explicit distribution strategy requested in the query text.
type JoinHint int

// Join hints.
const (
	HintNone JoinHint = iota
	HintBroadcast
	HintShuffle
	HintBucket
)

// EqualConjunct is one equality conjunct of a join's on-predicate, reduced to
// the facts the deriver needs: the column each side shuffles through and
// whether that side is a bare column reference. Non column-to-column sides
// (e.g. a cast around the column) still shuffle through their column but rule
// out colocate and bucket-shuffle strategies.
type EqualConjunct struct {
	LeftCol       property.ColumnID
	RightCol      property.ColumnID
	LeftIsColumn  bool
	RightIsColumn bool
}

// ColumnPair builds a direct column-to-column equality conjunct.
func ColumnPair(left, right property.ColumnID) EqualConjunct {
	return EqualConjunct{LeftCol: left, RightCol: right, LeftIsColumn: true, RightIsColumn: true}
}

// ColumnToColumn reports whether both sides are bare column references.
func (c EqualConjunct) ColumnToColumn() bool {
	return c.LeftIsColumn && c.RightIsColumn
}

func (c EqualConjunct) swapped() EqualConjunct {
	return EqualConjunct{
		LeftCol:       c.RightCol,
		RightCol:      c.LeftCol,
		LeftIsColumn:  c.RightIsColumn,
		RightIsColumn: c.LeftIsColumn,
	}
}

// PhysicalHashJoin is a binary hash join candidate.
type PhysicalHashJoin struct {
	JoinType JoinType
	Hint     JoinHint
	// EqualConjuncts holds the equality conjuncts of the on-predicate. The
	// deriver keeps only those that actually bridge the two children's outputs.
	EqualConjuncts []EqualConjunct
}

// Kind implements Operator.
func (*PhysicalHashJoin) Kind() OperatorKind { return KindHashJoin }

// AggPhase marks which stage of a possibly split aggregation an operator is.
type AggPhase int

// Aggregation phases.
const (
	// AggPhaseLocal is the partial pre-aggregation step of a two-phase plan.
	AggPhaseLocal AggPhase = iota
	// AggPhaseGlobal is the final merging step.
	AggPhaseGlobal
)

// PhysicalHashAgg is a hash aggregation candidate.
type PhysicalHashAgg struct {
	Phase AggPhase
	// Split is set when the aggregation has been split into two phases.
	Split bool
	// GroupBy is empty for scalar aggregation.
	GroupBy []property.ColumnID
}

// Kind implements Operator.
func (*PhysicalHashAgg) Kind() OperatorKind { return KindHashAgg }

// PhysicalTableScan reads a bucketed base table.
type PhysicalTableScan struct {
	Table TableID
	// BucketColumns is the table's native hash bucketing column list.
	BucketColumns []property.ColumnID
	// SelectedPartitions are the partition ids left after pruning.
	SelectedPartitions []int64
}

// TableID aliases the catalog table identifier.
type TableID = meta.TableID

// Kind implements Operator.
func (*PhysicalTableScan) Kind() OperatorKind { return KindTableScan }

// PhysicalExternalScan reads an external source (remote MySQL, object store,
// search index, schema tables). It exposes no intrinsic distribution.
type PhysicalExternalScan struct{}

// Kind implements Operator.
func (*PhysicalExternalScan) Kind() OperatorKind { return KindExternalScan }

// SortPhase marks which stage of a possibly split sort an operator is.
type SortPhase int

// Sort phases.
const (
	SortPhasePartial SortPhase = iota
	SortPhaseFinal
)

// PhysicalTopN is a sort-with-limit candidate.
type PhysicalTopN struct {
	OrderBy []property.SortItem
	Phase   SortPhase
	// Split is set when the sort has been split into a partial and a final
	// stage.
	Split bool
}

// Kind implements Operator.
func (*PhysicalTopN) Kind() OperatorKind { return KindTopN }

// PhysicalWindow is an analytic (window function) candidate.
type PhysicalWindow struct {
	PartitionBy []property.ColumnID
	OrderBy     []property.SortItem
}

// Kind implements Operator.
func (*PhysicalWindow) Kind() OperatorKind { return KindWindow }

// SetOpType enumerates set operations.
type SetOpType int

// Set operation types.
const (
	UnionOp SetOpType = iota
	ExceptOp
	IntersectOp
)

// PhysicalSetOp is an n-ary union/except/intersect candidate.
type PhysicalSetOp struct {
	Op SetOpType
}

// Kind implements Operator.
func (*PhysicalSetOp) Kind() OperatorKind { return KindSetOp }

// PhysicalProjection evaluates expressions over its input.
type PhysicalProjection struct{}

// Kind implements Operator.
func (*PhysicalProjection) Kind() OperatorKind { return KindProjection }

// PhysicalFilter drops rows not matching its predicate.
type PhysicalFilter struct{}

// Kind implements Operator.
func (*PhysicalFilter) Kind() OperatorKind { return KindFilter }

// PhysicalRepeat replays each input row once per grouping set.
type PhysicalRepeat struct{}

// Kind implements Operator.
func (*PhysicalRepeat) Kind() OperatorKind { return KindRepeat }

// PhysicalTableFunction expands each input row through a table function.
type PhysicalTableFunction struct{}

// Kind implements Operator.
func (*PhysicalTableFunction) Kind() OperatorKind { return KindTableFunction }

// PhysicalValues produces a constant row set.
type PhysicalValues struct{}

// Kind implements Operator.
func (*PhysicalValues) Kind() OperatorKind { return KindValues }

// PhysicalAssertOneRow fails the query unless its input has exactly one row.
type PhysicalAssertOneRow struct{}

// Kind implements Operator.
func (*PhysicalAssertOneRow) Kind() OperatorKind { return KindAssertOneRow }
