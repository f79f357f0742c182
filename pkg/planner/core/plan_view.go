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

// NoLimit marks a subtree that carries no row limit.
const NoLimit int64 = -1

// ScanView is the read-only view of one base table scan the distributed-join
// rules consult.
type ScanView interface {
	TableID() TableID
	// OutputColumns is the scan's logical output column set.
	OutputColumns() *property.ColumnSet
	// BucketColumns is the table's native hash bucketing column list.
	BucketColumns() []property.ColumnID
	// SelectedPartitions are the partition ids left after pruning.
	SelectedPartitions() []int64
}

// PlanView is the read-only view of the plan node being derived and of its
// subtree. It is the only way the deriver looks at the plan; it never walks
// or mutates plan structures itself.
type PlanView interface {
	ChildCount() int
	// ChildHasLimit reports whether the i-th child subtree carries a row limit.
	ChildHasLimit(i int) bool
	// ChildLimit returns the i-th child subtree's row limit. Only meaningful
	// when ChildHasLimit(i) is true.
	ChildLimit(i int) int64
	// ChildOutputColumns is the i-th child's logical output column set.
	ChildOutputColumns(i int) *property.ColumnSet
	// ExecutesInSingleInstance reports whether the whole subtree runs on one
	// execution instance.
	ExecutesInSingleInstance() bool
	// ScanNodes lists the base table scans reachable in the subtree, in
	// deterministic pre-order.
	ScanNodes() []ScanView
}

// PlanNode is a concrete plan tree node implementing PlanView for its
// operator. The search loop adapts its own memo structures to PlanView; this
// implementation serves tests, tools and standalone embedding.
type PlanNode struct {
	Op       Operator
	Children []*PlanNode
	// Limit is the row limit carried by this subtree, NoLimit when absent.
	Limit int64
	// SingleInstance is set when the whole subtree runs on one instance.
	SingleInstance bool
	// Output is the node's logical output column set.
	Output *property.ColumnSet
}

// NewPlanNode builds a node with no limit over the given children.
func NewPlanNode(op Operator, output *property.ColumnSet, children ...*PlanNode) *PlanNode {
	return &PlanNode{
		Op:       op,
		Children: children,
		Limit:    NoLimit,
		Output:   output,
	}
}

// ChildCount implements PlanView.
func (n *PlanNode) ChildCount() int {
	return len(n.Children)
}

// ChildHasLimit implements PlanView.
func (n *PlanNode) ChildHasLimit(i int) bool {
	return n.Children[i].Limit != NoLimit
}

// ChildLimit implements PlanView.
func (n *PlanNode) ChildLimit(i int) int64 {
	return n.Children[i].Limit
}

// ChildOutputColumns implements PlanView.
func (n *PlanNode) ChildOutputColumns(i int) *property.ColumnSet {
	return n.Children[i].Output
}

// ExecutesInSingleInstance implements PlanView.
func (n *PlanNode) ExecutesInSingleInstance() bool {
	return n.SingleInstance
}

// ScanNodes implements PlanView.
func (n *PlanNode) ScanNodes() []ScanView {
	var scans []ScanView
	n.collectScans(&scans)
	return scans
}

func (n *PlanNode) collectScans(out *[]ScanView) {
	if scan, ok := n.Op.(*PhysicalTableScan); ok {
		*out = append(*out, &scanView{node: n, op: scan})
	}
	for _, child := range n.Children {
		child.collectScans(out)
	}
}

type scanView struct {
	node *PlanNode
	op   *PhysicalTableScan
}

func (v *scanView) TableID() TableID { return v.op.Table }

func (v *scanView) OutputColumns() *property.ColumnSet { return v.node.Output }

func (v *scanView) BucketColumns() []property.ColumnID { return v.op.BucketColumns }

func (v *scanView) SelectedPartitions() []int64 { return v.op.SelectedPartitions }
