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

package main

import (
	"encoding/json"
	"os"

	"github.com/pingcap/errors"

	"github.com/ROBODRILL/starrocks/pkg/meta"
	"github.com/ROBODRILL/starrocks/pkg/planner/core"
	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

// fixture is the on-disk JSON form of a plan snapshot: colocation groups, a
// required property and an operator tree.
type fixture struct {
	Groups   []groupFixture   `json:"groups"`
	Required *propertyFixture `json:"required"`
	Plan     *nodeFixture     `json:"plan"`
}

type groupFixture struct {
	ID       int64   `json:"id"`
	Tables   []int64 `json:"tables"`
	Unstable bool    `json:"unstable"`
}

type propertyFixture struct {
	Distribution string            `json:"distribution"`
	Limit        *int64            `json:"limit"`
	HashColumns  []int             `json:"hash_columns"`
	HashSource   string            `json:"hash_source"`
	SortItems    []sortItemFixture `json:"sort"`
}

type sortItemFixture struct {
	Col        int  `json:"col"`
	Desc       bool `json:"desc"`
	NullsFirst bool `json:"nulls_first"`
}

type conjunctFixture struct {
	Left          int   `json:"left"`
	Right         int   `json:"right"`
	LeftIsColumn  *bool `json:"left_is_column"`
	RightIsColumn *bool `json:"right_is_column"`
}

type operatorFixture struct {
	Kind string `json:"kind"`

	JoinType       string            `json:"join_type"`
	Hint           string            `json:"hint"`
	EqualConjuncts []conjunctFixture `json:"equal_conjuncts"`

	Phase   string `json:"phase"`
	Split   bool   `json:"split"`
	GroupBy []int  `json:"group_by"`

	Table         int64   `json:"table"`
	BucketColumns []int   `json:"bucket_columns"`
	Partitions    []int64 `json:"partitions"`

	OrderBy     []sortItemFixture `json:"order_by"`
	PartitionBy []int             `json:"partition_by"`

	SetOp string `json:"set_op"`
}

type nodeFixture struct {
	Operator       operatorFixture `json:"operator"`
	Limit          *int64          `json:"limit"`
	SingleInstance bool            `json:"single_instance"`
	Output         []int           `json:"output"`
	Children       []*nodeFixture  `json:"children"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "read plan fixture %s", path)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Annotatef(err, "parse plan fixture %s", path)
	}
	if f.Plan == nil {
		return nil, errors.Errorf("plan fixture %s has no plan", path)
	}
	return &f, nil
}

func (f *fixture) buildColocateIndex() *meta.ColocateIndex {
	index := meta.NewColocateIndex()
	for _, group := range f.Groups {
		for _, table := range group.Tables {
			index.AddTableToGroup(meta.TableID(table), meta.GroupID(group.ID))
		}
		if group.Unstable {
			index.MarkGroupUnstable(meta.GroupID(group.ID))
		}
	}
	return index
}

func (f *fixture) buildRequired() (property.PhysicalPropertySet, error) {
	if f.Required == nil {
		return property.EmptyPropertySet(), nil
	}
	var dist property.DistributionSpec
	switch f.Required.Distribution {
	case "", "any":
		dist = property.NewAnySpec()
	case "gather":
		if f.Required.Limit != nil {
			dist = property.NewLimitGatherSpec(*f.Required.Limit)
		} else {
			dist = property.NewGatherSpec()
		}
	case "replicated":
		dist = property.NewReplicatedSpec()
	case "hash":
		source, err := parseHashSource(f.Required.HashSource)
		if err != nil {
			return property.PhysicalPropertySet{}, err
		}
		dist = property.NewHashSpec(columnIDs(f.Required.HashColumns), source)
	default:
		return property.PhysicalPropertySet{}, errors.Errorf("unknown distribution %q", f.Required.Distribution)
	}
	return property.NewPropertySetWithSort(dist, property.NewSortProperty(sortItems(f.Required.SortItems))), nil
}

func (n *nodeFixture) buildPlan() (*core.PlanNode, error) {
	op, err := n.Operator.build()
	if err != nil {
		return nil, err
	}
	children := make([]*core.PlanNode, 0, len(n.Children))
	for _, child := range n.Children {
		built, err := child.buildPlan()
		if err != nil {
			return nil, err
		}
		children = append(children, built)
	}
	node := core.NewPlanNode(op, property.NewColumnSet(columnIDs(n.Output)...), children...)
	if n.Limit != nil {
		node.Limit = *n.Limit
	}
	node.SingleInstance = n.SingleInstance
	return node, nil
}

func (o *operatorFixture) build() (core.Operator, error) {
	switch o.Kind {
	case "hash_join":
		joinType, err := parseJoinType(o.JoinType)
		if err != nil {
			return nil, err
		}
		hint, err := parseHint(o.Hint)
		if err != nil {
			return nil, err
		}
		conjuncts := make([]core.EqualConjunct, 0, len(o.EqualConjuncts))
		for _, c := range o.EqualConjuncts {
			conj := core.ColumnPair(property.ColumnID(c.Left), property.ColumnID(c.Right))
			if c.LeftIsColumn != nil {
				conj.LeftIsColumn = *c.LeftIsColumn
			}
			if c.RightIsColumn != nil {
				conj.RightIsColumn = *c.RightIsColumn
			}
			conjuncts = append(conjuncts, conj)
		}
		return &core.PhysicalHashJoin{JoinType: joinType, Hint: hint, EqualConjuncts: conjuncts}, nil
	case "hash_agg":
		phase := core.AggPhaseGlobal
		if o.Phase == "local" {
			phase = core.AggPhaseLocal
		}
		return &core.PhysicalHashAgg{Phase: phase, Split: o.Split, GroupBy: columnIDs(o.GroupBy)}, nil
	case "table_scan":
		return &core.PhysicalTableScan{
			Table:              core.TableID(o.Table),
			BucketColumns:      columnIDs(o.BucketColumns),
			SelectedPartitions: o.Partitions,
		}, nil
	case "external_scan":
		return &core.PhysicalExternalScan{}, nil
	case "topn":
		phase := core.SortPhaseFinal
		if o.Phase == "partial" {
			phase = core.SortPhasePartial
		}
		return &core.PhysicalTopN{OrderBy: sortItems(o.OrderBy), Phase: phase, Split: o.Split}, nil
	case "window":
		return &core.PhysicalWindow{PartitionBy: columnIDs(o.PartitionBy), OrderBy: sortItems(o.OrderBy)}, nil
	case "set_op":
		switch o.SetOp {
		case "", "union":
			return &core.PhysicalSetOp{Op: core.UnionOp}, nil
		case "except":
			return &core.PhysicalSetOp{Op: core.ExceptOp}, nil
		case "intersect":
			return &core.PhysicalSetOp{Op: core.IntersectOp}, nil
		}
		return nil, errors.Errorf("unknown set operation %q", o.SetOp)
	case "projection":
		return &core.PhysicalProjection{}, nil
	case "filter":
		return &core.PhysicalFilter{}, nil
	case "repeat":
		return &core.PhysicalRepeat{}, nil
	case "table_function":
		return &core.PhysicalTableFunction{}, nil
	case "values":
		return &core.PhysicalValues{}, nil
	case "assert_one_row":
		return &core.PhysicalAssertOneRow{}, nil
	}
	return nil, errors.Errorf("unknown operator kind %q", o.Kind)
}

func parseJoinType(s string) (core.JoinType, error) {
	switch s {
	case "", "inner":
		return core.InnerJoin, nil
	case "left_outer":
		return core.LeftOuterJoin, nil
	case "right_outer":
		return core.RightOuterJoin, nil
	case "full_outer":
		return core.FullOuterJoin, nil
	case "left_semi":
		return core.LeftSemiJoin, nil
	case "right_semi":
		return core.RightSemiJoin, nil
	case "left_anti":
		return core.LeftAntiJoin, nil
	case "right_anti":
		return core.RightAntiJoin, nil
	case "null_aware_left_anti":
		return core.NullAwareLeftAntiJoin, nil
	case "cross":
		return core.CrossJoin, nil
	}
	return 0, errors.Errorf("unknown join type %q", s)
}

func parseHint(s string) (core.JoinHint, error) {
	switch s {
	case "":
		return core.HintNone, nil
	case "broadcast":
		return core.HintBroadcast, nil
	case "shuffle":
		return core.HintShuffle, nil
	case "bucket":
		return core.HintBucket, nil
	}
	return 0, errors.Errorf("unknown join hint %q", s)
}

func parseHashSource(s string) (property.HashSourceType, error) {
	switch s {
	case "shuffle_join":
		return property.ShuffleJoin, nil
	case "shuffle_agg":
		return property.ShuffleAgg, nil
	case "", "local":
		return property.Local, nil
	}
	return 0, errors.Errorf("unknown hash source %q", s)
}

func columnIDs(ids []int) []property.ColumnID {
	cols := make([]property.ColumnID, 0, len(ids))
	for _, id := range ids {
		cols = append(cols, property.ColumnID(id))
	}
	return cols
}

func sortItems(items []sortItemFixture) []property.SortItem {
	out := make([]property.SortItem, 0, len(items))
	for _, item := range items {
		out = append(out, property.SortItem{
			Col:        property.ColumnID(item.Col),
			Desc:       item.Desc,
			NullsFirst: item.NullsFirst,
		})
	}
	return out
}
