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

// deriveTableScan derives a leaf scan. With several selected partitions of a
// non-colocate table the bucket-to-instance mapping is not statically known,
// so the scan promises nothing; otherwise it exposes the table's intrinsic
// bucket distribution. An active local requirement survives only when it
// covers the bucket columns.
func (d *Deriver) deriveTableScan(required property.PhysicalPropertySet, scan *PhysicalTableScan) []Alternative {
	var alts []Alternative
	if len(scan.SelectedPartitions) > 1 && !d.meta.IsColocateTable(scan.Table) {
		alts = append(alts, Alternative{Output: property.EmptyPropertySet()})
	} else {
		intrinsic := property.NewLocalSpec(scan.BucketColumns)
		alts = append(alts, Alternative{Output: property.NewPropertySet(intrinsic)})
	}

	reqCols, ok := requiredLocalColumns(required)
	if !ok {
		return alts
	}
	if property.NewColumnSet(reqCols...).ContainsAll(scan.BucketColumns) {
		return []Alternative{{Output: distributeRequirements(required)}}
	}
	return nil
}

// deriveExternalScan derives a leaf external scan, which guarantees no
// distribution and can never satisfy a local requirement.
func (d *Deriver) deriveExternalScan(required property.PhysicalPropertySet) []Alternative {
	if _, ok := requiredLocalColumns(required); ok {
		return nil
	}
	return []Alternative{{Output: property.EmptyPropertySet()}}
}

// deriveTopN derives a sort-with-limit. The partial phase imposes nothing;
// the final phase outputs the sort order, gathered when the sort was split.
// A limited child below an unsplit final sort is gathered first so its limit
// is honored before ordering. Top-N offers no local alternative.
func (d *Deriver) deriveTopN(required property.PhysicalPropertySet, topn *PhysicalTopN, plan PlanView) []Alternative {
	if _, ok := requiredLocalColumns(required); ok {
		return nil
	}

	var output property.PhysicalPropertySet
	if topn.Phase == SortPhaseFinal {
		sortProp := property.NewSortProperty(topn.OrderBy)
		if topn.Split {
			output = property.NewPropertySetWithSort(property.NewGatherSpec(), sortProp)
		} else {
			output = property.NewSortPropertySet(sortProp)
		}
	} else {
		output = property.EmptyPropertySet()
	}

	child := property.EmptyPropertySet()
	if plan.ChildHasLimit(0) && topn.Phase == SortPhaseFinal && !topn.Split {
		child = limitGatherProperty(plan.ChildLimit(0))
	}
	return []Alternative{{Output: output, ChildRequired: []property.PhysicalPropertySet{child}}}
}

// deriveWindow derives an analytic operator. The combined sort order is the
// partition columns (ascending, nulls first) followed by the order-by columns
// not already covered. Without partition columns everything is gathered; with
// them the two-phase shuffle and single-phase local shapes are offered, and a
// local requirement survives only when it covers the partition columns.
func (d *Deriver) deriveWindow(required property.PhysicalPropertySet, window *PhysicalWindow) []Alternative {
	items := make([]property.SortItem, 0, len(window.PartitionBy)+len(window.OrderBy))
	for _, col := range window.PartitionBy {
		items = append(items, property.SortItem{Col: col, NullsFirst: true})
	}
	for _, item := range window.OrderBy {
		covered := false
		for _, existing := range items {
			if existing.Col == item.Col {
				covered = true
				break
			}
		}
		if !covered {
			items = append(items, item)
		}
	}
	sortProp := property.NewSortProperty(items)

	if reqCols, ok := requiredLocalColumns(required); ok {
		if len(window.PartitionBy) == 0 ||
			!property.NewColumnSet(reqCols...).ContainsAll(window.PartitionBy) {
			return nil
		}
		local := property.NewPropertySetWithSort(property.NewLocalSpec(window.PartitionBy), sortProp)
		return []Alternative{{Output: local, ChildRequired: []property.PhysicalPropertySet{local}}}
	}

	if len(window.PartitionBy) == 0 {
		gather := property.NewPropertySetWithSort(property.NewGatherSpec(), sortProp)
		return []Alternative{{Output: gather, ChildRequired: []property.PhysicalPropertySet{gather}}}
	}

	shuffle := property.NewPropertySetWithSort(
		property.NewHashSpec(window.PartitionBy, property.ShuffleAgg), sortProp)
	local := property.NewPropertySetWithSort(property.NewLocalSpec(window.PartitionBy), sortProp)
	return []Alternative{
		{Output: shuffle, ChildRequired: []property.PhysicalPropertySet{shuffle}},
		{Output: local, ChildRequired: []property.PhysicalPropertySet{local}},
	}
}

// deriveSetOp derives an n-ary set operation. Set operators cannot keep rows
// co-located, so a local requirement yields nothing; exchange insertion for
// the children is left entirely to the enforcer, except that limited children
// are gathered to honor their limits.
func (d *Deriver) deriveSetOp(required property.PhysicalPropertySet, plan PlanView) []Alternative {
	if _, ok := requiredLocalColumns(required); ok {
		return nil
	}
	children := make([]property.PhysicalPropertySet, 0, plan.ChildCount())
	for i := 0; i < plan.ChildCount(); i++ {
		if plan.ChildHasLimit(i) {
			children = append(children, limitGatherProperty(plan.ChildLimit(i)))
		} else {
			children = append(children, property.EmptyPropertySet())
		}
	}
	return []Alternative{{Output: property.EmptyPropertySet(), ChildRequired: children}}
}

// derivePassThrough derives the operators that neither move nor reorder rows:
// projection, filter, repeat, table function. The requirement can be handed to
// the single child verbatim; without a local requirement the unconstrained
// shape is also offered for the search to cost.
func (d *Deriver) derivePassThrough(required property.PhysicalPropertySet) []Alternative {
	passDown := distributeRequirements(required)
	alts := []Alternative{{
		Output:        passDown,
		ChildRequired: []property.PhysicalPropertySet{passDown},
	}}
	if _, ok := requiredLocalColumns(required); ok {
		return alts
	}
	return append(alts, Alternative{
		Output:        property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{property.EmptyPropertySet()},
	})
}

// deriveValues derives a constant leaf, which can materialize under whatever
// distribution is asked of it.
func (d *Deriver) deriveValues(required property.PhysicalPropertySet) []Alternative {
	return []Alternative{{Output: distributeRequirements(required)}}
}

// deriveAssertOneRow derives the single-row assertion, which must see all
// rows on one instance to count them.
func (d *Deriver) deriveAssertOneRow(required property.PhysicalPropertySet) []Alternative {
	if _, ok := requiredLocalColumns(required); ok {
		return nil
	}
	gather := property.NewPropertySet(property.NewGatherSpec())
	return []Alternative{{
		Output:        property.EmptyPropertySet(),
		ChildRequired: []property.PhysicalPropertySet{gather},
	}}
}
