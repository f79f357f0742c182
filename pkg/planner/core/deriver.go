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
	"strings"

	"github.com/ROBODRILL/starrocks/pkg/config"
	"github.com/ROBODRILL/starrocks/pkg/meta"
	"github.com/ROBODRILL/starrocks/pkg/metrics"
	"github.com/ROBODRILL/starrocks/pkg/planner/property"
)

// Alternative is one admissible physical realization of an operator under a
// requirement: the property the operator would then output, paired with the
// property each child must in turn satisfy. The slice returned by the deriver
// is ordered cheapest-looking first; the search loop owns the actual choice.
type Alternative struct {
	Output        property.PhysicalPropertySet
	ChildRequired []property.PhysicalPropertySet
}

// String implements fmt.Stringer.
func (a Alternative) String() string {
	children := make([]string, 0, len(a.ChildRequired))
	for _, c := range a.ChildRequired {
		children = append(children, c.String())
	}
	return fmt.Sprintf("output=%s children=[%s]", a.Output, strings.Join(children, ", "))
}

// Deriver enumerates, per operator kind, the legal distributed execution
// strategies under a required physical property. It holds only read-only
// collaborators, so one Deriver may serve concurrent optimizer tasks; every
// derivation call keeps its state on its own stack.
type Deriver struct {
	meta meta.ColocationView
	vars *config.SessionVars
}

// NewDeriver builds a Deriver over the given metadata view and session
// variables. Both must stay consistent for the duration of each call.
func NewDeriver(view meta.ColocationView, vars *config.SessionVars) *Deriver {
	return &Deriver{meta: view, vars: vars}
}

// DeriveAlternatives returns the admissible (output property, child required
// properties) pairs for op under the required property. An empty result means
// the pair is physically unrealizable and must be pruned by the caller; it is
// an expected outcome, not an error. Identical inputs always produce
// identical, identically ordered results.
func (d *Deriver) DeriveAlternatives(required property.PhysicalPropertySet, op Operator, plan PlanView) []Alternative {
	metrics.DeriveAlternativesCounter.WithLabelValues(op.Kind().String()).Inc()
	var alts []Alternative
	switch x := op.(type) {
	case *PhysicalHashJoin:
		alts = d.deriveHashJoin(required, x, plan)
	case *PhysicalHashAgg:
		alts = d.deriveHashAgg(required, x, plan)
	case *PhysicalTableScan:
		alts = d.deriveTableScan(required, x)
	case *PhysicalExternalScan:
		alts = d.deriveExternalScan(required)
	case *PhysicalTopN:
		alts = d.deriveTopN(required, x, plan)
	case *PhysicalWindow:
		alts = d.deriveWindow(required, x)
	case *PhysicalSetOp:
		alts = d.deriveSetOp(required, plan)
	case *PhysicalProjection, *PhysicalFilter, *PhysicalRepeat, *PhysicalTableFunction:
		alts = d.derivePassThrough(required)
	case *PhysicalValues:
		alts = d.deriveValues(required)
	case *PhysicalAssertOneRow:
		alts = d.deriveAssertOneRow(required)
	default:
		panic(fmt.Sprintf("derive alternatives: unknown operator kind %T", op))
	}
	if len(alts) == 0 {
		metrics.DerivePrunedCounter.WithLabelValues(op.Kind().String()).Inc()
	}
	return alts
}

// requiredLocalColumns unwraps an active local hash requirement, if any.
func requiredLocalColumns(required property.PhysicalPropertySet) ([]property.ColumnID, bool) {
	dist := required.Distribution()
	if !dist.IsLocal() {
		return nil, false
	}
	return dist.HashColumns(), true
}

// distributeRequirements keeps the required distribution and drops the sort
// half; a rule that passes the requirement through leaves ordering to the
// enforcer.
func distributeRequirements(required property.PhysicalPropertySet) property.PhysicalPropertySet {
	return property.NewPropertySet(required.Distribution())
}

// limitGatherProperty gathers rows to one instance carrying the row cap down,
// with an explicitly empty sort order.
func limitGatherProperty(limit int64) property.PhysicalPropertySet {
	return property.NewPropertySetWithSort(property.NewLimitGatherSpec(limit), property.SortProperty{})
}
