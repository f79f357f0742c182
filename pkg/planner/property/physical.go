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

package property

import "fmt"

// PhysicalPropertySet pairs a distribution with a sort order. It is the unit
// the search loop passes down as a requirement and receives back as an output
// guarantee. The zero value is the empty property: any distribution, no sort.
type PhysicalPropertySet struct {
	dist DistributionSpec
	sort SortProperty
}

// EmptyPropertySet returns the (Any, unordered) sentinel.
func EmptyPropertySet() PhysicalPropertySet {
	return PhysicalPropertySet{}
}

// NewPropertySet pairs a distribution with no sort order.
func NewPropertySet(dist DistributionSpec) PhysicalPropertySet {
	return PhysicalPropertySet{dist: dist}
}

// NewPropertySetWithSort pairs a distribution with a sort order.
func NewPropertySetWithSort(dist DistributionSpec, sort SortProperty) PhysicalPropertySet {
	return PhysicalPropertySet{dist: dist, sort: sort}
}

// NewSortPropertySet carries a sort order with no distribution constraint.
func NewSortPropertySet(sort SortProperty) PhysicalPropertySet {
	return PhysicalPropertySet{dist: NewAnySpec(), sort: sort}
}

// Distribution returns the distribution half of the pair.
func (p PhysicalPropertySet) Distribution() DistributionSpec {
	return p.dist
}

// Sort returns the sort half of the pair.
func (p PhysicalPropertySet) Sort() SortProperty {
	return p.sort
}

// IsEmpty reports whether the property constrains nothing.
func (p PhysicalPropertySet) IsEmpty() bool {
	return p.dist.IsAny() && p.sort.IsEmpty()
}

// Equals reports structural equality.
func (p PhysicalPropertySet) Equals(other PhysicalPropertySet) bool {
	return p.dist.Equals(other.dist) && p.sort.Equals(other.sort)
}

// HashCode returns a structural key suitable for memo maps.
func (p PhysicalPropertySet) HashCode() []byte {
	distCode := p.dist.HashCode()
	sortCode := p.sort.HashCode()
	buf := make([]byte, 0, len(distCode)+len(sortCode)+1)
	buf = append(buf, byte(len(distCode)))
	buf = append(buf, distCode...)
	buf = append(buf, sortCode...)
	return buf
}

// String implements fmt.Stringer.
func (p PhysicalPropertySet) String() string {
	if p.IsEmpty() {
		return "EMPTY"
	}
	return fmt.Sprintf("{%s, %s}", p.dist, p.sort)
}
