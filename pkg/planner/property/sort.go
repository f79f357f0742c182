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

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// SortItem is one column of a sort order.
type SortItem struct {
	Col        ColumnID
	Desc       bool
	NullsFirst bool
}

// String implements fmt.Stringer.
func (i SortItem) String() string {
	dir := "ASC"
	if i.Desc {
		dir = "DESC"
	}
	nulls := "NULLS LAST"
	if i.NullsFirst {
		nulls = "NULLS FIRST"
	}
	return fmt.Sprintf("%d %s %s", i.Col, dir, nulls)
}

// SortProperty is an ordered column list a fragment is known or required to be
// sorted on. The zero value means unordered.
type SortProperty struct {
	items []SortItem
}

// NewSortProperty builds a SortProperty from items.
func NewSortProperty(items []SortItem) SortProperty {
	return SortProperty{items: slices.Clone(items)}
}

// IsEmpty reports whether no order is known or required.
func (p SortProperty) IsEmpty() bool {
	return len(p.items) == 0
}

// Items returns the sort columns in order. Callers must not modify it.
func (p SortProperty) Items() []SortItem {
	return p.items
}

// Equals reports structural equality.
func (p SortProperty) Equals(other SortProperty) bool {
	return slices.Equal(p.items, other.items)
}

// HashCode returns a structural key suitable for memo maps.
func (p SortProperty) HashCode() []byte {
	buf := make([]byte, 0, len(p.items)*8)
	for _, item := range p.items {
		buf = binary.AppendVarint(buf, int64(item.Col))
		var flags byte
		if item.Desc {
			flags |= 1
		}
		if item.NullsFirst {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	return buf
}

// String implements fmt.Stringer.
func (p SortProperty) String() string {
	if p.IsEmpty() {
		return "NO_SORT"
	}
	parts := make([]string, 0, len(p.items))
	for _, item := range p.items {
		parts = append(parts, item.String())
	}
	return "SORT[" + strings.Join(parts, ", ") + "]"
}
