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
	"github.com/bits-and-blooms/bitset"
)

// ColumnID identifies one column produced somewhere in the plan. IDs are
// assigned by the plan builder and are unique within one optimization session.
type ColumnID int

// ColumnSet is a set of ColumnIDs backed by a dense bitset. It is used to
// answer origin questions such as "do all required columns come from this
// child's output".
type ColumnSet struct {
	bits *bitset.BitSet
}

// NewColumnSet builds a ColumnSet holding the given ids.
func NewColumnSet(ids ...ColumnID) *ColumnSet {
	s := &ColumnSet{bits: bitset.New(64)}
	for _, id := range ids {
		s.bits.Set(uint(id))
	}
	return s
}

// Insert adds id to the set.
func (s *ColumnSet) Insert(id ColumnID) {
	s.bits.Set(uint(id))
}

// Contains reports whether id is in the set.
func (s *ColumnSet) Contains(id ColumnID) bool {
	return s.bits.Test(uint(id))
}

// ContainsAll reports whether every id in ids is in the set.
func (s *ColumnSet) ContainsAll(ids []ColumnID) bool {
	for _, id := range ids {
		if !s.bits.Test(uint(id)) {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether the set contains every column of other.
func (s *ColumnSet) IsSupersetOf(other *ColumnSet) bool {
	return s.bits.IsSuperSet(other.bits)
}

// Equals reports whether two sets hold exactly the same columns.
func (s *ColumnSet) Equals(other *ColumnSet) bool {
	return s.bits.Equal(other.bits)
}

// Len returns the number of columns in the set.
func (s *ColumnSet) Len() int {
	return int(s.bits.Count())
}

// UnionWith adds every column of other into the set.
func (s *ColumnSet) UnionWith(other *ColumnSet) {
	s.bits.InPlaceUnion(other.bits)
}

// Clone returns a copy that shares no storage with s.
func (s *ColumnSet) Clone() *ColumnSet {
	return &ColumnSet{bits: s.bits.Clone()}
}

// Columns returns the ids in ascending order.
func (s *ColumnSet) Columns() []ColumnID {
	ids := make([]ColumnID, 0, s.bits.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		ids = append(ids, ColumnID(i))
	}
	return ids
}
