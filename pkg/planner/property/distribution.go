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

// DistributionType tags the variant held by a DistributionSpec.
type DistributionType int

const (
	// AnyType places no constraint on how rows are distributed.
	AnyType DistributionType = iota
	// GatherType collapses all rows onto a single instance.
	GatherType
	// ReplicatedType keeps a full copy of the data on every instance.
	ReplicatedType
	// HashType hashes rows across instances by a column list.
	HashType
)

// HashSourceType records which strategy produced (or requires) a hash
// distribution. The pairing semantics of the column list differ per source.
type HashSourceType int

const (
	// ShuffleJoin repartitions a join side by its equality-predicate columns.
	ShuffleJoin HashSourceType = iota
	// ShuffleAgg repartitions aggregation input by its grouping columns.
	ShuffleAgg
	// Local means rows are already co-located on the columns without any data
	// movement. It is only meaningful as a requirement or as the intrinsic
	// layout exposed by a base table scan, never the product of an exchange.
	Local
)

// String implements fmt.Stringer.
func (s HashSourceType) String() string {
	switch s {
	case ShuffleJoin:
		return "SHUFFLE_JOIN"
	case ShuffleAgg:
		return "SHUFFLE_AGG"
	case Local:
		return "LOCAL"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// LimitUnset marks a gather distribution with no row cap.
const LimitUnset int64 = -1

// DistributionSpec is an immutable description of how rows are spread across
// execution instances: Any, Gather with an optional row cap, Replicated, or
// Hash over an order-significant column list. The zero value is Any.
type DistributionSpec struct {
	tp     DistributionType
	limit  int64
	cols   []ColumnID
	source HashSourceType
}

// NewAnySpec returns the unconstrained distribution.
func NewAnySpec() DistributionSpec {
	return DistributionSpec{tp: AnyType, limit: LimitUnset}
}

// NewGatherSpec returns a gather distribution with no row cap.
func NewGatherSpec() DistributionSpec {
	return DistributionSpec{tp: GatherType, limit: LimitUnset}
}

// NewLimitGatherSpec returns a gather distribution that only needs to produce
// limit rows, so the cap can ride down with the requirement.
func NewLimitGatherSpec(limit int64) DistributionSpec {
	return DistributionSpec{tp: GatherType, limit: limit}
}

// NewReplicatedSpec returns the broadcast distribution.
func NewReplicatedSpec() DistributionSpec {
	return DistributionSpec{tp: ReplicatedType, limit: LimitUnset}
}

// NewHashSpec returns a hash distribution over cols. The column order is
// significant: shuffle columns are paired positionally against the partner
// side of a join. Shuffle sources must name at least one column.
func NewHashSpec(cols []ColumnID, source HashSourceType) DistributionSpec {
	if len(cols) == 0 && source != Local {
		panic(fmt.Sprintf("hash distribution with source %s requires at least one column", source))
	}
	return DistributionSpec{
		tp:     HashType,
		limit:  LimitUnset,
		cols:   slices.Clone(cols),
		source: source,
	}
}

// NewLocalSpec returns a hash distribution meaning rows are already
// co-located on cols without data movement.
func NewLocalSpec(cols []ColumnID) DistributionSpec {
	return NewHashSpec(cols, Local)
}

// Type returns the variant tag.
func (s DistributionSpec) Type() DistributionType {
	return s.tp
}

// IsAny reports whether the spec places no constraint.
func (s DistributionSpec) IsAny() bool {
	return s.tp == AnyType
}

// IsGather reports whether the spec collapses rows to one instance.
func (s DistributionSpec) IsGather() bool {
	return s.tp == GatherType
}

// IsReplicated reports whether the spec broadcasts rows to every instance.
func (s DistributionSpec) IsReplicated() bool {
	return s.tp == ReplicatedType
}

// IsShuffle reports whether the spec is any hash distribution.
func (s DistributionSpec) IsShuffle() bool {
	return s.tp == HashType
}

// IsLocal reports whether the spec is a hash distribution that must be
// satisfied without data movement.
func (s DistributionSpec) IsLocal() bool {
	return s.tp == HashType && s.source == Local
}

// HashColumns returns the hash column list. Callers must not modify it.
func (s DistributionSpec) HashColumns() []ColumnID {
	return s.cols
}

// HashSource returns the hash source kind. Only meaningful for HashType.
func (s DistributionSpec) HashSource() HashSourceType {
	return s.source
}

// GatherLimit returns the row cap of a gather distribution and whether one is
// set.
func (s DistributionSpec) GatherLimit() (int64, bool) {
	if s.tp != GatherType || s.limit == LimitUnset {
		return 0, false
	}
	return s.limit, true
}

// Equals reports structural equality.
func (s DistributionSpec) Equals(other DistributionSpec) bool {
	if s.tp != other.tp {
		return false
	}
	switch s.tp {
	case GatherType:
		return s.limit == other.limit
	case HashType:
		return s.source == other.source && slices.Equal(s.cols, other.cols)
	default:
		return true
	}
}

// HashCode returns a structural key suitable for memo maps.
func (s DistributionSpec) HashCode() []byte {
	buf := make([]byte, 0, 8+len(s.cols)*8)
	buf = append(buf, byte(s.tp))
	switch s.tp {
	case GatherType:
		buf = binary.AppendVarint(buf, s.limit)
	case HashType:
		buf = append(buf, byte(s.source))
		for _, c := range s.cols {
			buf = binary.AppendVarint(buf, int64(c))
		}
	}
	return buf
}

// String implements fmt.Stringer.
func (s DistributionSpec) String() string {
	switch s.tp {
	case AnyType:
		return "ANY"
	case GatherType:
		if s.limit != LimitUnset {
			return fmt.Sprintf("GATHER(limit=%d)", s.limit)
		}
		return "GATHER"
	case ReplicatedType:
		return "REPLICATED"
	case HashType:
		parts := make([]string, 0, len(s.cols))
		for _, c := range s.cols {
			parts = append(parts, fmt.Sprintf("%d", c))
		}
		return fmt.Sprintf("HASH(%s)[%s]", strings.Join(parts, ","), s.source)
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s.tp))
}
