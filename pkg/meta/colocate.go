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

package meta

import (
	"sync"

	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// TableID identifies a base table in the catalog.
type TableID int64

// GroupID identifies a colocation group: a set of tables whose partitions are
// deliberately co-located bucket-for-bucket by the storage layer.
type GroupID int64

// ColocationView is the read-only colocation metadata the planner consumes.
// Implementations must give consistent answers for the duration of one
// derivation call; they need not be globally synchronized across calls.
type ColocationView interface {
	// IsColocateTable reports whether the table belongs to any colocation group.
	IsColocateTable(id TableID) bool
	// IsSameGroup reports whether both tables belong to one colocation group.
	IsSameGroup(a, b TableID) bool
	// GroupOf returns the group of the table, if it has one.
	GroupOf(id TableID) (GroupID, bool)
	// IsGroupUnstable reports whether the group is being rebalanced. Joins must
	// not rely on colocation while replicas of the group are in flight.
	IsGroupUnstable(id GroupID) bool
}

// ColocateIndex is an in-memory ColocationView kept up to date by catalog
// events. Reads are lock-cheap and safe for concurrent planner tasks.
type ColocateIndex struct {
	mu sync.RWMutex
	// table -> group membership.
	groups map[TableID]GroupID
	// groups currently being rebalanced.
	unstable map[GroupID]struct{}
}

// NewColocateIndex returns an empty index.
func NewColocateIndex() *ColocateIndex {
	return &ColocateIndex{
		groups:   make(map[TableID]GroupID),
		unstable: make(map[GroupID]struct{}),
	}
}

// AddTableToGroup registers the table as a member of the group.
func (c *ColocateIndex) AddTableToGroup(id TableID, group GroupID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[id] = group
}

// RemoveTable drops the table's group membership.
func (c *ColocateIndex) RemoveTable(id TableID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groups, id)
}

// MarkGroupUnstable flags the group while its replicas are being moved.
func (c *ColocateIndex) MarkGroupUnstable(group GroupID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unstable[group]; !ok {
		log.L().Info("colocation group becomes unstable", zap.Int64("group", int64(group)))
	}
	c.unstable[group] = struct{}{}
}

// MarkGroupStable clears the unstable flag of the group.
func (c *ColocateIndex) MarkGroupStable(group GroupID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unstable, group)
}

// IsColocateTable implements ColocationView.
func (c *ColocateIndex) IsColocateTable(id TableID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.groups[id]
	return ok
}

// IsSameGroup implements ColocationView.
func (c *ColocateIndex) IsSameGroup(a, b TableID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ga, ok := c.groups[a]
	if !ok {
		return false
	}
	gb, ok := c.groups[b]
	return ok && ga == gb
}

// GroupOf implements ColocationView.
func (c *ColocateIndex) GroupOf(id TableID) (GroupID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[id]
	return g, ok
}

// IsGroupUnstable implements ColocationView.
func (c *ColocateIndex) IsGroupUnstable(id GroupID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.unstable[id]
	return ok
}
