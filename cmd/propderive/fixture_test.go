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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ROBODRILL/starrocks/pkg/config"
	"github.com/ROBODRILL/starrocks/pkg/planner/core"
)

func TestLoadColocateJoinFixture(t *testing.T) {
	f, err := loadFixture("testdata/colocate_join.json")
	require.NoError(t, err)

	index := f.buildColocateIndex()
	require.True(t, index.IsSameGroup(1001, 1002))
	require.False(t, index.IsGroupUnstable(1))

	required, err := f.buildRequired()
	require.NoError(t, err)
	require.True(t, required.IsEmpty())

	plan, err := f.Plan.buildPlan()
	require.NoError(t, err)
	join, ok := plan.Op.(*core.PhysicalHashJoin)
	require.True(t, ok)
	require.Equal(t, core.InnerJoin, join.JoinType)
	require.Equal(t, 2, plan.ChildCount())

	deriver := core.NewDeriver(index, config.NewSessionVars(config.NewConfig()))
	alts := deriver.DeriveAlternatives(required, plan.Op, plan)
	// broadcast, shuffle, colocate
	require.Len(t, alts, 3)
}

func TestLoadFixtureErrors(t *testing.T) {
	_, err := loadFixture("testdata/no_such_file.json")
	require.Error(t, err)

	bad := &operatorFixture{Kind: "sort_merge_join"}
	_, err = bad.build()
	require.Error(t, err)

	f := &fixture{Required: &propertyFixture{Distribution: "round_robin"}}
	_, err = f.buildRequired()
	require.Error(t, err)
}
