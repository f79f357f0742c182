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

// propderive derives the admissible physical property alternatives for a plan
// snapshot, for inspecting what the optimizer would consider for a query
// shape without running a cluster.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ROBODRILL/starrocks/pkg/config"
	"github.com/ROBODRILL/starrocks/pkg/metrics"
	"github.com/ROBODRILL/starrocks/pkg/planner/core"
	"github.com/ROBODRILL/starrocks/pkg/util/logutil"
)

var (
	planPath   string
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "propderive",
		Short: "Derive physical property alternatives for a plan snapshot",
	}

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the alternatives for the root operator of a plan fixture",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDerive()
		},
	}
	deriveCmd.Flags().StringVar(&planPath, "plan", "", "path of the JSON plan fixture")
	deriveCmd.Flags().StringVar(&configPath, "config", "", "path of the TOML config file")
	if err := deriveCmd.MarkFlagRequired("plan"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(deriveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDerive() error {
	conf := config.GetGlobalConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.StoreGlobalConfig(loaded)
		conf = loaded
	}
	if err := logutil.InitLogger(conf.Log.Level, conf.Log.Format, conf.Log.File); err != nil {
		return err
	}
	metrics.RegisterMetrics()

	f, err := loadFixture(planPath)
	if err != nil {
		return err
	}
	required, err := f.buildRequired()
	if err != nil {
		return err
	}
	plan, err := f.Plan.buildPlan()
	if err != nil {
		return err
	}

	deriver := core.NewDeriver(f.buildColocateIndex(), config.NewSessionVars(conf))
	alts := deriver.DeriveAlternatives(required, plan.Op, plan)

	logutil.BgLogger().Info("derived alternatives",
		zap.String("operator", plan.Op.Kind().String()),
		zap.Stringer("required", required),
		zap.Int("count", len(alts)))

	if len(alts) == 0 {
		fmt.Printf("%s under %s: no legal physical realization\n", plan.Op.Kind(), required)
		return nil
	}
	fmt.Printf("%s under %s:\n", plan.Op.Kind(), required)
	for i, alt := range alts {
		fmt.Printf("  %d. %s\n", i+1, alt)
	}
	return nil
}
