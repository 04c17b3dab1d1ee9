// Copyright 2026 The nutsdb Author. All rights reserved.
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
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	config  string
	verbose bool
	explain bool
	stats   bool
	prom    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "scanexec [command] (flags)",
		Short: "build and run scan plans over an in-memory demo database",
		Long: `
Each command loads a small demo collection, builds the scan plan the flags
describe, runs it to completion and prints the rows it returned.
`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.config, "config", "", "TOML file with DB options")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log at debug level to stderr")
	flags.BoolVar(&g.explain, "explain", false, "print the plan tree")
	flags.BoolVar(&g.stats, "stats", false, "print execution stats per stage")
	flags.BoolVar(&g.prom, "prometheus", false, "collect and print Prometheus metrics")

	rootCmd.AddCommand(
		newCollScanCmd(g),
		newOplogCmd(g),
		newIxScanCmd(g),
	)
	return rootCmd
}

func main() {
	cobra.EnableCommandSorting = false

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
