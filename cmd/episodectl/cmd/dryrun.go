/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basaltlabs/botcore/internal/catalogue"
	"github.com/basaltlabs/botcore/internal/config"
	"github.com/basaltlabs/botcore/internal/rng"
)

func init() {
	RootCmd.AddCommand(dryRunCmd)
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run <config-file>",
	Short: "Print the episode type a session config would pick per index, without connecting to anything",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := config.ReadConfig(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		cfg.EnsureInstanceID()
		if err := cfg.Validate(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		cat := defaultCatalogue()
		if err := cat.ValidateAllowedTypes(cfg); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		filtered := cat.Filter(cfg)
		sel := catalogue.NewSelector(filtered, rng.NewSelectionStream(cfg.Seed), cfg.SmokeTest, cfg.StartEpisodeIndex)
		n := sel.EffectiveEpisodeCount(cfg.EpisodeCount)
		if n == 0 {
			fmt.Println("no episodes to run (empty filtered catalogue in smoke-test mode)")
			return
		}

		for i := cfg.StartEpisodeIndex; i < cfg.StartEpisodeIndex+n; i++ {
			epType, err := sel.Pick(i)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			fmt.Printf("%d: %s\n", i, epType.Name())
		}
	},
}
