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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/basaltlabs/botcore/internal/config"
)

var (
	listWorldTypeFlag    string
	listAllowedTypesFlag string
)

func init() {
	RootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listWorldTypeFlag, "world-type", "w", string(config.WorldNormal), `world type to filter against: "flat" or "normal"`)
	listCmd.Flags().StringVarP(&listAllowedTypesFlag, "allowed-types", "a", config.AllEpisodeTypes, `comma-separated episode type names, or "all"`)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the compiled-in episode catalogue and which types are eligible for a filter",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		cat := defaultCatalogue()
		cfg := config.DefaultConfig()
		cfg.WorldType = config.WorldType(listWorldTypeFlag)
		if listAllowedTypesFlag != "" && listAllowedTypesFlag != config.AllEpisodeTypes {
			cfg.AllowedTypes = strings.Split(listAllowedTypesFlag, ",")
		}

		if err := cat.ValidateAllowedTypes(cfg); err != nil {
			log.Fatal(err)
		}

		eligible := make(map[string]bool)
		for _, t := range cat.Filter(cfg) {
			eligible[t.Name()] = true
		}

		for _, name := range cat.Names() {
			mark := " "
			if eligible[name] {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, name)
		}
		fmt.Printf("\n%d/%d eligible for world_type=%s allowed_types=%s\n",
			len(eligible), len(cat.Names()), cfg.WorldType, listAllowedTypesFlag)
	},
}
