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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/basaltlabs/botcore/internal/catalogue"
	"github.com/basaltlabs/botcore/internal/catalogue/episodes"
)

// RootCmd is episodectl's entry point: an operator inspection CLI around
// the compiled-in episode catalogue and session config, independent of the
// running agent process.
var RootCmd = &cobra.Command{
	Use:   "episodectl",
	Short: "Inspect the episode catalogue and validate session configs",
}

var rootVerboseFlag bool

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Called
// by every subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// defaultCatalogue mirrors cmd/agent's compiled-in set so this tool reports
// against exactly what the agent process would run.
func defaultCatalogue() *catalogue.Catalogue {
	return catalogue.New(
		episodes.Chase{},
		episodes.Orbit{},
		episodes.Build{},
		episodes.Mine{},
		episodes.Combat{},
	)
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
