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

package episodes

import (
	"fmt"

	"github.com/basaltlabs/botcore/internal/engine"
)

// Mine has both peers dig towards a shared ore vein, lowered difficulty
// during the episode so mob interference does not pollute the mining
// data, restored at teardown.
type Mine struct {
	engine.NoSetup
}

// Name implements engine.EpisodeType.
func (Mine) Name() string { return "mine" }

// WorksInNonFlatWorld implements engine.EpisodeType.
func (Mine) WorksInNonFlatWorld() bool { return true }

// MinInitDistance implements engine.EpisodeType.
func (Mine) MinInitDistance() float64 { return 2 }

// MaxInitDistance implements engine.EpisodeType.
func (Mine) MaxInitDistance() float64 { return 5 }

// EntryPoint implements engine.EpisodeType.
func (Mine) EntryPoint(ctx *engine.EpisodeContext) error {
	if ctx.Primary {
		if err := ctx.World.SetDifficulty(ctx.Context, "peaceful"); err != nil {
			return fmt.Errorf("lowering difficulty for mining: %w", err)
		}
	}

	depth := ctx.RNG.NextInt(6, 14)
	for i := 0; i < depth; i++ {
		select {
		case <-ctx.StopRequested():
			return nil
		default:
		}
		if _, err := ctx.Rendezvous(fmt.Sprintf("mine/dig[%d]", i), &engine.PhasePayload{Status: "digging"}); err != nil {
			return err
		}
	}
	return nil
}

// Teardown implements engine.EpisodeType.
func (Mine) Teardown(ctx *engine.EpisodeContext) error {
	if !ctx.Primary {
		return nil
	}
	if err := ctx.World.SetDifficulty(ctx.Context, "normal"); err != nil {
		return fmt.Errorf("restoring difficulty after mining: %w", err)
	}
	return nil
}
