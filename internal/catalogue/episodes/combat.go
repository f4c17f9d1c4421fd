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
	"github.com/basaltlabs/botcore/internal/worldclient"
)

const combatHostile = "minecraft:zombie"

// Combat summons a hostile entity between the two peers and has them fight
// it in rounds; an agent death mid-episode is caught by the engine via the
// normal agent-death path, not here.
type Combat struct {
	engine.NoTeardown
}

// Name implements engine.EpisodeType.
func (Combat) Name() string { return "combat" }

// WorksInNonFlatWorld implements engine.EpisodeType.
func (Combat) WorksInNonFlatWorld() bool { return true }

// MinInitDistance implements engine.EpisodeType.
func (Combat) MinInitDistance() float64 { return 1 }

// MaxInitDistance implements engine.EpisodeType.
func (Combat) MaxInitDistance() float64 { return 3 }

// Setup implements engine.EpisodeType. The primary summons the hostile at
// the zero position (world origin) and grants both agents a resistance effect so the
// encounter runs long enough to produce useful footage.
func (Combat) Setup(ctx *engine.EpisodeContext) error {
	if !ctx.Primary {
		return nil
	}
	if err := ctx.World.Summon(ctx.Context, combatHostile, worldclient.Position{}); err != nil {
		return fmt.Errorf("summoning combat encounter: %w", err)
	}
	for _, agent := range []string{ctx.OwnName, ctx.PeerName} {
		if err := ctx.World.Effect(ctx.Context, agent, "resistance", 60); err != nil {
			return fmt.Errorf("granting resistance to %s: %w", agent, err)
		}
	}
	return nil
}

// EntryPoint implements engine.EpisodeType.
func (Combat) EntryPoint(ctx *engine.EpisodeContext) error {
	rounds := ctx.RNG.NextInt(4, 10)
	for i := 0; i < rounds; i++ {
		select {
		case <-ctx.StopRequested():
			return nil
		default:
		}
		if _, err := ctx.Rendezvous(fmt.Sprintf("combat/round[%d]", i), &engine.PhasePayload{Status: "engaging"}); err != nil {
			return err
		}
	}
	return nil
}
