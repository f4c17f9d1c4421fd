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

const buildMaterial = "minecraft:oak_planks"

// Build runs a fixed number of block-placement phases, alternating which
// side the phase status names as the placer; no placement command is sent
// to the world. Only flat worlds are supported.
type Build struct {
	engine.NoTeardown
}

// Name implements engine.EpisodeType.
func (Build) Name() string { return "build" }

// WorksInNonFlatWorld implements engine.EpisodeType.
func (Build) WorksInNonFlatWorld() bool { return false }

// MinInitDistance implements engine.EpisodeType.
func (Build) MinInitDistance() float64 { return 3 }

// MaxInitDistance implements engine.EpisodeType.
func (Build) MaxInitDistance() float64 { return 6 }

// Setup implements engine.EpisodeType. Only the primary issues the
// admin-channel give command; issuing it from both sides would double the
// material count on a shared inventory.
func (Build) Setup(ctx *engine.EpisodeContext) error {
	if !ctx.Primary {
		return nil
	}
	if err := ctx.World.Give(ctx.Context, ctx.OwnName, buildMaterial, 64); err != nil {
		return fmt.Errorf("provisioning build materials: %w", err)
	}
	if err := ctx.World.Give(ctx.Context, ctx.PeerName, buildMaterial, 64); err != nil {
		return fmt.Errorf("provisioning build materials: %w", err)
	}
	return nil
}

// EntryPoint implements engine.EpisodeType.
func (Build) EntryPoint(ctx *engine.EpisodeContext) error {
	blocks := ctx.RNG.NextInt(10, 25)
	for i := 0; i < blocks; i++ {
		select {
		case <-ctx.StopRequested():
			return nil
		default:
		}
		placer := ctx.OwnName
		if i%2 == 1 {
			placer = ctx.PeerName
		}
		if _, err := ctx.Rendezvous(fmt.Sprintf("build/place[%d]", i), &engine.PhasePayload{Status: fmt.Sprintf("placed by %s", placer)}); err != nil {
			return err
		}
	}
	return nil
}
