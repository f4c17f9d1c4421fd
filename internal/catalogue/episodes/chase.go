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

// Package episodes holds the compiled-in episode types: chase, orbit,
// build, mine, combat.
package episodes

import (
	"fmt"

	"github.com/basaltlabs/botcore/internal/engine"
)

// Chase has the primary peer pursue the secondary for a fixed number of
// ticks, each tick a phase-rendezvous carrying a status string ("chasing"
// from the primary, "fleeing" from the secondary); no position is sent.
type Chase struct {
	engine.NoSetup
	engine.NoTeardown
}

// Name implements engine.EpisodeType.
func (Chase) Name() string { return "chase" }

// WorksInNonFlatWorld implements engine.EpisodeType.
func (Chase) WorksInNonFlatWorld() bool { return true }

// MinInitDistance implements engine.EpisodeType.
func (Chase) MinInitDistance() float64 { return 8 }

// MaxInitDistance implements engine.EpisodeType.
func (Chase) MaxInitDistance() float64 { return 20 }

// EntryPoint implements engine.EpisodeType.
func (Chase) EntryPoint(ctx *engine.EpisodeContext) error {
	ticks := ctx.RNG.NextInt(5, 12)
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.StopRequested():
			return nil
		default:
		}
		status := "chasing"
		if !ctx.Primary {
			status = "fleeing"
		}
		if _, err := ctx.Rendezvous(fmt.Sprintf("chase/tick[%d]", i), &engine.PhasePayload{Status: status}); err != nil {
			return err
		}
	}
	return nil
}
