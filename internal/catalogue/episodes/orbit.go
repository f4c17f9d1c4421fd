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
	"math"

	"github.com/basaltlabs/botcore/internal/engine"
	"github.com/basaltlabs/botcore/internal/worldclient"
)

// Orbit has both peers circle a shared center point at a fixed radius,
// each step advancing the same angular increment so their relative
// position never drifts.
type Orbit struct {
	engine.NoSetup
	engine.NoTeardown
}

// Name implements engine.EpisodeType.
func (Orbit) Name() string { return "orbit" }

// WorksInNonFlatWorld implements engine.EpisodeType.
func (Orbit) WorksInNonFlatWorld() bool { return true }

// MinInitDistance implements engine.EpisodeType.
func (Orbit) MinInitDistance() float64 { return 4 }

// MaxInitDistance implements engine.EpisodeType.
func (Orbit) MaxInitDistance() float64 { return 10 }

// EntryPoint implements engine.EpisodeType.
func (Orbit) EntryPoint(ctx *engine.EpisodeContext) error {
	radius := ctx.RNG.NextFloatRange(3, 6)
	steps := ctx.RNG.NextInt(8, 16)
	angleStep := 2 * math.Pi / float64(steps)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.StopRequested():
			return nil
		default:
		}
		angle := angleStep * float64(i)
		pos := worldclient.Position{X: radius * math.Cos(angle), Z: radius * math.Sin(angle)}
		if _, err := ctx.Rendezvous(fmt.Sprintf("orbit/step[%d]", i), &engine.PhasePayload{Position: &pos, Status: "orbiting"}); err != nil {
			return err
		}
	}
	return nil
}
