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

package engine

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/basaltlabs/botcore/internal/worldclient"
)

// maxTeleportAttempts bounds how many times the primary peer retries
// positioning before the phase is reported as a non-fatal warning.
const maxTeleportAttempts = 4

// runTeleport is the TELEPORT phase-rendezvous. Both peers draw the same
// (distance, angle) pair from the per-episode shared RNG so the stream
// stays in lockstep regardless of which side actually acts; only the
// primary (lexicographically smaller name) issues the positioning command,
// the secondary just waits at the rendezvous.
func (e *Engine) runTeleport(ectx *EpisodeContext, epType EpisodeType) error {
	minD, maxD := epType.MinInitDistance(), epType.MaxInitDistance()
	dist := ectx.RNG.NextFloatRange(minD, maxD)
	angle := ectx.RNG.NextFloatRange(0, 2*math.Pi)

	status := "waiting"
	var sendPos *worldclient.Position
	if ectx.Primary {
		pos, err := e.placeWithRetry(ectx, dist, angle)
		if err != nil {
			log.Warningf("engine: teleport positioning exhausted retries for episode %d: %v", ectx.EpisodeIndex, err)
			status = "positioning failed"
		} else {
			sendPos = &pos
			status = "positioned"
		}
	}

	_, err := e.rendezvous(ectx.Context, "teleport", ectx.EpisodeIndex, &PhasePayload{Position: sendPos, Status: status})
	return err
}

// placeWithRetry issues the teleport command, expanding the requested
// radius on each failed attempt (blocked terrain, etc.) up to
// maxTeleportAttempts. Exhaustion is reported to the caller, which treats
// it as a non-fatal warning and lets the episode proceed.
func (e *Engine) placeWithRetry(ectx *EpisodeContext, dist, angle float64) (worldclient.Position, error) {
	var lastErr error
	for attempt := 0; attempt < maxTeleportAttempts; attempt++ {
		expanded := dist * (1 + 0.5*float64(attempt))
		pos := worldclient.Position{X: expanded * math.Cos(angle), Z: expanded * math.Sin(angle)}
		if err := ectx.World.Teleport(ectx.Context, ectx.PeerName, pos); err != nil {
			lastErr = err
			if e.Metrics != nil {
				e.Metrics.IncTeleportRetries()
			}
			continue
		}
		return pos, nil
	}
	return worldclient.Position{}, fmt.Errorf("teleport failed after %d attempts: %w", maxTeleportAttempts, lastErr)
}
