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
	"context"
	"encoding/json"

	"github.com/basaltlabs/botcore/internal/rng"
	"github.com/basaltlabs/botcore/internal/worldclient"
)

// PhasePayload is the envelope every phase message carries: a position
// and/or a free-form status string, plus an episode-type-specific blob the
// wire layer never inspects.
type PhasePayload struct {
	Position *worldclient.Position `json:"position,omitempty"`
	Status   string                `json:"status,omitempty"`
	Extra    json.RawMessage       `json:"extra,omitempty"`
}

// EpisodeContext is handed to every EpisodeType callback. It bundles the
// per-episode RNG, the world control surface, and the rendezvous primitive,
// so an entry_point never touches the engine's internal state directly.
type EpisodeContext struct {
	context.Context

	EpisodeIndex int
	OwnName      string
	PeerName     string
	// Primary is true on the lexicographically smaller-named peer, the
	// tie-break used whenever exactly one side must act.
	Primary bool

	World worldclient.Client
	RNG   *rng.Stream

	engine *Engine
}

// Rendezvous runs the register-then-send handshake for phase name: it
// registers a one-shot listener for name before sending name to the peer,
// then blocks until the peer's matching message arrives or the phase
// deadline elapses.
func (c *EpisodeContext) Rendezvous(name string, out *PhasePayload) (*PhasePayload, error) {
	return c.engine.rendezvous(c.Context, name, c.EpisodeIndex, out)
}

// TriggerStop begins the STOP transition for the current episode. Safe to
// call multiple times, concurrently, or alongside an internally-detected
// fault: only the first caller's reason is recorded.
func (c *EpisodeContext) TriggerStop(fault *Fault) {
	c.engine.requestStop(fault)
}

// StopRequested returns a channel that closes the moment any trigger (this
// call, a concurrent agent-death or peer-error notification, or the
// engine's own post-entry_point bookkeeping) enters STOP for this episode.
// entry_point bodies that otherwise block (waiting on the world, on a
// long-running goal) should select on it to return promptly.
func (c *EpisodeContext) StopRequested() <-chan struct{} {
	return c.engine.stopSignal()
}
