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

// EpisodeType is the polymorphic descriptor the catalogue hands the engine
// for one episode run. Concrete types live in internal/catalogue/episodes.
type EpisodeType interface {
	// Name is the stable, catalogue-unique identifier (used in the
	// persisted episode record's episode_type field).
	Name() string
	// WorksInNonFlatWorld reports world-filter eligibility: false means the
	// type is only ever selected when the session's world type is flat.
	WorksInNonFlatWorld() bool
	// MinInitDistance and MaxInitDistance bound the peer separation
	// requested at the teleport phase.
	MinInitDistance() float64
	MaxInitDistance() float64

	// Setup allocates per-episode state and configures the external world.
	// Optional: a type with nothing to do may embed NoSetup.
	Setup(ctx *EpisodeContext) error
	// EntryPoint drives one or more phase-rendezvous. Returning leaves
	// RUNNING: the engine then enters STOP itself, recording a returned
	// error as the stop cause.
	EntryPoint(ctx *EpisodeContext) error
	// Teardown cleans up per-episode state. Optional: embed NoTeardown.
	Teardown(ctx *EpisodeContext) error
}

// NoSetup is embeddable by episode types with nothing to do at setup.
type NoSetup struct{}

// Setup implements EpisodeType.
func (NoSetup) Setup(*EpisodeContext) error { return nil }

// NoTeardown is embeddable by episode types with nothing to do at teardown.
type NoTeardown struct{}

// Teardown implements EpisodeType.
func (NoTeardown) Teardown(*EpisodeContext) error { return nil }
