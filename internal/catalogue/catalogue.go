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

// Package catalogue holds the fixed, build-time set of episode types and
// picks one per episode, deterministically and identically on both peers.
package catalogue

import (
	"fmt"
	"sort"

	"github.com/basaltlabs/botcore/internal/config"
	"github.com/basaltlabs/botcore/internal/engine"
	"github.com/basaltlabs/botcore/internal/rng"
)

// Catalogue is the fixed mapping from episode-type name to descriptor. The
// set compiled in is immutable after New; only the enabled subset changes
// per session, via Filter.
type Catalogue struct {
	types map[string]engine.EpisodeType
}

// New builds a Catalogue from a set of episode types. Panics on a duplicate
// name, always a build-time bug.
func New(types ...engine.EpisodeType) *Catalogue {
	c := &Catalogue{types: make(map[string]engine.EpisodeType, len(types))}
	for _, t := range types {
		if _, dup := c.types[t.Name()]; dup {
			panic(fmt.Sprintf("catalogue: duplicate episode type name %q", t.Name()))
		}
		c.types[t.Name()] = t
	}
	return c
}

// Lookup returns the named type, if compiled in.
func (c *Catalogue) Lookup(name string) (engine.EpisodeType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Names returns every compiled-in type name in alphabetical order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter returns the enabled subset for a session: types allowed by cfg's
// allowed-names list (or all, under the "all" sentinel) and compatible with
// cfg's world type, in alphabetical order. The result is deterministic for
// a given (catalogue, config), the property both I5 and the smoke-test
// iteration order depend on.
func (c *Catalogue) Filter(cfg *config.Config) []engine.EpisodeType {
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, name := range cfg.AllowedTypes {
		allowed[name] = true
	}

	var out []engine.EpisodeType
	for _, name := range c.Names() {
		t := c.types[name]
		if !cfg.FiltersAll() && !allowed[name] {
			continue
		}
		if cfg.WorldType != config.WorldFlat && !t.WorksInNonFlatWorld() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ValidateAllowedTypes reports a ConfigError-class error if cfg names an
// episode type the catalogue does not know, the fatal-at-startup case
// (scenario 6: bad episode type).
func (c *Catalogue) ValidateAllowedTypes(cfg *config.Config) error {
	if cfg.FiltersAll() {
		return nil
	}
	for _, name := range cfg.AllowedTypes {
		if _, ok := c.types[name]; !ok {
			return engine.ConfigErrorf("catalogue: allowed_types names unknown episode type %q", name)
		}
	}
	return nil
}

// Selector picks one episode type per episode index, identically on both
// peers, from a session's filtered subset.
type Selector struct {
	filtered   []engine.EpisodeType
	selRNG     *rng.Stream
	smoke      bool
	startIndex int
}

// NewSelector builds a Selector over the given filtered set. selRNG must be
// the process's single selection stream (NewSelectionStream), consumed
// once per episode in episode-index order; callers must never share one
// selRNG across two Selectors. startIndex is the first episode index Pick
// will be called with (a session's StartEpisodeIndex); in smoke-test mode
// it anchors the alphabetical walk so a non-zero start still begins at the
// filtered set's first entry instead of running off the end.
func NewSelector(filtered []engine.EpisodeType, selRNG *rng.Stream, smokeTest bool, startIndex int) *Selector {
	return &Selector{filtered: filtered, selRNG: selRNG, smoke: smokeTest, startIndex: startIndex}
}

// Len returns the number of eligible episode types.
func (s *Selector) Len() int {
	return len(s.filtered)
}

// EffectiveEpisodeCount ignores requested in smoke-test mode and always
// returns the filtered set's size (exactly one episode per eligible type,
// no repeats, regardless of the session's configured episode count); in
// normal mode requested passes through unchanged.
func (s *Selector) EffectiveEpisodeCount(requested int) int {
	if !s.smoke {
		return requested
	}
	return len(s.filtered)
}

// Pick returns the episode type for episodeIndex. Normal mode draws once
// from the shared selection stream; smoke-test mode iterates the
// alphabetically-ordered filtered set directly (offset by the session's
// startIndex, so the walk begins at the filtered set's first entry
// regardless of which episode index the session starts counting from), so
// the two processes agree without needing the RNG at all in that mode.
func (s *Selector) Pick(episodeIndex int) (engine.EpisodeType, error) {
	if len(s.filtered) == 0 {
		return nil, fmt.Errorf("catalogue: no episode types eligible for this session's filter")
	}
	if s.smoke {
		offset := episodeIndex - s.startIndex
		if offset < 0 || offset >= len(s.filtered) {
			return nil, fmt.Errorf("catalogue: smoke-test episode index %d out of range [%d,%d)", episodeIndex, s.startIndex, s.startIndex+len(s.filtered))
		}
		return s.filtered[offset], nil
	}
	return rng.Choice(s.selRNG, s.filtered), nil
}
