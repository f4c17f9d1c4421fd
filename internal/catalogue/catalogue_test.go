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

package catalogue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basaltlabs/botcore/internal/config"
	"github.com/basaltlabs/botcore/internal/engine"
	"github.com/basaltlabs/botcore/internal/rng"
)

type stubType struct {
	engine.NoSetup
	engine.NoTeardown
	name    string
	nonFlat bool
}

func (s *stubType) Name() string                                { return s.name }
func (s *stubType) WorksInNonFlatWorld() bool                   { return s.nonFlat }
func (s *stubType) MinInitDistance() float64                    { return 1 }
func (s *stubType) MaxInitDistance() float64                    { return 2 }
func (s *stubType) EntryPoint(ctx *engine.EpisodeContext) error { return nil }

func newTestCatalogue() *Catalogue {
	return New(
		&stubType{name: "chase", nonFlat: true},
		&stubType{name: "orbit", nonFlat: true},
		&stubType{name: "build", nonFlat: false},
	)
}

func TestCatalogueNamesAlphabetical(t *testing.T) {
	c := newTestCatalogue()
	require.Equal(t, []string{"build", "chase", "orbit"}, c.Names())
}

func TestCatalogueNewPanicsOnDuplicateName(t *testing.T) {
	require.Panics(t, func() {
		New(&stubType{name: "chase"}, &stubType{name: "chase"})
	})
}

func TestFilterByWorldType(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.WorldType = config.WorldFlat
	cfg.AllowedTypes = []string{config.AllEpisodeTypes}

	filtered := c.Filter(cfg)
	require.Len(t, filtered, 3, "flat world admits every type regardless of WorksInNonFlatWorld")

	cfg.WorldType = config.WorldNormal
	filtered = c.Filter(cfg)
	names := make([]string, len(filtered))
	for i, t := range filtered {
		names[i] = t.Name()
	}
	require.Equal(t, []string{"chase", "orbit"}, names, "normal world excludes build, which only works flat")
}

func TestFilterByAllowedNames(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.WorldType = config.WorldFlat
	cfg.AllowedTypes = []string{"chase"}

	filtered := c.Filter(cfg)
	require.Len(t, filtered, 1)
	require.Equal(t, "chase", filtered[0].Name())
}

func TestValidateAllowedTypesRejectsUnknownName(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.AllowedTypes = []string{"nonexistent"}

	err := c.ValidateAllowedTypes(cfg)
	require.Error(t, err)
}

func TestValidateAllowedTypesAcceptsAllSentinel(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	require.NoError(t, c.ValidateAllowedTypes(cfg))
}

func TestSelectorNormalModeDeterministicAcrossTwoStreamsWithSameSeed(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.WorldType = config.WorldFlat
	filtered := c.Filter(cfg)

	selA := NewSelector(filtered, rng.NewSelectionStream("shared-seed"), false, 0)
	selB := NewSelector(filtered, rng.NewSelectionStream("shared-seed"), false, 0)

	for i := 0; i < 50; i++ {
		ta, err := selA.Pick(i)
		require.NoError(t, err)
		tb, err := selB.Pick(i)
		require.NoError(t, err)
		require.Equal(t, ta.Name(), tb.Name())
	}
}

func TestSelectorSmokeTestIteratesAlphabeticallyAndClamps(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.WorldType = config.WorldFlat
	filtered := c.Filter(cfg) // build, chase, orbit

	sel := NewSelector(filtered, nil, true, 0)
	require.Equal(t, 3, sel.Len())
	require.Equal(t, 3, sel.EffectiveEpisodeCount(5), "requested above the filtered set size clamps down")
	require.Equal(t, 3, sel.EffectiveEpisodeCount(1), "requested below the filtered set size still runs every type once")

	for i, want := range []string{"build", "chase", "orbit"} {
		got, err := sel.Pick(i)
		require.NoError(t, err)
		require.Equal(t, want, got.Name())
	}
}

func TestSelectorSmokeTestHonorsNonZeroStartIndex(t *testing.T) {
	c := newTestCatalogue()
	cfg := config.DefaultConfig()
	cfg.WorldType = config.WorldFlat
	filtered := c.Filter(cfg) // build, chase, orbit

	sel := NewSelector(filtered, nil, true, 7)
	for i, want := range []string{"build", "chase", "orbit"} {
		got, err := sel.Pick(7 + i)
		require.NoError(t, err)
		require.Equal(t, want, got.Name())
	}

	_, err := sel.Pick(6)
	require.Error(t, err, "an index before startIndex is out of range")
}

func TestSelectorEmptyFilteredSetIsError(t *testing.T) {
	sel := NewSelector(nil, rng.NewSelectionStream("x"), false, 0)
	_, err := sel.Pick(0)
	require.Error(t, err)
}

func TestSelectorEmptyFilteredSetInSmokeTestModeClampsToZero(t *testing.T) {
	sel := NewSelector(nil, nil, true, 0)
	require.Equal(t, 0, sel.EffectiveEpisodeCount(5))
}
