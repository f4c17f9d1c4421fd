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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFaultClassString(t *testing.T) {
	require.Equal(t, "ConfigError", ClassConfig.String())
	require.Equal(t, "PeerLinkError", ClassPeerLink.String())
	require.Equal(t, "WorldError", ClassWorld.String())
	require.Equal(t, "PhaseTimeoutError", ClassPhaseTimeout.String())
	require.Equal(t, "AgentDeath", ClassAgentDeath.String())
	require.Equal(t, "InternalError", ClassInternal.String())
}

func TestFaultUnwrap(t *testing.T) {
	cause := errors.New("boom")
	f := NewFault(ClassWorld, cause)
	require.ErrorIs(t, f, cause)
	require.Contains(t, f.Error(), "WorldError")
	require.Contains(t, f.Error(), "boom")
}

func TestClassConstructors(t *testing.T) {
	var f *Fault
	f = ConfigErrorf("bad episode name %q", "nope")
	require.Equal(t, ClassConfig, f.Class)
	f = PeerLinkErrorf("dropped")
	require.Equal(t, ClassPeerLink, f.Class)
	f = WorldErrorf("teleport failed")
	require.Equal(t, ClassWorld, f.Class)
	f = PhaseTimeoutErrorf("deadline exceeded")
	require.Equal(t, ClassPhaseTimeout, f.Class)
	f = AgentDeathErrorf("agent Alpha died")
	require.Equal(t, ClassAgentDeath, f.Class)
	f = InternalErrorf("unexpected nil pointer")
	require.Equal(t, ClassInternal, f.Class)
}
