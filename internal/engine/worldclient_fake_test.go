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
	"sync"

	"github.com/basaltlabs/botcore/internal/worldclient"
)

// fakeWorld is a minimal worldclient.Client stand-in that records calls and
// can be told to fail the next N teleports, used to exercise the
// teleport-retry path without a real world-server connection.
type fakeWorld struct {
	mu             sync.Mutex
	teleportCalls  int
	failNTeleports int
	deaths         chan string
}

func (w *fakeWorld) Teleport(context.Context, string, worldclient.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teleportCalls++
	if w.failNTeleports > 0 {
		w.failNTeleports--
		return errTeleportBlocked
	}
	return nil
}

func (w *fakeWorld) Summon(context.Context, string, worldclient.Position) error { return nil }
func (w *fakeWorld) Give(context.Context, string, string, int) error            { return nil }
func (w *fakeWorld) Effect(context.Context, string, string, int) error          { return nil }
func (w *fakeWorld) SetRule(context.Context, string, string) error              { return nil }
func (w *fakeWorld) SetDifficulty(context.Context, string) error                { return nil }
func (w *fakeWorld) DeathEvents() <-chan string                                 { return w.deaths }

func (w *fakeWorld) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.teleportCalls
}

var errTeleportBlocked = &Fault{Class: ClassWorld}
