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
	"context"
	"encoding/json"
	"sync"

	"github.com/basaltlabs/botcore/internal/peernet"
	"github.com/basaltlabs/botcore/internal/worldclient"
)

type loopbackKey struct {
	name string
	idx  int
}

// loopbackChannel mirrors the engine package's test double: every Send
// immediately invokes the matching Once listener, simulating a peer that
// echoes every phase straight back.
type loopbackChannel struct {
	mu        sync.Mutex
	listeners map[loopbackKey]peernet.EventHandler
	sent      []string
}

func newLoopbackChannel() *loopbackChannel {
	return &loopbackChannel{listeners: make(map[loopbackKey]peernet.EventHandler)}
}

func (c *loopbackChannel) Send(eventName string, params any, episodeIndex int) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	key := loopbackKey{eventName, episodeIndex}
	c.mu.Lock()
	c.sent = append(c.sent, eventName)
	h, ok := c.listeners[key]
	if ok {
		delete(c.listeners, key)
	}
	c.mu.Unlock()
	if ok {
		h(&peernet.Message{EventName: eventName, EventParams: body, EpisodeIndex: episodeIndex})
	}
	return nil
}

func (c *loopbackChannel) Once(eventName string, episodeIndex int, handler peernet.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[loopbackKey{eventName, episodeIndex}] = handler
}

func (c *loopbackChannel) ClearScope(episodeIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.listeners {
		if k.idx == episodeIndex {
			delete(c.listeners, k)
		}
	}
}

func (c *loopbackChannel) sentEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// fakeWorld records every admin-channel call it receives; none of it fails,
// these tests exercise phase sequencing, not world-error recovery (that is
// engine's teleport-retry test).
type fakeWorld struct {
	mu           sync.Mutex
	teleports    int
	summons      int
	gives        int
	effects      int
	difficulties []string
}

func (w *fakeWorld) Teleport(context.Context, string, worldclient.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teleports++
	return nil
}

func (w *fakeWorld) Summon(context.Context, string, worldclient.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summons++
	return nil
}

func (w *fakeWorld) Give(context.Context, string, string, int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gives++
	return nil
}

func (w *fakeWorld) Effect(context.Context, string, string, int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.effects++
	return nil
}

func (w *fakeWorld) SetRule(context.Context, string, string) error { return nil }

func (w *fakeWorld) SetDifficulty(context.Context, string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.difficulties = append(w.difficulties, "set")
	return nil
}

func (w *fakeWorld) DeathEvents() <-chan string { return nil }
