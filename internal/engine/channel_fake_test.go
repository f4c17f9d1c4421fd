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
	"encoding/json"
	"sync"

	"github.com/basaltlabs/botcore/internal/peernet"
)

type loopbackKey struct {
	name string
	idx  int
}

// loopbackChannel is a single-process stand-in for a peernet.Coordinator
// pair: every Send immediately invokes whatever Once listener is currently
// registered for the same (eventName, episodeIndex), simulating a peer
// that echoes every phase straight back. That is enough to drive an
// Engine through a full episode without real sockets.
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
