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

// Package engine is the distributed phase state machine that drives one
// episode to completion in lockstep with the peer process.
package engine

import "github.com/basaltlabs/botcore/internal/peernet"

// PeerChannel is the slice of *peernet.Coordinator the engine depends on.
// Narrowing to an interface here, rather than taking a concrete
// *peernet.Coordinator, is what lets phase-rendezvous logic be exercised
// against a fake channel in tests instead of a pair of real TCP sockets.
type PeerChannel interface {
	Send(eventName string, params any, episodeIndex int) error
	Once(eventName string, episodeIndex int, handler peernet.EventHandler)
	ClearScope(episodeIndex int)
}

var _ PeerChannel = (*peernet.Coordinator)(nil)
