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

// Package recording manages the start/stop lifecycle of the external
// frame+state capture pipeline. The pipeline itself (video encoding, frame
// alignment) is out of scope; this package only owns the two abstract
// signals and their acknowledgements.
package recording

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Backend is the abstract capture pipeline binding. The concrete
// implementation (a local process, a sidecar over a socket, ...) is an
// implementation choice external to this package.
type Backend interface {
	// Start signals the pipeline to begin recording episodeIndex. Must not
	// block on pipeline readiness.
	Start(episodeIndex int) error
	// Stop signals the pipeline to end the current recording. Must not
	// block on pipeline shutdown.
	Stop() error
	// AwaitStopped blocks until the pipeline confirms it has fully closed
	// its connection, or ctx is done.
	AwaitStopped(ctx context.Context) error
}

// Controller drives a Backend through the start/stop lifecycle: stop is
// emitted if and only if start was emitted, and the stopped handshake only
// happens after recording confirms shutdown.
type Controller struct {
	backend Backend
	timeout time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
}

// New constructs a Controller. timeout bounds AwaitStopped: if the pipeline
// never confirms shutdown within it, the episode is torn down regardless.
func New(backend Backend, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Controller{backend: backend, timeout: timeout}
}

// SignalStart starts the recording for episodeIndex. Non-blocking. Sets the
// recording_started flag the episode record eventually reports.
func (c *Controller) SignalStart(episodeIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("recording: SignalStart called twice for the same episode")
	}
	log.Infof("recording: starting capture for episode %d", episodeIndex)
	if err := c.backend.Start(episodeIndex); err != nil {
		return fmt.Errorf("signalling recording start: %w", err)
	}
	c.started = true
	return nil
}

// Started reports whether SignalStart has been called for the current
// episode.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// SignalStop stops the current recording. Non-blocking. A no-op (returns
// nil) if SignalStart was never called or SignalStop already ran, since
// stop is only ever bound to a prior start.
func (c *Controller) SignalStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped {
		return nil
	}
	log.Info("recording: stopping capture")
	if err := c.backend.Stop(); err != nil {
		return fmt.Errorf("signalling recording stop: %w", err)
	}
	c.stopped = true
	return nil
}

// AwaitStopped blocks until the pipeline confirms closure or the configured
// timeout elapses, whichever is first. A timeout is logged, not returned as
// an error: the episode proceeds to teardown regardless.
func (c *Controller) AwaitStopped(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.backend.AwaitStopped(ctx); err != nil {
		log.Warningf("recording: pipeline did not confirm shutdown in time, tearing down anyway: %v", err)
		return nil
	}
	log.Debug("recording: pipeline confirmed shutdown")
	return nil
}

// Reset clears the started/stopped flags for the next episode, per the
// design note that global per-episode flags live as explicit engine-owned
// state, zeroed at teardown.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.stopped = false
}
