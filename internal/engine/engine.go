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
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/basaltlabs/botcore/internal/peernet"
	"github.com/basaltlabs/botcore/internal/record"
	"github.com/basaltlabs/botcore/internal/recording"
	"github.com/basaltlabs/botcore/internal/rng"
	"github.com/basaltlabs/botcore/internal/telemetry"
	"github.com/basaltlabs/botcore/internal/worldclient"
)

// Engine drives a single episode, per process, through the distributed
// phase state machine:
//
//	INIT -> TELEPORT -> START_REC -> RUNNING -> STOP -> STOP_REC -> STOPPED -> TEARDOWN
//
// It is not safe for concurrent RunEpisode calls; episodes run one at a
// time, matching the session's sequential episode loop.
type Engine struct {
	Channel      PeerChannel
	Recording    *recording.Controller
	World        worldclient.Client
	Metrics      *telemetry.Metrics
	OwnName      string
	PeerName     string
	PhaseTimeout time.Duration

	mu        sync.Mutex
	stopping  bool
	stopFault *Fault
	stopCh    chan struct{}
}

// New constructs an Engine. phaseTimeout bounds every phase-rendezvous; if
// zero, a 10 second default applies.
func New(channel PeerChannel, rec *recording.Controller, world worldclient.Client, metrics *telemetry.Metrics, ownName, peerName string, phaseTimeout time.Duration) *Engine {
	if phaseTimeout <= 0 {
		phaseTimeout = 10 * time.Second
	}
	return &Engine{
		Channel:      channel,
		Recording:    rec,
		World:        world,
		Metrics:      metrics,
		OwnName:      ownName,
		PeerName:     peerName,
		PhaseTimeout: phaseTimeout,
	}
}

// RunEpisode executes episodeIndex to completion and returns its record.
// It never returns an error: every fault is caught at this boundary,
// classified, folded into the returned record's flags, and logged, so one
// bad episode never kills the process.
func (e *Engine) RunEpisode(parentCtx context.Context, episodeIndex int, epType EpisodeType, stream *rng.Stream) *record.Episode {
	e.resetStopGuard()

	rec := &record.Episode{
		Timestamp:    time.Now(),
		EpisodeIndex: episodeIndex,
		AgentName:    e.OwnName,
		EpisodeType:  epType.Name(),
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	ectx := &EpisodeContext{
		Context:      ctx,
		EpisodeIndex: episodeIndex,
		OwnName:      e.OwnName,
		PeerName:     e.PeerName,
		Primary:      e.OwnName < e.PeerName,
		World:        e.World,
		RNG:          stream,
		engine:       e,
	}

	if err := epType.Setup(ectx); err != nil {
		log.Errorf("engine: setup failed for episode %d (%s): %v", episodeIndex, epType.Name(), err)
		e.requestStop(InternalErrorf("setup: %w", err))
	}

	if !e.isStopping() {
		if err := e.runTeleport(ectx, epType); err != nil {
			log.Warningf("engine: teleport rendezvous error for episode %d: %v", episodeIndex, err)
			e.requestStop(asFault(err))
		}
	}

	if !e.isStopping() {
		e.watchPeerError(episodeIndex)
		e.watchAgentDeath(ctx)
		e.signalStartRecording(episodeIndex, rec)
		if err := epType.EntryPoint(ectx); err != nil {
			log.Errorf("engine: entry_point error for episode %d (%s): %v", episodeIndex, epType.Name(), err)
			e.requestStop(asFault(err))
		} else {
			e.requestStop(nil)
		}
	}

	e.runStop(ectx, rec)
	e.runStopRecording(ctx, rec)
	e.runStopped(ectx)

	if err := epType.Teardown(ectx); err != nil {
		log.Warningf("engine: teardown error for episode %d (%s): %v", episodeIndex, epType.Name(), err)
	}
	e.Channel.ClearScope(episodeIndex)
	if e.Recording != nil {
		e.Recording.Reset()
	}
	e.recordMetrics(rec)

	return rec
}

func (e *Engine) resetStopGuard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopping = false
	e.stopFault = nil
	e.stopCh = make(chan struct{})
}

// requestStop enters the STOP state exactly once per episode regardless of
// how many triggers fire (normal completion, a phase error, an async
// agent-death notification, a peer-error message): the first caller's
// fault is the one recorded, and stopSignal() is closed so any goroutine
// blocked inside entry_point waiting on it wakes up.
func (e *Engine) requestStop(fault *Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopping {
		return
	}
	e.stopping = true
	e.stopFault = fault
	close(e.stopCh)
}

func (e *Engine) isStopping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopping
}

// stopSignal returns the channel that closes the moment any trigger calls
// requestStop for the episode currently running.
func (e *Engine) stopSignal() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCh
}

func (e *Engine) stopFaultSnapshot() *Fault {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopFault
}

// watchPeerError registers the reserved peer-error listener for this
// episode: a message on it means the peer hit a fault of its own and is
// entering STOP, so we must follow it there rather than timing out.
func (e *Engine) watchPeerError(episodeIndex int) {
	e.Channel.Once("peer_error", episodeIndex, func(*peernet.Message) {
		e.requestStop(PeerLinkErrorf("peer reported an error"))
	})
}

// watchAgentDeath listens for an async death notification naming either
// peer for the remainder of the episode (bounded by ctx, which the caller
// cancels at RunEpisode's end). A nil DeathEvents channel means the world
// binding never observes these and the watch is a no-op.
func (e *Engine) watchAgentDeath(ctx context.Context) {
	deaths := e.World.DeathEvents()
	if deaths == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case agent, ok := <-deaths:
				if !ok {
					return
				}
				if agent == e.OwnName || agent == e.PeerName {
					e.requestStop(AgentDeathErrorf("observed death event for %s", agent))
					return
				}
			}
		}
	}()
}

func (e *Engine) signalStartRecording(episodeIndex int, rec *record.Episode) {
	if e.Recording == nil {
		return
	}
	if err := e.Recording.SignalStart(episodeIndex); err != nil {
		log.Warningf("engine: recording start failed for episode %d: %v", episodeIndex, err)
		return
	}
	rec.RecordingStarted = true
}

func (e *Engine) runStop(ectx *EpisodeContext, rec *record.Episode) {
	fault := e.stopFaultSnapshot()
	status := "ok"
	if fault != nil {
		switch fault.Class {
		case ClassAgentDeath:
			rec.AgentDied = true
		case ClassPeerLink:
			rec.PeerError = true
		default:
			rec.EncounteredError = true
		}
		status = fault.Error()
	}
	if _, err := e.rendezvous(ectx.Context, "stop", ectx.EpisodeIndex, &PhasePayload{Status: status}); err != nil {
		log.Warningf("engine: stop rendezvous failed for episode %d: %v", ectx.EpisodeIndex, err)
	}
}

func (e *Engine) runStopRecording(ctx context.Context, rec *record.Episode) {
	if e.Recording == nil || !rec.RecordingStarted {
		return
	}
	if err := e.Recording.SignalStop(); err != nil {
		log.Warningf("engine: recording stop failed: %v", err)
	}
	if err := e.Recording.AwaitStopped(ctx); err != nil {
		log.Warningf("engine: recording await-stopped error: %v", err)
	}
}

func (e *Engine) runStopped(ectx *EpisodeContext) {
	if _, err := e.rendezvous(ectx.Context, "stopped", ectx.EpisodeIndex, &PhasePayload{}); err != nil {
		log.Warningf("engine: stopped rendezvous failed for episode %d: %v", ectx.EpisodeIndex, err)
	}
}

func (e *Engine) recordMetrics(rec *record.Episode) {
	if e.Metrics == nil {
		return
	}
	switch {
	case rec.AgentDied:
		e.Metrics.IncEpisodesDied()
	case rec.PeerError:
		e.Metrics.IncPeerErrors()
	case rec.EncounteredError:
		e.Metrics.IncEpisodesFailed()
	default:
		e.Metrics.IncEpisodesCompleted()
	}
}

// rendezvous is the register-then-send handshake every phase boundary
// uses: the one-shot listener for name is registered before name is sent,
// so a peer racing ahead can never arrive before we are ready to receive.
func (e *Engine) rendezvous(ctx context.Context, name string, episodeIndex int, out *PhasePayload) (*PhasePayload, error) {
	ch := make(chan *PhasePayload, 1)
	start := time.Now()
	e.Channel.Once(name, episodeIndex, func(msg *peernet.Message) {
		var p PhasePayload
		if len(msg.EventParams) > 0 {
			if err := json.Unmarshal(msg.EventParams, &p); err != nil {
				log.Warningf("engine: malformed %q payload for episode %d: %v", name, episodeIndex, err)
			}
		}
		select {
		case ch <- &p:
		default:
		}
	})
	if err := e.Channel.Send(name, out, episodeIndex); err != nil {
		log.Warningf("engine: sending phase %q for episode %d: %v", name, episodeIndex, err)
	}

	timer := time.NewTimer(e.PhaseTimeout)
	defer timer.Stop()
	select {
	case p := <-ch:
		if e.Metrics != nil {
			e.Metrics.ObservePhaseLatencySeconds(time.Since(start).Seconds())
		}
		return p, nil
	case <-timer.C:
		return nil, PhaseTimeoutErrorf("phase %q did not rendezvous within %s", name, e.PhaseTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func asFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return InternalErrorf("%w", err)
}
