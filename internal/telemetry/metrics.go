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

// Package telemetry exposes episode/phase counters over Prometheus, keeping
// both a registered gauge and a plain atomic counter per metric so the
// counters can also be read in-process via Snapshot.
package telemetry

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics is the set of counters the engine updates as it runs. All fields are safe for concurrent use.
type Metrics struct {
	episodesCompleted int64
	episodesFailed    int64
	episodesDied      int64
	peerErrors        int64
	peerReconnects    int64
	teleportRetries   int64

	registry *prometheus.Registry

	episodesCompletedGauge prometheus.Gauge
	episodesFailedGauge    prometheus.Gauge
	episodesDiedGauge      prometheus.Gauge
	peerErrorsGauge        prometheus.Gauge
	peerReconnectsGauge    prometheus.Gauge
	teleportRetriesGauge   prometheus.Gauge
	phaseLatency           prometheus.Histogram
}

// New constructs a Metrics with all Prometheus collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.episodesCompletedGauge = m.gauge("botcore_episodes_completed", "Episodes completed without error")
	m.episodesFailedGauge = m.gauge("botcore_episodes_failed", "Episodes that ended with encountered_error set")
	m.episodesDiedGauge = m.gauge("botcore_episodes_agent_died", "Episodes that ended with agent_died set")
	m.peerErrorsGauge = m.gauge("botcore_peer_errors", "Episodes that ended with peer_error set")
	m.peerReconnectsGauge = m.gauge("botcore_peer_reconnects", "Peer channel reconnect attempts that succeeded")
	m.teleportRetriesGauge = m.gauge("botcore_teleport_retries", "Teleport phase retries across all episodes")

	m.phaseLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "botcore_phase_rendezvous_seconds",
		Help:    "Time from sending a phase message to the rendezvous completing",
		Buckets: prometheus.DefBuckets,
	})
	m.registry.MustRegister(m.phaseLatency)

	return m
}

func (m *Metrics) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	m.registry.MustRegister(g)
	return g
}

// IncEpisodesCompleted records a clean episode completion.
func (m *Metrics) IncEpisodesCompleted() {
	v := atomic.AddInt64(&m.episodesCompleted, 1)
	m.episodesCompletedGauge.Set(float64(v))
}

// IncEpisodesFailed records an episode that ended with encountered_error.
func (m *Metrics) IncEpisodesFailed() {
	v := atomic.AddInt64(&m.episodesFailed, 1)
	m.episodesFailedGauge.Set(float64(v))
}

// IncEpisodesDied records an episode that ended with agent_died.
func (m *Metrics) IncEpisodesDied() {
	v := atomic.AddInt64(&m.episodesDied, 1)
	m.episodesDiedGauge.Set(float64(v))
}

// IncPeerErrors records an episode that ended with peer_error.
func (m *Metrics) IncPeerErrors() {
	v := atomic.AddInt64(&m.peerErrors, 1)
	m.peerErrorsGauge.Set(float64(v))
}

// IncPeerReconnects records a successful peer channel reconnect.
func (m *Metrics) IncPeerReconnects() {
	v := atomic.AddInt64(&m.peerReconnects, 1)
	m.peerReconnectsGauge.Set(float64(v))
}

// IncTeleportRetries records a teleport-phase retry.
func (m *Metrics) IncTeleportRetries() {
	v := atomic.AddInt64(&m.teleportRetries, 1)
	m.teleportRetriesGauge.Set(float64(v))
}

// ObservePhaseLatencySeconds records one phase-rendezvous round trip.
func (m *Metrics) ObservePhaseLatencySeconds(seconds float64) {
	m.phaseLatency.Observe(seconds)
}

// Snapshot returns the current counters as a plain map. Serve does not
// expose it; only the Prometheus /metrics endpoint is served over HTTP.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"botcore.episodes.completed":  atomic.LoadInt64(&m.episodesCompleted),
		"botcore.episodes.failed":     atomic.LoadInt64(&m.episodesFailed),
		"botcore.episodes.died":       atomic.LoadInt64(&m.episodesDied),
		"botcore.peer.errors":         atomic.LoadInt64(&m.peerErrors),
		"botcore.peer.reconnects":     atomic.LoadInt64(&m.peerReconnects),
		"botcore.teleport.retries":    atomic.LoadInt64(&m.teleportRetries),
	}
}

// Serve starts the Prometheus /metrics endpoint on port. Call in a
// goroutine; it blocks until the listener fails.
func (m *Metrics) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	addr := fmt.Sprintf(":%d", port)
	log.Infof("telemetry: serving metrics on %s", addr)
	return http.ListenAndServe(addr, mux) //nolint:gosec // operator-facing debug endpoint, not internet exposed
}
