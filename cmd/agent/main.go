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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"

	"github.com/basaltlabs/botcore/internal/catalogue"
	"github.com/basaltlabs/botcore/internal/catalogue/episodes"
	"github.com/basaltlabs/botcore/internal/config"
	"github.com/basaltlabs/botcore/internal/engine"
	"github.com/basaltlabs/botcore/internal/peernet"
	"github.com/basaltlabs/botcore/internal/record"
	"github.com/basaltlabs/botcore/internal/recording"
	"github.com/basaltlabs/botcore/internal/rng"
	"github.com/basaltlabs/botcore/internal/telemetry"
	"github.com/basaltlabs/botcore/internal/worldclient"
)

// exit codes, per the session's external contract.
const (
	exitOK                 = 0
	exitFatalStartup       = 1
	exitWorldUnrecoverable = 2
)

// notifyReady tells systemd (if this process runs under it, i.e.
// NOTIFY_SOCKET is set) that startup is complete and the episode loop is
// about to begin.
func notifyReady() {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if !supported {
		return
	}
	if err != nil {
		log.Warningf("agent: sd_notify failed: %v", err)
		return
	}
	log.Info("agent: sent sd_notify ready")
}

func defaultCatalogue() *catalogue.Catalogue {
	return catalogue.New(
		episodes.Chase{},
		episodes.Orbit{},
		episodes.Build{},
		episodes.Mine{},
		episodes.Combat{},
	)
}

func runSession(ctx context.Context, cfg *config.Config, cat *catalogue.Catalogue, metrics *telemetry.Metrics) error {
	coord := peernet.New(peernet.Config{
		MyPort:         cfg.OwnPort,
		PeerHost:       cfg.PeerHost,
		PeerPort:       cfg.PeerPort,
		ConnectTimeout: cfg.ConnectTimeout,
		Backoff:        peernet.DefaultBackoffConfig(),
	})
	log.Infof("agent: connecting to peer %s at %s:%d", cfg.PeerName, cfg.PeerHost, cfg.PeerPort)
	if err := coord.SetupConnections(ctx); err != nil {
		return engine.PeerLinkErrorf("establishing peer channel: %w", err)
	}
	defer coord.Close()

	world, err := worldclient.NewTextCommandClient(cfg.WorldControlAddr, cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connecting to world control channel: %w", err)
	}
	defer world.Close()

	var backend recording.Backend
	if cfg.RecordingAddr != "" {
		backend = recording.NewTCPBackend(cfg.RecordingAddr, cfg.ConnectTimeout)
	}
	var rec *recording.Controller
	if backend != nil {
		rec = recording.New(backend, cfg.RecordingTimeout)
	}

	e := engine.New(coord, rec, world, metrics, cfg.OwnName, cfg.PeerName, cfg.PhaseTimeout)

	notifyReady()

	filtered := cat.Filter(cfg)
	sel := catalogue.NewSelector(filtered, rng.NewSelectionStream(cfg.Seed), cfg.SmokeTest, cfg.StartEpisodeIndex)
	n := sel.EffectiveEpisodeCount(cfg.EpisodeCount)
	if n == 0 {
		log.Info("agent: no episodes to run (empty filtered catalogue in smoke-test mode), exiting cleanly")
		return nil
	}

	for i := cfg.StartEpisodeIndex; i < cfg.StartEpisodeIndex+n; i++ {
		epType, err := sel.Pick(i)
		if err != nil {
			return fmt.Errorf("selecting episode type for index %d: %w", i, err)
		}
		log.Infof("agent: starting episode %d (%s)", i, epType.Name())

		episodeCtx, cancel := context.WithTimeout(ctx, cfg.EpisodeDeadline)
		result := e.RunEpisode(episodeCtx, i, epType, rng.NewEpisodeStream(cfg.Seed, i))
		cancel()

		path, err := record.Write(cfg.RecordDir, result, cfg.InstanceID)
		if err != nil {
			log.Errorf("agent: failed to write episode record for episode %d: %v", i, err)
			continue
		}
		log.Infof("agent: episode %d complete, record written to %s", i, path)
	}
	return nil
}

func main() {
	var (
		verboseFlag bool
		configFlag  string
		overlay     config.Overlay
	)

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&configFlag, "config", "", "path to the session config file")
	overlay.OwnName = flag.String("own-name", "", "this agent's name")
	overlay.PeerName = flag.String("peer-name", "", "the other agent's name")
	overlay.OwnPort = flag.Int("own-port", 0, "port this agent listens on for the peer channel")
	overlay.PeerHost = flag.String("peer-host", "", "host the peer channel dials")
	overlay.PeerPort = flag.Int("peer-port", 0, "port the peer channel dials")
	overlay.Seed = flag.String("seed", "", "session seed material")
	overlay.EpisodeCount = flag.Int("episode-count", 0, "number of episodes to run")
	overlay.StartEpisodeIndex = flag.Int("start-episode-index", 0, "episode index to start from")
	overlay.WorldType = flag.String("world-type", "", `world type: "flat" or "normal"`)
	overlay.AllowedTypes = flag.String("allowed-types", "", `comma-separated episode type names, or "all"`)
	overlay.SmokeTest = flag.Bool("smoke-test", false, "run one episode per eligible type, alphabetically")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.PrepareConfig(configFlag, &overlay)
	if err != nil {
		log.Error(err)
		os.Exit(exitFatalStartup)
	}

	cat := defaultCatalogue()
	if err := cat.ValidateAllowedTypes(cfg); err != nil {
		log.Error(err)
		os.Exit(exitFatalStartup)
	}

	metrics := telemetry.New()
	if cfg.MonitoringPort > 0 {
		go func() {
			if err := metrics.Serve(cfg.MonitoringPort); err != nil {
				log.Errorf("agent: monitoring server stopped: %v", err)
			}
		}()
	}

	if err := runSession(context.Background(), cfg, cat, metrics); err != nil {
		log.Error(err)
		var fault *engine.Fault
		if errors.As(err, &fault) && fault.Class == engine.ClassPeerLink {
			os.Exit(exitFatalStartup)
		}
		os.Exit(exitWorldUnrecoverable)
	}
	os.Exit(exitOK)
}
