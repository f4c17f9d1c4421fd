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

// Package config is the immutable per-process session configuration:
// identity, peer address, seed, episode range, world type, and the
// allowed episode-type filter.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// WorldType is the world-type tag used for episode-type filtering.
type WorldType string

// Supported world types.
const (
	WorldFlat   WorldType = "flat"
	WorldNormal WorldType = "normal"
)

// AllEpisodeTypes is the sentinel meaning "no filter, all compiled-in
// episode types are eligible".
const AllEpisodeTypes = "all"

// Config is the immutable session configuration shared by every component.
type Config struct {
	OwnName  string `yaml:"own_name"`
	PeerName string `yaml:"peer_name"`

	OwnPort  int    `yaml:"own_port"`
	PeerHost string `yaml:"peer_host"`
	PeerPort int    `yaml:"peer_port"`

	Seed              string    `yaml:"seed"`
	EpisodeCount       int       `yaml:"episode_count"`
	StartEpisodeIndex int       `yaml:"start_episode_index"`
	WorldType         WorldType `yaml:"world_type"`
	AllowedTypes      []string  `yaml:"allowed_types"`
	SmokeTest         bool      `yaml:"smoke_test"`

	PhaseTimeout    time.Duration `yaml:"phase_timeout"`
	EpisodeDeadline time.Duration `yaml:"episode_deadline"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	RecordingTimeout time.Duration `yaml:"recording_timeout"`

	WorldControlAddr string `yaml:"world_control_addr"`
	RecordingAddr    string `yaml:"recording_addr"`
	RecordDir        string `yaml:"record_dir"`
	MonitoringPort   int    `yaml:"monitoring_port"`

	// InstanceID disambiguates concurrent runs writing to the same
	// RecordDir; defaults to a freshly generated UUID if left empty.
	InstanceID string `yaml:"instance_id"`
}

// DefaultConfig returns Config initialized with sane defaults.
func DefaultConfig() *Config {
	return &Config{
		EpisodeCount:      1,
		StartEpisodeIndex: 0,
		WorldType:         WorldNormal,
		AllowedTypes:      []string{AllEpisodeTypes},
		PhaseTimeout:      10 * time.Second,
		EpisodeDeadline:   5 * time.Minute,
		ConnectTimeout:    5 * time.Second,
		RecordingTimeout:  5 * time.Second,
		RecordDir:         "episodes",
		MonitoringPort:    4270,
	}
}

// Validate checks the config is sane, returning a plain error that describes
// the first problem found.
func (c *Config) Validate() error {
	if c.OwnName == "" {
		return fmt.Errorf("own_name must be specified")
	}
	if c.PeerName == "" {
		return fmt.Errorf("peer_name must be specified")
	}
	if c.OwnName == c.PeerName {
		return fmt.Errorf("own_name and peer_name must differ")
	}
	if c.OwnPort <= 0 {
		return fmt.Errorf("own_port must be positive")
	}
	if c.PeerHost == "" {
		return fmt.Errorf("peer_host must be specified")
	}
	if c.PeerPort <= 0 {
		return fmt.Errorf("peer_port must be positive")
	}
	if c.EpisodeCount < 0 {
		return fmt.Errorf("episode_count must be 0 or positive")
	}
	if c.StartEpisodeIndex < 0 {
		return fmt.Errorf("start_episode_index must be 0 or positive")
	}
	if c.WorldType != WorldFlat && c.WorldType != WorldNormal {
		return fmt.Errorf("world_type must be %q or %q", WorldFlat, WorldNormal)
	}
	if len(c.AllowedTypes) == 0 {
		return fmt.Errorf("allowed_types must contain at least one name or %q", AllEpisodeTypes)
	}
	if c.PhaseTimeout <= 0 {
		return fmt.Errorf("phase_timeout must be greater than zero")
	}
	if c.EpisodeDeadline <= 0 {
		return fmt.Errorf("episode_deadline must be greater than zero")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be greater than zero")
	}
	if c.RecordingTimeout <= 0 {
		return fmt.Errorf("recording_timeout must be greater than zero")
	}
	if c.MonitoringPort < 0 {
		return fmt.Errorf("monitoring_port must be 0 or positive")
	}
	return nil
}

// EnsureInstanceID lazily assigns an instance ID if one was not configured.
func (c *Config) EnsureInstanceID() {
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
}

// FiltersAll reports whether the allowed-types list is the "all" sentinel.
func (c *Config) FiltersAll() bool {
	return len(c.AllowedTypes) == 1 && c.AllowedTypes[0] == AllEpisodeTypes
}

// ReadConfig reads config from a YAML file, starting from the defaults so
// unset fields keep their default value.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return c, nil
}

// Overlay describes CLI flag overrides layered on top of a file/default
// config. Every override is logged at Warning level so an operator can
// tell a file value was clobbered by a CLI flag.
type Overlay struct {
	OwnName           *string
	PeerName          *string
	OwnPort           *int
	PeerHost          *string
	PeerPort          *int
	Seed              *string
	EpisodeCount      *int
	StartEpisodeIndex *int
	WorldType         *string
	AllowedTypes      *string // comma-separated, or "all"
	SmokeTest         *bool
}

// Apply layers o onto c, logging a warning for every field actually
// overridden, so operators can tell a file value was clobbered by a CLI
// flag.
func (o *Overlay) Apply(c *Config) {
	warn := func(name string) { log.Warningf("config: overriding %s from CLI flag", name) }
	if o.OwnName != nil && *o.OwnName != "" {
		warn("own_name")
		c.OwnName = *o.OwnName
	}
	if o.PeerName != nil && *o.PeerName != "" {
		warn("peer_name")
		c.PeerName = *o.PeerName
	}
	if o.OwnPort != nil && *o.OwnPort != 0 {
		warn("own_port")
		c.OwnPort = *o.OwnPort
	}
	if o.PeerHost != nil && *o.PeerHost != "" {
		warn("peer_host")
		c.PeerHost = *o.PeerHost
	}
	if o.PeerPort != nil && *o.PeerPort != 0 {
		warn("peer_port")
		c.PeerPort = *o.PeerPort
	}
	if o.Seed != nil && *o.Seed != "" {
		warn("seed")
		c.Seed = *o.Seed
	}
	if o.EpisodeCount != nil && *o.EpisodeCount != 0 {
		warn("episode_count")
		c.EpisodeCount = *o.EpisodeCount
	}
	if o.StartEpisodeIndex != nil && *o.StartEpisodeIndex != 0 {
		warn("start_episode_index")
		c.StartEpisodeIndex = *o.StartEpisodeIndex
	}
	if o.WorldType != nil && *o.WorldType != "" {
		warn("world_type")
		c.WorldType = WorldType(*o.WorldType)
	}
	if o.AllowedTypes != nil && *o.AllowedTypes != "" {
		warn("allowed_types")
		c.AllowedTypes = splitCSV(*o.AllowedTypes)
	}
	if o.SmokeTest != nil && *o.SmokeTest {
		warn("smoke_test")
		c.SmokeTest = *o.SmokeTest
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// PrepareConfig reads the file (if any), applies the CLI overlay, and
// validates the result: the daemon entrypoint's single call into this
// package.
func PrepareConfig(cfgPath string, overlay *Overlay) (*Config, error) {
	var c *Config
	var err error
	if cfgPath != "" {
		c, err = ReadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
	} else {
		c = DefaultConfig()
	}
	if overlay != nil {
		overlay.Apply(c)
	}
	c.EnsureInstanceID()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	log.Debugf("config: %+v", c)
	return c, nil
}
