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

// Package worldclient models the out-of-band administrative channel to the
// world-server. The world-server protocol itself is out of
// scope; this package only defines the thin command surface the episode
// catalogue's entry points are written against.
package worldclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Position is a location in the world.
type Position struct {
	X, Y, Z float64
}

// Client is the abstract administrative command surface the phase engine
// and episode types use to drive the world. The concrete binding (console
// RCON, a scripting bridge, ...) is an implementation choice external to
// this repository.
type Client interface {
	Teleport(ctx context.Context, agent string, pos Position) error
	Summon(ctx context.Context, entity string, pos Position) error
	Give(ctx context.Context, agent, item string, count int) error
	Effect(ctx context.Context, agent, effect string, durationSec int) error
	SetRule(ctx context.Context, rule, value string) error
	SetDifficulty(ctx context.Context, difficulty string) error

	// DeathEvents returns the channel async death notifications arrive on,
	// one agent name per death, or nil if this Client never observes them.
	DeathEvents() <-chan string
}

// TextCommandClient implements Client over a newline-delimited text command
// connection: each call writes one line and receives no structured reply
// beyond an ack, the common shape for this kind of admin channel. A
// background goroutine reads the same connection for unsolicited
// "death <agent>" lines the world-server pushes asynchronously and relays
// them on the DeathEvents channel.
type TextCommandClient struct {
	conn    net.Conn
	timeout time.Duration
	deaths  chan string
}

// NewTextCommandClient dials addr and wraps it as a Client.
func NewTextCommandClient(addr string, timeout time.Duration) (*TextCommandClient, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to world control channel at %s: %w", addr, err)
	}
	c := &TextCommandClient{conn: conn, timeout: timeout, deaths: make(chan string, 8)}
	go c.readLoop()
	return c, nil
}

// readLoop owns the read side of conn for the client's lifetime, parsing
// unsolicited "death <agent>" notifications out of the otherwise
// ack-only reply stream and forwarding them to deaths. It exits once the
// connection closes.
func (c *TextCommandClient) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := scanner.Text()
		agent, ok := strings.CutPrefix(line, "death ")
		if !ok {
			continue
		}
		select {
		case c.deaths <- strings.TrimSpace(agent):
		default:
		}
	}
	close(c.deaths)
}

// DeathEvents implements Client.
func (c *TextCommandClient) DeathEvents() <-chan string {
	return c.deaths
}

func (c *TextCommandClient) send(ctx context.Context, line string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return fmt.Errorf("sending world command %q: %w", line, err)
	}
	return nil
}

// Teleport implements Client.
func (c *TextCommandClient) Teleport(ctx context.Context, agent string, pos Position) error {
	return c.send(ctx, fmt.Sprintf("teleport %s %f %f %f", agent, pos.X, pos.Y, pos.Z))
}

// Summon implements Client.
func (c *TextCommandClient) Summon(ctx context.Context, entity string, pos Position) error {
	return c.send(ctx, fmt.Sprintf("summon %s %f %f %f", entity, pos.X, pos.Y, pos.Z))
}

// Give implements Client.
func (c *TextCommandClient) Give(ctx context.Context, agent, item string, count int) error {
	return c.send(ctx, fmt.Sprintf("give %s %s %d", agent, item, count))
}

// Effect implements Client.
func (c *TextCommandClient) Effect(ctx context.Context, agent, effect string, durationSec int) error {
	return c.send(ctx, fmt.Sprintf("effect give %s %s %d", agent, effect, durationSec))
}

// SetRule implements Client.
func (c *TextCommandClient) SetRule(ctx context.Context, rule, value string) error {
	return c.send(ctx, fmt.Sprintf("gamerule %s %s", rule, value))
}

// SetDifficulty implements Client.
func (c *TextCommandClient) SetDifficulty(ctx context.Context, difficulty string) error {
	return c.send(ctx, fmt.Sprintf("difficulty %s", difficulty))
}

// Close closes the underlying connection.
func (c *TextCommandClient) Close() error {
	return c.conn.Close()
}
