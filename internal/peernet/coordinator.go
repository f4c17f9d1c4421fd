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

package peernet

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// EventHandler is invoked on the coordinator's dispatch goroutine when a
// matching inbound message arrives. A handler must not suspend between
// registering the next listener and sending the next phase message: both
// must happen on this same call, in that order.
type EventHandler func(msg *Message)

type scopeKey struct {
	name string
	idx  int
}

// Config describes how to reach the peer.
type Config struct {
	MyPort         int
	PeerHost       string
	PeerPort       int
	ConnectTimeout time.Duration
	Backoff        BackoffConfig
}

// Coordinator is the bidirectional TCP message channel with the other agent.
// One Coordinator instance outlives every episode run in the process; its
// listener registrations are scoped per episode and cleared at ClearScope.
type Coordinator struct {
	cfg Config

	mu        sync.Mutex
	listeners map[scopeKey]EventHandler

	listener net.Listener

	outMu   sync.Mutex
	outConn net.Conn

	inConnMu sync.Mutex
	inConn   net.Conn
}

// New constructs a Coordinator. Call SetupConnections before sending
// anything.
func New(cfg Config) *Coordinator {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	return &Coordinator{
		cfg:       cfg,
		listeners: make(map[scopeKey]EventHandler),
	}
}

// SetupConnections starts the listener and dials the peer with retry until
// both sides succeed. It is a suspension point: it returns only once the
// inbound accept and the outbound connect have both completed. Once
// established, the coordinator keeps both sides alive in the background for
// its remaining lifetime, auto-reconnecting on drop.
func (c *Coordinator) SetupConnections(ctx context.Context) error {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", c.cfg.MyPort))
	if err != nil {
		return fmt.Errorf("binding to port %d: %w", c.cfg.MyPort, err)
	}
	c.listener = ln

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accepting peer connection: %w", err)
		}
		log.Infof("peernet: accepted inbound connection from %s", conn.RemoteAddr())
		c.setInConn(conn)
		go c.acceptLoop()
		return nil
	})
	eg.Go(func() error {
		conn, err := c.dialWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("connecting to peer: %w", err)
		}
		log.Infof("peernet: outbound connection established to %s", conn.RemoteAddr())
		c.setOutConn(conn)
		return nil
	})
	return eg.Wait()
}

// acceptLoop owns the inbound socket for the coordinator's lifetime: it
// reads frames, dispatches them, and reconnects (via a fresh Accept) if the
// peer drops.
func (c *Coordinator) acceptLoop() {
	for {
		conn := c.getInConn()
		if conn == nil {
			return
		}
		for {
			msg, err := readFrame(conn)
			if err != nil {
				log.Warningf("peernet: inbound connection lost: %v", err)
				break
			}
			c.dispatch(msg)
		}
		c.setInConn(nil)
		newConn, err := c.listener.Accept()
		if err != nil {
			log.Errorf("peernet: listener closed, giving up on reconnection: %v", err)
			return
		}
		log.Infof("peernet: reaccepted inbound connection from %s", newConn.RemoteAddr())
		c.setInConn(newConn)
	}
}

func (c *Coordinator) dialWithRetry(ctx context.Context) (net.Conn, error) {
	b := newBackoff(c.cfg.Backoff)
	addr := fmt.Sprintf("%s:%d", c.cfg.PeerHost, c.cfg.PeerPort)
	for {
		d := net.Dialer{Timeout: c.cfg.ConnectTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			setNoDelay(conn)
			b.reset()
			return conn, nil
		}
		wait := b.next()
		log.Warningf("peernet: dial %s failed (%v), retrying in %s", addr, err, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reconnectOut re-dials the peer in the background after an outbound write
// failure, replacing outConn once a new connection succeeds.
func (c *Coordinator) reconnectOut() {
	conn, err := c.dialWithRetry(context.Background())
	if err != nil {
		log.Errorf("peernet: giving up reconnecting outbound: %v", err)
		return
	}
	log.Infof("peernet: outbound connection re-established to %s", conn.RemoteAddr())
	c.setOutConn(conn)
}

// Send delivers a fire-and-forget message to the peer on the outbound
// socket. If the outbound connection is currently down the message is
// dropped (no queue) and reconnection begins in the background.
func (c *Coordinator) Send(eventName string, params any, episodeIndex int) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params for %q: %w", eventName, err)
	}
	msg := &Message{EventName: eventName, EventParams: body, EpisodeIndex: episodeIndex}

	c.outMu.Lock()
	conn := c.outConn
	c.outMu.Unlock()
	if conn == nil {
		return fmt.Errorf("peernet: no outbound connection, dropping %q", eventName)
	}

	log.Debugf(color.GreenString("peernet: -> %s (episode %d)", eventName, episodeIndex))
	if err := writeFrame(conn, msg); err != nil {
		log.Warningf("peernet: send failed, will reconnect: %v", err)
		c.setOutConn(nil)
		go c.reconnectOut()
		return fmt.Errorf("sending %q: %w", eventName, err)
	}
	return nil
}

// Once registers a one-shot listener for the next inbound message matching
// (eventName, episodeIndex). Per the rendezvous protocol, callers must
// register before calling Send for the same phase.
func (c *Coordinator) Once(eventName string, episodeIndex int, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[scopeKey{eventName, episodeIndex}] = handler
}

// ClearScope drops all pending listeners registered for episodeIndex. Called
// at teardown so a later episode never sees a stale handler fire.
func (c *Coordinator) ClearScope(episodeIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.listeners {
		if k.idx == episodeIndex {
			delete(c.listeners, k)
		}
	}
}

func (c *Coordinator) dispatch(msg *Message) {
	key := scopeKey{msg.EventName, msg.EpisodeIndex}
	c.mu.Lock()
	handler, ok := c.listeners[key]
	if ok {
		delete(c.listeners, key)
	}
	c.mu.Unlock()

	if !ok {
		log.Debugf(color.BlueString("peernet: <- %s (episode %d) dropped: no listener registered", msg.EventName, msg.EpisodeIndex))
		return
	}
	log.Debugf(color.BlueString("peernet: <- %s (episode %d)", msg.EventName, msg.EpisodeIndex))
	handler(msg)
}

// Close tears down both sockets and stops accepting new connections.
func (c *Coordinator) Close() error {
	c.setInConn(nil)
	c.setOutConn(nil)
	if c.listener != nil {
		return c.listener.Close()
	}
	return nil
}

func (c *Coordinator) setInConn(conn net.Conn) {
	c.inConnMu.Lock()
	defer c.inConnMu.Unlock()
	if c.inConn != nil {
		_ = c.inConn.Close()
	}
	c.inConn = conn
}

func (c *Coordinator) getInConn() net.Conn {
	c.inConnMu.Lock()
	defer c.inConnMu.Unlock()
	return c.inConn
}

func (c *Coordinator) setOutConn(conn net.Conn) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.outConn != nil {
		_ = c.outConn.Close()
	}
	c.outConn = conn
}

func setNoDelay(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tc.SetNoDelay(true); err != nil {
		log.Debugf("peernet: failed to set TCP_NODELAY: %v", err)
	}
}

// reuseAddrControl sets SO_REUSEADDR on the listening socket so a restarted
// agent can rebind its port immediately instead of waiting out TIME_WAIT.
func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
