/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package client

import (
	"context"
	"time"

	liberr "github.com/sabouaram/loopback-singleton/errors"
	"github.com/sabouaram/loopback-singleton/logger"

	"github.com/sabouaram/loopback-singleton/config"
	"github.com/sabouaram/loopback-singleton/runtimedir"
)

const shutdownPollInterval = 50 * time.Millisecond

// Service is the user-facing convenience wrapper spec.md §4.5 calls
// "Service-level conveniences": a named singleton descriptor plus the
// discover-or-spawn machinery needed to obtain a Proxy to it on demand.
type Service struct {
	desc config.Descriptor
	log  logger.Logger
}

// New returns a Service for desc. Validation of desc happens lazily, on
// first use, so a caller can construct one without yet touching the
// filesystem.
func New(desc config.Descriptor, log logger.Logger) *Service {
	if log == nil {
		log = logger.New("client")
	}
	return &Service{desc: desc, log: log.Named(desc.Name)}
}

// Proxy returns an authenticated Proxy to the named singleton, spawning a
// daemon if none is currently reachable.
func (s *Service) Proxy(ctx context.Context) (*Proxy, error) {
	sess, err := connectOrSpawn(ctx, s.log, s.desc)
	if err != nil {
		return nil, err
	}
	return newProxy(sess), nil
}

// EnsureStarted opens and closes a session purely to cause the daemon to
// start, without keeping a Proxy around.
func (s *Service) EnsureStarted(ctx context.Context) error {
	p, err := s.Proxy(ctx)
	if err != nil {
		return err
	}
	return p.Close()
}

// Ping opens a session, pings the daemon, validates the reply shape, and
// closes the session.
func (s *Service) Ping(ctx context.Context) (pid int, active int, err error) {
	p, err := s.Proxy(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = p.Close() }()

	return p.PingDaemon()
}

// Shutdown opens a session, sends SHUTDOWN, closes the session, then polls
// for the runtime metadata file to disappear (bounded by the descriptor's
// start timeout), forcibly removing it if the daemon failed to clean up
// after itself.
func (s *Service) Shutdown(ctx context.Context, force bool) error {
	p, err := s.Proxy(ctx)
	if err != nil {
		if liberr.IsDaemonConnectionError(err) {
			return nil
		}
		return err
	}

	shutdownErr := p.Shutdown(force)
	_ = p.Close()
	if shutdownErr != nil {
		return shutdownErr
	}

	paths, err := runtimedir.New(s.desc.Scope, s.desc.Name)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.desc.StartTimeout)
	for time.Now().Before(deadline) {
		if _, ok := runtimedir.ReadRuntime(paths); !ok {
			return nil
		}
		select {
		case <-time.After(shutdownPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	runtimedir.RemoveRuntime(paths)
	return nil
}
