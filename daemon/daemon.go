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

// Package daemon implements the background process spec.md §4.4 describes:
// it accepts loopback connections, serializes every method call onto a
// single executor goroutine, tracks liveness, and shuts itself down on
// idle or on command. Three long-lived goroutines (accept loop, executor,
// watchdog) are coordinated with golang.org/x/sync/errgroup, the same
// "concurrent loops behind a shared shutdown signal" shape nabbar-golib's
// start/stop runners use.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	libuuid "github.com/hashicorp/go-uuid"

	"github.com/sabouaram/loopback-singleton/codec"
	"github.com/sabouaram/loopback-singleton/factory"
	"github.com/sabouaram/loopback-singleton/logger"
	"github.com/sabouaram/loopback-singleton/runtimedir"
)

// acceptPollInterval bounds each Accept() call so the loop can observe the
// shutdown signal, matching spec.md §4.4's "~200 ms accept timeout".
const acceptPollInterval = 200 * time.Millisecond

// watchdogInterval is the idle-shutdown watchdog's polling granularity.
const watchdogInterval = 200 * time.Millisecond

// Config configures one daemon instance, mirroring the daemon process
// invocation arguments spec.md §6 specifies.
type Config struct {
	Name            string
	FactoryFilePath string
	IdleTTL         time.Duration
	CodecName       string
	Scope           string
}

// Daemon is one running instance of the background process.
type Daemon struct {
	cfg        Config
	paths      runtimedir.Paths
	authToken  string
	factoryID  string
	codec      codec.Codec
	obj        interface{}
	log        logger.Logger
	instanceID string

	listener *net.TCPListener
	live     *liveness

	work     chan callRequest
	shutdown chan struct{}
	once     sync.Once
}

type callRequest struct {
	method string
	args   []interface{}
	kwargs map[string]interface{}
	reply  chan callReply
}

type callReply struct {
	ok      bool
	result  interface{}
	errText string
}

// New constructs a Daemon per spec.md §4.4 startup steps 1-3: load the
// auth token (fail fast if absent), load and validate the factory
// payload, derive its factory identity, and construct the singleton
// object via the registered factory.Constructor.
func New(cfg Config) (*Daemon, error) {
	paths, err := runtimedir.New(cfg.Scope, cfg.Name)
	if err != nil {
		return nil, err
	}

	tokBytes, err := os.ReadFile(paths.Auth)
	if err != nil {
		return nil, fmt.Errorf("daemon: auth token unavailable: %w", err)
	}

	payload, err := runtimedir.ReadFactoryFile(cfg.FactoryFilePath)
	if err != nil {
		return nil, fmt.Errorf("daemon: factory payload unreadable: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	fid, err := runtimedir.FactoryID(payload.FactoryImport, payload.FactoryArgs, payload.FactoryKwargs)
	if err != nil {
		return nil, err
	}

	obj, err := factory.Build(payload.FactoryImport, payload.FactoryArgs, payload.FactoryKwargs)
	if err != nil {
		return nil, fmt.Errorf("daemon: factory construction failed: %w", err)
	}

	c, err := codec.ByName(cfg.CodecName)
	if err != nil {
		return nil, err
	}

	instanceID, err := libuuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		paths:      paths,
		authToken:  string(tokBytes),
		factoryID:  fid,
		codec:      c,
		obj:        obj,
		log:        logger.New("daemon").Named(cfg.Name),
		instanceID: instanceID,
		live:       newLiveness(),
		work:       make(chan callRequest),
		shutdown:   make(chan struct{}),
	}, nil
}

// Listen binds the loopback listening socket (spec.md §4.4 step 4: bind to
// 127.0.0.1:0, an ephemeral port). It must be called before Run.
func (d *Daemon) Listen() error {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	d.listener = l.(*net.TCPListener)
	return nil
}

// Addr returns the bound address; only valid after Listen.
func (d *Daemon) Addr() *net.TCPAddr {
	return d.listener.Addr().(*net.TCPAddr)
}

// Run publishes runtime metadata and serves until idle-shutdown, an
// authenticated SHUTDOWN command, or ctx cancellation. It removes
// runtime.bin on every exit path.
func (d *Daemon) Run(ctx context.Context) error {
	rec := runtimedir.Record{
		ProtocolVersion: runtimedir.ProtocolVersion,
		Host:            "127.0.0.1",
		Port:            d.Addr().Port,
		Pid:             os.Getpid(),
		CodecName:       d.codec.Name(),
		StartedAt:       time.Now(),
		FactoryID:       d.factoryID,
	}
	if err := runtimedir.WriteRuntime(d.paths, rec); err != nil {
		return err
	}
	d.live.setServing()

	d.log.Entry(logger.InfoLevel, "daemon listening").
		Field("port", rec.Port).Field("pid", rec.Pid).Field("instance", d.instanceID).Log()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.acceptLoop(gctx) })
	g.Go(func() error { return d.executorLoop() })
	g.Go(func() error { return d.watchdogLoop() })
	g.Go(func() error {
		select {
		case <-gctx.Done():
			d.triggerShutdown()
		case <-d.shutdown:
		}
		return nil
	})

	err := g.Wait()

	_ = d.listener.Close()
	runtimedir.RemoveRuntime(d.paths)
	d.live.markExited()

	d.log.Entry(logger.InfoLevel, "daemon exited").Log()

	return err
}

func (d *Daemon) triggerShutdown() {
	d.once.Do(func() {
		d.live.markShuttingDown()
		close(d.shutdown)
	})
}

func (d *Daemon) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-d.shutdown:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		_ = d.listener.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := d.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-d.shutdown:
				return nil
			default:
			}
			return err
		}

		go d.handleConn(conn)
	}
}

func (d *Daemon) watchdogLoop() error {
	t := time.NewTicker(watchdogInterval)
	defer t.Stop()

	for {
		select {
		case <-d.shutdown:
			return nil
		case <-t.C:
			if d.live.shouldShutdown(d.cfg.IdleTTL) {
				d.log.Entry(logger.InfoLevel, "idle ttl elapsed, shutting down").Log()
				d.triggerShutdown()
				return nil
			}
		}
	}
}

func (d *Daemon) executorLoop() error {
	for {
		select {
		case <-d.shutdown:
			return nil
		case req := <-d.work:
			d.invoke(req)
		}
	}
}

func (d *Daemon) invoke(req callRequest) {
	defer func() {
		if r := recover(); r != nil {
			req.reply <- callReply{ok: false, errText: fmt.Sprintf("panic: %v", r)}
		}
	}()

	result, err := dispatch(d.obj, req.method, req.args, req.kwargs)
	if err != nil {
		req.reply <- callReply{ok: false, errText: err.Error()}
		return
	}
	req.reply <- callReply{ok: true, result: result}
}
