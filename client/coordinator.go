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

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/sabouaram/loopback-singleton/config"
	liberr "github.com/sabouaram/loopback-singleton/errors"
	"github.com/sabouaram/loopback-singleton/logger"
	"github.com/sabouaram/loopback-singleton/runtimedir"
	"github.com/sabouaram/loopback-singleton/startlock"
)

const spawnPollInterval = 50 * time.Millisecond

func resolve(desc config.Descriptor, authToken string) (resolvedDescriptor, error) {
	fid, err := runtimedir.FactoryID(desc.FactoryImport, desc.FactoryArgs, desc.FactoryKwargs)
	if err != nil {
		return resolvedDescriptor{}, err
	}

	return resolvedDescriptor{
		name:           desc.Name,
		factoryImport:  desc.FactoryImport,
		factoryArgs:    desc.FactoryArgs,
		factoryKwargs:  desc.FactoryKwargs,
		factoryID:      fid,
		authToken:      authToken,
		idleTTL:        desc.IdleTTL,
		codecName:      desc.Codec,
		scope:          desc.Scope,
		connectTimeout: desc.ConnectTimeout,
		startTimeout:   desc.StartTimeout,
	}, nil
}

// connectOrSpawn is the heart of the rendezvous, spec.md §4.5: ensure the
// runtime directory and auth token exist, try connecting without the
// lock, and only take the exclusive startup lock (with a double-checked
// re-attempt inside it) if nothing answered.
func connectOrSpawn(ctx context.Context, log logger.Logger, desc config.Descriptor) (*session, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	paths, err := runtimedir.New(desc.Scope, desc.Name)
	if err != nil {
		return nil, err
	}

	authToken, err := runtimedir.EnsureAuthToken(paths)
	if err != nil {
		return nil, err
	}

	rd, err := resolve(desc, authToken)
	if err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()

	if sess, err := connectOnce(paths, rd); err == nil {
		return sess, nil
	} else if liberr.IsFactoryMismatch(err) {
		return nil, err
	}

	log.Entry(logger.DebugLevel, "no daemon reachable, acquiring startup lock").
		Field("attempt_id", attemptID).Log()

	var (
		result    *session
		resultErr error
	)

	lockErr := startlock.WithLock(ctx, paths.Lock, func() error {
		if sess, err := connectOnce(paths, rd); err == nil {
			result = sess
			return nil
		} else if liberr.IsFactoryMismatch(err) {
			resultErr = err
			return nil
		}

		log.Entry(logger.InfoLevel, "spawning daemon").
			Field("name", rd.name).Field("attempt_id", attemptID).Log()

		runtimedir.RemoveRuntime(paths)

		payload := runtimedir.FactoryPayload{
			ProtocolVersion: runtimedir.ProtocolVersion,
			FactoryImport:   rd.factoryImport,
			FactoryArgs:     rd.factoryArgs,
			FactoryKwargs:   rd.factoryKwargs,
		}
		if err := runtimedir.WriteFactory(paths, payload); err != nil {
			resultErr = err
			return nil
		}

		if err := spawnDaemon(paths, rd); err != nil {
			resultErr = liberr.NewConnectionFailed(err)
			return nil
		}

		sess, lastErr := pollForDaemon(ctx, paths, rd)
		if sess != nil {
			result = sess
			return nil
		}
		if liberr.IsFactoryMismatch(lastErr) {
			resultErr = lastErr
			return nil
		}
		if lastErr != nil {
			resultErr = liberr.NewConnectionFailed(lastErr)
		} else {
			resultErr = liberr.NewConnectionFailed()
		}
		return nil
	})
	if lockErr != nil && resultErr == nil {
		resultErr = lockErr
	}

	return result, resultErr
}

// pollForDaemon polls connect_once until it succeeds, a FactoryMismatchError
// is observed (terminal, returned immediately), or start_timeout elapses.
// Between attempts it waits for a filesystem change notification on the
// runtime directory via fsnotify, falling back to a fixed-interval ticker
// when a watch can't be established — either way bounded by the same
// start_timeout.
func pollForDaemon(ctx context.Context, paths runtimedir.Paths, rd resolvedDescriptor) (*session, error) {
	deadline := time.Now().Add(rd.startTimeout)
	var lastErr error

	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr == nil {
		_ = watcher.Add(paths.Dir)
		defer func() { _ = watcher.Close() }()
	}

	for time.Now().Before(deadline) {
		sess, err := connectOnce(paths, rd)
		if err == nil {
			return sess, nil
		}
		if liberr.IsFactoryMismatch(err) {
			return nil, err
		}
		lastErr = err

		wait := time.Until(deadline)
		if wait > spawnPollInterval {
			wait = spawnPollInterval
		}
		if wait <= 0 {
			break
		}

		if watcher != nil {
			select {
			case <-watcher.Events:
			case <-watcher.Errors:
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}
