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

// Package startlock implements the exclusive startup critical section
// spec.md §4.3 describes: a cross-process advisory lock on lockfile.lock
// guaranteeing at most one spawner per name, held only for the narrow
// discover-or-spawn window and released on every exit path.
package startlock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is how often TryLockContext re-attempts the advisory
// lock while waiting for a concurrent spawner to finish.
const lockRetryInterval = 20 * time.Millisecond

// WithLock acquires the whole-file advisory lock on path (creating parent
// directories lazily), runs fn, and releases the lock unconditionally
// before returning — matching spec.md §4.3's "only held during the startup
// critical section, never during request processing" and §9's note that
// the lock has no exported Lock/Unlock pair, only this scoped helper.
func WithLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return err
	}
	if !locked {
		return context.DeadlineExceeded
	}

	defer func() { _ = fl.Unlock() }()

	return fn()
}
