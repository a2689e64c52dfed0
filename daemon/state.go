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

package daemon

import (
	"sync"
	"time"
)

// lifecycleState names the points of the idle-shutdown state machine
// spec.md §4.4 defines. It exists for logging/introspection; the
// transitions themselves are driven by the liveness counters below plus
// the shutdown flag, not by this enum being read back.
type lifecycleState uint8

const (
	stateStarting lifecycleState = iota
	stateServingNeverSeen
	stateServingActive
	stateServingIdle
	stateShuttingDown
	stateExited
)

func (s lifecycleState) String() string {
	switch s {
	case stateStarting:
		return "STARTING"
	case stateServingNeverSeen:
		return "SERVING_NEVER_SEEN"
	case stateServingActive:
		return "SERVING_ACTIVE"
	case stateServingIdle:
		return "SERVING_IDLE"
	case stateShuttingDown:
		return "SHUTTING_DOWN"
	case stateExited:
		return "EXITED"
	default:
		return "UNKNOWN"
	}
}

// liveness tracks the shared state spec.md §4.4/§5 describes: the active
// connection count, the timestamp of the last transition to zero, and
// whether any client has ever completed a handshake. All access is
// mutex-protected; the watchdog reads under the same mutex other
// goroutines write under.
type liveness struct {
	mu            sync.Mutex
	active        int
	lastZeroAt    time.Time
	everConnected bool
	state         lifecycleState
}

func newLiveness() *liveness {
	return &liveness{state: stateStarting, lastZeroAt: time.Now()}
}

func (l *liveness) setServing() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateStarting {
		l.state = stateServingNeverSeen
	}
}

// onHandshake records a successful HELLO: the first one ever flips
// everConnected and moves the state out of SERVING_NEVER_SEEN into
// SERVING_ACTIVE; subsequent ones re-activate from SERVING_IDLE.
func (l *liveness) onHandshake() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.everConnected = true
	l.active++
	l.state = stateServingActive
}

// onConnectionClosed decrements the active count; if it reaches zero, the
// state moves to SERVING_IDLE and last-zero is stamped for the watchdog.
func (l *liveness) onConnectionClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
	if l.active == 0 {
		l.lastZeroAt = time.Now()
		if l.state == stateServingActive {
			l.state = stateServingIdle
		}
	}
}

// snapshot returns (active connections, ever connected, idle-since).
func (l *liveness) snapshot() (active int, everConnected bool, lastZeroAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active, l.everConnected, l.lastZeroAt
}

// shouldShutdown reports whether the idle TTL has elapsed with the
// connection count at zero and at least one client ever seen — the
// watchdog's sole decision rule (spec.md §4.4: "only considers idle
// shutdown if ever_connected is true").
func (l *liveness) shouldShutdown(idleTTL time.Duration) bool {
	active, ever, lastZero := l.snapshot()
	if !ever || active != 0 {
		return false
	}
	return time.Since(lastZero) >= idleTTL
}

func (l *liveness) markShuttingDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = stateShuttingDown
}

func (l *liveness) markExited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = stateExited
}
