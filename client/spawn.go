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
	"fmt"
	"os"
	"os/exec"

	"github.com/sabouaram/loopback-singleton/runtimedir"
)

// DaemonExecutable overrides how spawnDaemon locates the loopbackd binary.
// Tests and embedders that ship their own entrypoint can set this; the
// zero value falls back to looking up "loopbackd" on PATH.
var DaemonExecutable string

func resolveDaemonExecutable() (string, error) {
	if DaemonExecutable != "" {
		return DaemonExecutable, nil
	}
	return exec.LookPath("loopbackd")
}

// spawnDaemon starts the daemon binary detached from the current process
// group so it outlives the spawning client (spec.md §4.5, "the spawned
// daemon must not be killed when the client that spawned it exits"). Stdio
// is redirected to the null device; the parent neither waits on nor keeps a
// handle to the child beyond Start, matching the "fire and poll the
// rendezvous files" pattern the rest of connect_or_spawn relies on.
func spawnDaemon(paths runtimedir.Paths, rd resolvedDescriptor) error {
	exe, err := resolveDaemonExecutable()
	if err != nil {
		return fmt.Errorf("resolving loopbackd executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening null device: %w", err)
	}
	defer func() { _ = devNull.Close() }()

	cmd := exec.Command(exe,
		"--name", rd.name,
		"--factory-file", paths.Factory,
		"--idle-ttl", fmt.Sprintf("%f", rd.idleTTL.Seconds()),
		"--serializer", rd.codecName,
		"--scope", rd.scope,
	)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.Env = os.Environ()

	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	return cmd.Process.Release()
}
