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

// Package runtimedir is the per-name, per-user filesystem home spec.md §4.2
// describes: base directory selection, the owner-only directory layout
// under it, the auth token, the runtime metadata record, and the optional
// factory payload file.
package runtimedir

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/sabouaram/loopback-singleton/file/perm"
)

const (
	// DirName is the fixed directory component under the base directory
	// every name's runtime directory nests under.
	DirName = "loopback-singleton"
)

var (
	// dirPerm/filePerm are the owner-only modes spec.md §4.2 requires for
	// the per-name directory and the files under it, expressed through
	// perm.Perm so every writer in this package shares one parsed value
	// instead of scattering os.FileMode literals.
	dirPerm  = mustParsePerm("0700")
	filePerm = mustParsePerm("0600")
)

func mustParsePerm(octal string) perm.Perm {
	p, err := perm.Parse(octal)
	if err != nil {
		panic(err)
	}
	return p
}

// Paths is the resolved set of files and directories for one (scope, name)
// pair.
type Paths struct {
	Name    string
	Scope   string
	Dir     string
	Runtime string
	Auth    string
	Lock    string
	Factory string
}

// New resolves the Paths for name under scope (only "user" is meaningful
// today; see spec.md §1 Non-goals on multi-host/multi-scope access).
func New(scope, name string) (Paths, error) {
	base, err := baseDir()
	if err != nil {
		return Paths{}, err
	}

	dir := filepath.Join(base, DirName, name)

	return Paths{
		Name:    name,
		Scope:   scope,
		Dir:     dir,
		Runtime: filepath.Join(dir, "runtime.bin"),
		Auth:    filepath.Join(dir, "auth.bin"),
		Lock:    filepath.Join(dir, "lockfile.lock"),
		Factory: filepath.Join(dir, "factory.bin"),
	}, nil
}

// EnsureDir creates the per-name directory, owner-only on POSIX. chmod
// failures are ignored (best-effort hardening per spec.md §4.2).
func (p Paths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir, dirPerm.FileMode()); err != nil {
		return err
	}
	_ = os.Chmod(p.Dir, dirPerm.FileMode())
	return nil
}

// baseDir selects the per-user base directory per spec.md §4.2: on
// Windows, %LOCALAPPDATA% (or ~/AppData/Local); on POSIX, $XDG_RUNTIME_DIR
// if set and usable, otherwise ~/.cache.
func baseDir() (string, error) {
	if runtime.GOOS == "windows" {
		return windowsBaseDir()
	}
	return posixBaseDir()
}

func windowsBaseDir() (string, error) {
	if v := os.Getenv("LOCALAPPDATA"); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "AppData", "Local"), nil
}

func posixBaseDir() (string, error) {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" && isUsableDir(v) {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}

// isUsableDir reports whether dir exists, is a directory, and is writable
// and traversable for the calling process — the spec's condition for
// honoring $XDG_RUNTIME_DIR instead of falling back to ~/.cache.
func isUsableDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	probe := filepath.Join(dir, ".loopback-singleton-probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}
