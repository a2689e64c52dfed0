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

package runtimedir

import (
	"crypto/rand"
	"encoding/hex"
	"os"
)

// authTokenSize is the 32-byte shared secret size spec.md §3 specifies,
// rendered as a 64-character hex string on disk.
const authTokenSize = 32

// EnsureAuthToken creates the per-name directory if needed, then returns
// the auth token for it: created once with exclusive-create semantics, or
// read back if another process (or an earlier run) already created it.
// Permission errors during the pre-read are tolerated and fall through to
// the create attempt, matching spec.md §4.2.
func EnsureAuthToken(p Paths) (string, error) {
	if err := p.EnsureDir(); err != nil {
		return "", err
	}

	if tok, err := os.ReadFile(p.Auth); err == nil {
		return string(tok), nil
	}

	tok, err := newToken()
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(p.Auth, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm.FileMode())
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := os.ReadFile(p.Auth)
			if rerr != nil {
				return "", rerr
			}
			return string(existing), nil
		}
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(tok); err != nil {
		return "", err
	}
	_ = f.Chmod(filePerm.FileMode())

	return tok, nil
}

func newToken() (string, error) {
	b := make([]byte, authTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
