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

// Package perm wraps os.FileMode with octal-string parsing, the one
// conversion runtimedir needs to keep its directory/file permission bits
// (spec.md §4.2: "0700" / "0600") out of raw os.FileMode literals.
package perm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Perm is a parsed file permission.
type Perm os.FileMode

// Parse parses an octal string such as "0700" into a Perm.
func Parse(s string) (Perm, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)

	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("perm: invalid octal permission %q: %w", s, err)
	}

	return Perm(v), nil
}

// FileMode returns p as an os.FileMode, ready for os.MkdirAll/os.OpenFile.
func (p Perm) FileMode() os.FileMode {
	return os.FileMode(p)
}

// String renders p back as an octal string, e.g. "0700".
func (p Perm) String() string {
	return fmt.Sprintf("%#o", uint32(p))
}
