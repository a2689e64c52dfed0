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

// Package factory is the pluggable registry spec.md §9 describes in place
// of the original's "import string -> callable" reflection: embedding code
// registers a constructor under an import-string key at init() time, and
// the daemon resolves the key it's told at startup without needing any
// host-language reflection. The core guarantees only that the factory
// payload is delivered to the registered callback intact.
package factory

import (
	"fmt"
	"sync"
)

// Constructor builds the singleton object from positional args and keyword
// args, the same pair the original factory description carries (spec.md
// §3, "factory description: an import string plus positional and keyword
// argument sequences").
type Constructor func(args []interface{}, kwargs map[string]interface{}) (interface{}, error)

var (
	mu  sync.RWMutex
	reg = make(map[string]Constructor)
)

// Register adds a constructor under importString. Calling Register twice
// for the same key overwrites the previous registration — callers
// typically do this once from an init() function.
func Register(importString string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	reg[importString] = ctor
}

// Lookup resolves importString to its registered Constructor. ok is false
// if nothing was ever registered under that key.
func Lookup(importString string) (Constructor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ctor, ok := reg[importString]
	return ctor, ok
}

// Build resolves and invokes the constructor registered under
// importString, returning an error that names the missing key if nothing
// is registered.
func Build(importString string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	ctor, ok := Lookup(importString)
	if !ok {
		return nil, fmt.Errorf("factory: no constructor registered for %q", importString)
	}
	return ctor(args, kwargs)
}
