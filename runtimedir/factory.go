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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"sort"

	libcbr "github.com/fxamacker/cbor/v2"
	renameio "github.com/google/renameio/v2"

	liberr "github.com/sabouaram/loopback-singleton/errors"
)

// FactoryPayload is handed to the daemon in place of command-line
// arguments, per spec.md §3, to avoid argv exposure of constructor data.
type FactoryPayload struct {
	ProtocolVersion int                    `cbor:"1,keyasint"`
	FactoryImport   string                 `cbor:"2,keyasint"`
	FactoryArgs     []interface{}          `cbor:"3,keyasint"`
	FactoryKwargs   map[string]interface{} `cbor:"4,keyasint"`
}

// Validate checks the structural requirements spec.md §4.4 places on a
// factory payload before it is ever handed to the factory collaborator:
// FactoryImport must be non-empty.
func (f FactoryPayload) Validate() error {
	if f.FactoryImport == "" {
		return liberr.ProtocolError.Error(errors.New("factory payload: empty factory_import"))
	}
	return nil
}

// WriteFactory atomically publishes the factory payload file.
func WriteFactory(p Paths, payload FactoryPayload) error {
	b, err := libcbr.Marshal(&payload)
	if err != nil {
		return err
	}
	return renameio.WriteFile(p.Factory, b, filePerm.FileMode())
}

// ReadFactory reads and decodes the factory payload file at its default
// location under p.
func ReadFactory(p Paths) (FactoryPayload, error) {
	return ReadFactoryFile(p.Factory)
}

// ReadFactoryFile reads and decodes the factory payload file at an
// explicit path — the daemon process is invoked with --factory-file
// (spec.md §6) and must honor whatever path it is given, not assume its
// own Paths.Factory.
func ReadFactoryFile(path string) (FactoryPayload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FactoryPayload{}, err
	}

	var payload FactoryPayload
	if err := libcbr.Unmarshal(b, &payload); err != nil {
		return FactoryPayload{}, liberr.ProtocolError.Error(err)
	}
	return payload, nil
}

// FactoryID derives the 8-byte (rendered as 16 hex characters) content
// hash over (factory_import, args, canonicalized kwargs) spec.md §3
// defines. Canonicalization recursively sorts mapping entries by key and
// preserves sequence order, so two payloads differing only by key order in
// any nested mapping hash identically.
func FactoryID(factoryImport string, args []interface{}, kwargs map[string]interface{}) (string, error) {
	canon := canonicalize(map[string]interface{}{
		"import": factoryImport,
		"args":   canonicalizeSlice(args),
		"kwargs": canonicalizeMap(kwargs),
	})

	b, err := libcbr.Marshal(canon)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8]), nil
}

// canonicalize recursively sorts map keys (stable, deterministic ordering)
// and preserves slice/array order, so structurally-equal-up-to-key-order
// values produce byte-identical encodings.
func canonicalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return canonicalizeMap(t)
	case []interface{}:
		return canonicalizeSlice(t)
	default:
		return v
	}
}

func canonicalizeMap(m map[string]interface{}) []cborPair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]cborPair, 0, len(keys))
	for _, k := range keys {
		out = append(out, cborPair{K: k, V: canonicalize(m[k])})
	}
	return out
}

func canonicalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = canonicalize(v)
	}
	return out
}

// cborPair renders a canonicalized mapping entry as a positional
// [key, value] pair instead of a native Go map, so sha256-over-CBOR
// ordering depends only on the sort above, never on map iteration order.
type cborPair struct {
	_ struct{} `cbor:",toarray"`
	K string
	V interface{}
}
