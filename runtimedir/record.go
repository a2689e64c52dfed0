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
	"os"
	"time"

	libcbr "github.com/fxamacker/cbor/v2"
	renameio "github.com/google/renameio/v2"
)

// ProtocolVersion is the single integer spec.md §6 requires the handshake
// to match exactly; bumping it is a deliberate breaking change.
const ProtocolVersion = 1

// Record is the runtime metadata record spec.md §3 describes: the
// liveness advertisement a daemon publishes once it is ready to serve.
type Record struct {
	ProtocolVersion int       `cbor:"1,keyasint"`
	Host            string    `cbor:"2,keyasint"`
	Port            int       `cbor:"3,keyasint"`
	Pid             int       `cbor:"4,keyasint"`
	CodecName       string    `cbor:"5,keyasint"`
	StartedAt       time.Time `cbor:"6,keyasint"`
	FactoryID       string    `cbor:"7,keyasint,omitempty"`
}

// ReadRuntime returns the decoded runtime metadata, or ok=false if it is
// absent, unreadable, or corrupt. Per spec.md §4.2, absence, permission
// errors, decode failures and premature EOF are all folded into "not
// present" so a reader never has to distinguish them — corrupt state
// self-heals rather than propagating.
func ReadRuntime(p Paths) (rec Record, ok bool) {
	b, err := os.ReadFile(p.Runtime)
	if err != nil {
		return Record{}, false
	}

	if err := libcbr.Unmarshal(b, &rec); err != nil {
		return Record{}, false
	}

	return rec, true
}

// WriteRuntime atomically publishes rec to p.Runtime: serialize to a
// sibling temp file, apply owner-only permissions, rename over the
// target. google/renameio/v2 provides the fsync-before-rename durability
// spec.md §4.2 asks for ("serialize to a sibling .tmp file ... atomically
// rename").
func WriteRuntime(p Paths, rec Record) error {
	b, err := libcbr.Marshal(&rec)
	if err != nil {
		return err
	}
	return renameio.WriteFile(p.Runtime, b, filePerm.FileMode())
}

// RemoveRuntime best-effort unlinks runtime.bin, runtime.bin.tmp,
// factory.bin and factory.bin.tmp. Missing files are ignored.
func RemoveRuntime(p Paths) {
	for _, f := range []string{p.Runtime, p.Runtime + ".tmp", p.Factory, p.Factory + ".tmp"} {
		_ = os.Remove(f)
	}
}
