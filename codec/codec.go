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

// Package codec carries the wire messages of the loopback-singleton protocol
// as tagged, tuple-shaped frames without leaking a language-native
// serializer into the protocol contract (see spec §9). Every message is a
// Frame: a tag plus a positional payload, encoded as a CBOR array so that
// the byte shape on the wire matches the bit-exact ordering spec.md §4.4
// specifies for each tag.
package codec

import (
	"fmt"

	libcbr "github.com/fxamacker/cbor/v2"

	liberr "github.com/sabouaram/loopback-singleton/errors"
)

// Tag identifies the kind of a Frame. Values are bit-exact with spec.md §4.4.
type Tag string

const (
	TagHello    Tag = "HELLO"
	TagOK       Tag = "OK"
	TagErr      Tag = "ERR"
	TagPing     Tag = "PING"
	TagCall     Tag = "CALL"
	TagShutdown Tag = "SHUTDOWN"
)

// Frame is the tuple-shaped envelope every message on the wire is modeled
// as: a leading tag, followed by a positional payload whose element order
// and types are defined per-tag by spec.md §4.4.
type Frame struct {
	_       struct{} `cbor:",toarray"`
	Tag     Tag
	Payload []interface{}
}

// Codec is the opaque (encode, decode) pair the spec treats the
// serialization layer as (spec §1, "Non-goals"). Implementations must
// preserve the tuple shape of Frame; they must not reorder or rename
// fields.
type Codec interface {
	// Name is the codec identifier carried in runtime metadata and the
	// HELLO handshake reply, e.g. "cbor".
	Name() string
	// EncodeFrame serializes f to bytes.
	EncodeFrame(f Frame) ([]byte, error)
	// DecodeFrame deserializes bytes produced by EncodeFrame back into a
	// Frame.
	DecodeFrame(b []byte) (Frame, error)
}

type cborCodec struct{}

// CBOR returns the default self-describing binary codec, backed by
// github.com/fxamacker/cbor/v2. Message tuples are encoded as CBOR arrays
// via the library's "toarray" struct tag, matching spec §9's "do not leak
// the language's native serializer" requirement: any CBOR-capable peer in
// any language can decode the frame without knowledge of Go types.
func CBOR() Codec { return cborCodec{} }

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) EncodeFrame(f Frame) ([]byte, error) {
	b, err := libcbr.Marshal(&f)
	if err != nil {
		return nil, liberr.ProtocolError.Error(err)
	}
	return b, nil
}

func (cborCodec) DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := libcbr.Unmarshal(b, &f); err != nil {
		return Frame{}, liberr.ProtocolError.Error(err)
	}
	return f, nil
}

// ByName resolves a Codec by its wire name. Only "cbor" is currently
// registered; unknown names are a ProtocolError since a daemon and its
// clients must agree on the exact byte shape of every frame.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "cbor":
		return CBOR(), nil
	default:
		return nil, liberr.ProtocolError.Error(fmt.Errorf("unknown codec: %s", name))
	}
}
