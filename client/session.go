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

// Package client implements the discover-or-spawn rendezvous spec.md §4.5
// describes: connect_once, the connect_or_spawn coordination algorithm,
// and the authenticated proxy + service-level conveniences built on top of
// it.
package client

import (
	"fmt"
	"net"
	"time"

	"github.com/sabouaram/loopback-singleton/codec"
	liberr "github.com/sabouaram/loopback-singleton/errors"
	"github.com/sabouaram/loopback-singleton/runtimedir"
	"github.com/sabouaram/loopback-singleton/transport"
)

// session is a connected, handshaken socket plus the codec it negotiated.
type session struct {
	fr    *transport.Framer
	codec codec.Codec
	pid   int
}

// connectOnce implements spec.md §4.5 connect_once: read runtime metadata
// (missing is a terminal ConnectionFailedError for this attempt), dial,
// send HELLO, and validate both the handshake reply and the factory
// identity of the process we actually reached.
func connectOnce(paths runtimedir.Paths, desc resolvedDescriptor) (*session, error) {
	rec, ok := runtimedir.ReadRuntime(paths)
	if !ok {
		return nil, liberr.NewConnectionFailed(fmt.Errorf("no runtime metadata for %q", paths.Name))
	}

	c, err := codec.ByName(desc.codecName)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", rec.Host, rec.Port)
	conn, err := net.DialTimeout("tcp", addr, desc.connectTimeout)
	if err != nil {
		return nil, liberr.NewConnectionFailed(err)
	}

	fr := transport.NewFramer(conn, transport.MaxFrameSize)

	helloFrame := codec.Frame{
		Tag:     codec.TagHello,
		Payload: []interface{}{runtimedir.ProtocolVersion, desc.authToken},
	}
	b, err := c.EncodeFrame(helloFrame)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := fr.Send(b); err != nil {
		_ = conn.Close()
		return nil, liberr.NewConnectionFailed(err)
	}

	raw, err := fr.Recv()
	if err != nil {
		_ = conn.Close()
		return nil, liberr.NewConnectionFailed(err)
	}

	reply, err := c.DecodeFrame(raw)
	if err != nil || reply.Tag != codec.TagOK {
		_ = conn.Close()
		return nil, liberr.NewHandshakeFailed()
	}

	replyPayload := codec.AsSlice(reply.Payload)
	pid := 0
	if len(replyPayload) > 0 {
		pid = codec.AsInt(replyPayload[0])
	}

	if rec.FactoryID != "" && desc.factoryID != "" && rec.FactoryID != desc.factoryID {
		_ = conn.Close()
		return nil, liberr.NewFactoryMismatch(fmt.Errorf(
			"daemon factory id %q does not match requested %q", rec.FactoryID, desc.factoryID))
	}

	return &session{fr: fr, codec: c, pid: pid}, nil
}

// resolvedDescriptor is the subset of config.Descriptor plus derived
// values (auth token, factory id) connectOnce and the spawn path need,
// kept separate from config.Descriptor so this package doesn't need to
// recompute factory id / read the auth token at every call site.
type resolvedDescriptor struct {
	name           string
	factoryImport  string
	factoryArgs    []interface{}
	factoryKwargs  map[string]interface{}
	factoryID      string
	authToken      string
	idleTTL        time.Duration
	codecName      string
	scope          string
	connectTimeout time.Duration
	startTimeout   time.Duration
}
