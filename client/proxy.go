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
	"runtime"
	"strings"
	"sync"

	"github.com/sabouaram/loopback-singleton/codec"
	liberr "github.com/sabouaram/loopback-singleton/errors"
)

// Proxy is a client-side handle bound to one authenticated, handshaken
// socket (spec.md §4.5 "Proxy object"). All socket I/O is guarded by mu so
// concurrent callers on one Proxy cannot interleave frames; a closed Proxy
// rejects further calls.
type Proxy struct {
	mu     sync.Mutex
	sess   *session
	closed bool
}

func newProxy(sess *session) *Proxy {
	p := &Proxy{sess: sess}
	runtime.SetFinalizer(p, func(p *Proxy) { _ = p.Close() })
	return p
}

// Call sends a CALL message for method with the given positional and
// keyword arguments and returns the daemon's OK payload, or a RemoteError
// carrying the daemon's diagnostic text if the user method raised.
// Attribute names beginning with "_" are rejected client-side too, mirroring
// the server-side enforcement so the round trip is never attempted.
func (p *Proxy) Call(method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if strings.HasPrefix(method, "_") {
		return nil, liberr.NewRemoteError("private methods are not allowed")
	}

	if args == nil {
		args = []interface{}{}
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	frame := codec.Frame{
		Tag:     codec.TagCall,
		Payload: []interface{}{method, args, kwargs},
	}

	reply, err := p.roundTrip(frame)
	if err != nil {
		return nil, err
	}

	if reply.Tag == codec.TagErr {
		payload := codec.AsSlice(reply.Payload)
		diag := ""
		if len(payload) > 0 {
			diag, _ = payload[0].(string)
		}
		return nil, liberr.NewRemoteError(diag)
	}

	payload := codec.AsSlice(reply.Payload)
	if len(payload) > 0 {
		return payload[0], nil
	}
	return nil, nil
}

// PingDaemon sends a PING message and returns the daemon's reported pid and
// active connection count.
func (p *Proxy) PingDaemon() (pid int, active int, err error) {
	reply, err := p.roundTrip(codec.Frame{Tag: codec.TagPing})
	if err != nil {
		return 0, 0, err
	}
	if reply.Tag != codec.TagOK {
		return 0, 0, liberr.NewRemoteError("unexpected PING reply")
	}

	payload := codec.AsSlice(reply.Payload)
	if len(payload) == 0 {
		return 0, 0, liberr.NewRemoteError("malformed PING reply")
	}
	body := codec.AsStringMap(payload[0])
	return codec.AsInt(body["pid"]), codec.AsInt(body["active"]), nil
}

// Shutdown sends a SHUTDOWN message telling the daemon to exit its accept
// loop. force is carried on the wire for forward compatibility; the
// reference daemon treats force=true and force=false identically.
func (p *Proxy) Shutdown(force bool) error {
	reply, err := p.roundTrip(codec.Frame{
		Tag:     codec.TagShutdown,
		Payload: []interface{}{force},
	})
	if err != nil {
		return err
	}
	if reply.Tag != codec.TagOK {
		return liberr.NewRemoteError("SHUTDOWN was rejected")
	}
	return nil
}

func (p *Proxy) roundTrip(frame codec.Frame) (codec.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return codec.Frame{}, liberr.NewConnectionFailed(fmt.Errorf("Proxy is closed"))
	}

	b, err := p.sess.codec.EncodeFrame(frame)
	if err != nil {
		return codec.Frame{}, err
	}
	if err := p.sess.fr.Send(b); err != nil {
		return codec.Frame{}, liberr.NewConnectionFailed(err)
	}

	raw, err := p.sess.fr.Recv()
	if err != nil {
		return codec.Frame{}, liberr.NewConnectionFailed(err)
	}

	return p.sess.codec.DecodeFrame(raw)
}

// Close closes the underlying socket. It is idempotent and safe to call
// from a finalizer.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	runtime.SetFinalizer(p, nil)
	return p.sess.fr.Close()
}
