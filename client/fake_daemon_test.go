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

package client_test

import (
	"net"
	"os"
	"time"

	"github.com/sabouaram/loopback-singleton/codec"
	"github.com/sabouaram/loopback-singleton/runtimedir"
	"github.com/sabouaram/loopback-singleton/transport"
)

// fakeDaemon is a minimal stand-in for the real daemon process: it speaks
// just enough of the wire protocol (HELLO, PING, CALL "echo", SHUTDOWN) to
// exercise the client package's discovery and proxy logic without needing
// to exec a real loopbackd binary.
type fakeDaemon struct {
	ln        net.Listener
	paths     runtimedir.Paths
	authToken string
}

func startFakeDaemon(paths runtimedir.Paths, authToken, factoryID string) *fakeDaemon {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}

	fd := &fakeDaemon{ln: ln, paths: paths, authToken: authToken}

	rec := runtimedir.Record{
		ProtocolVersion: runtimedir.ProtocolVersion,
		Host:            "127.0.0.1",
		Port:            ln.Addr().(*net.TCPAddr).Port,
		Pid:             os.Getpid(),
		CodecName:       "cbor",
		StartedAt:       time.Now(),
		FactoryID:       factoryID,
	}
	if err := runtimedir.WriteRuntime(paths, rec); err != nil {
		panic(err)
	}

	go fd.serve()
	return fd
}

func (fd *fakeDaemon) serve() {
	for {
		conn, err := fd.ln.Accept()
		if err != nil {
			return
		}
		go fd.handle(conn)
	}
}

func (fd *fakeDaemon) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	fr := transport.NewFramer(conn, transport.MaxFrameSize)
	c := codec.CBOR()

	raw, err := fr.Recv()
	if err != nil {
		return
	}
	frame, err := c.DecodeFrame(raw)
	if err != nil || frame.Tag != codec.TagHello {
		return
	}

	payload := codec.AsSlice(frame.Payload)
	token, _ := payload[1].(string)
	if token != fd.authToken {
		b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"bad token"}})
		_ = fr.Send(b)
		return
	}

	b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagOK, Payload: []interface{}{os.Getpid()}})
	if err := fr.Send(b); err != nil {
		return
	}

	for {
		raw, err := fr.Recv()
		if err != nil {
			return
		}
		frame, err := c.DecodeFrame(raw)
		if err != nil {
			return
		}

		switch frame.Tag {
		case codec.TagPing:
			b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagOK, Payload: []interface{}{
				map[string]interface{}{"pid": os.Getpid(), "active": 1},
			}})
			_ = fr.Send(b)

		case codec.TagCall:
			p := codec.AsSlice(frame.Payload)
			method, _ := p[0].(string)
			args := codec.AsSlice(p[1])
			if method == "echo" && len(args) > 0 {
				b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagOK, Payload: []interface{}{args[0]}})
				_ = fr.Send(b)
			} else {
				b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"unknown method"}})
				_ = fr.Send(b)
			}

		case codec.TagShutdown:
			b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagOK, Payload: []interface{}{map[string]interface{}{"shutdown": true}}})
			_ = fr.Send(b)
			runtimedir.RemoveRuntime(fd.paths)
			_ = fd.ln.Close()
			return

		default:
			b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"unsupported"}})
			_ = fr.Send(b)
		}
	}
}

func (fd *fakeDaemon) Close() {
	_ = fd.ln.Close()
}
