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

package daemon

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/sabouaram/loopback-singleton/codec"
	"github.com/sabouaram/loopback-singleton/logger"
	"github.com/sabouaram/loopback-singleton/runtimedir"
	"github.com/sabouaram/loopback-singleton/transport"
)

// handlerPollInterval is the RecvTimeout granularity a connected handler
// uses once past the handshake, so it notices the daemon's shutdown
// signal without needing to be individually cancelled (spec.md §4.1, the
// "daemon's idle watchdog path" use of the timeout-aware receive).
const handlerPollInterval = 200 * time.Millisecond

func (d *Daemon) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	fr := transport.NewFramer(conn, transport.MaxFrameSize)

	if !d.handshake(fr) {
		return
	}

	d.live.onHandshake()
	defer d.live.onConnectionClosed()

	for {
		raw, err := fr.RecvTimeout(handlerPollInterval)
		if err != nil {
			if transport.IsNotReady(err) {
				select {
				case <-d.shutdown:
					return
				default:
					continue
				}
			}
			// connection closed or protocol error: exit the handler quietly.
			return
		}

		frame, err := d.codec.DecodeFrame(raw)
		if err != nil {
			_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"malformed frame"}})
			return
		}

		if d.dispatchFrame(fr, frame) == stopHandler {
			return
		}
	}
}

func (d *Daemon) handshake(fr *transport.Framer) bool {
	raw, err := fr.Recv()
	if err != nil {
		return false
	}

	frame, err := d.codec.DecodeFrame(raw)
	if err != nil || frame.Tag != codec.TagHello {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"handshake failed"}})
		return false
	}

	payload := codec.AsSlice(frame.Payload)
	if len(payload) != 2 {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"handshake failed"}})
		return false
	}

	protoVersion := codec.AsInt(payload[0])
	token, _ := payload[1].(string)

	if protoVersion != runtimedir.ProtocolVersion || token != d.authToken {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"handshake failed"}})
		return false
	}

	d.log.Entry(logger.DebugLevel, "handshake ok").Log()

	return d.reply(fr, codec.Frame{
		Tag:     codec.TagOK,
		Payload: []interface{}{os.Getpid(), map[string]interface{}{"codec": d.codec.Name()}},
	}) == nil
}

type handlerSignal uint8

const (
	continueHandler handlerSignal = iota
	stopHandler
)

func (d *Daemon) dispatchFrame(fr *transport.Framer, frame codec.Frame) handlerSignal {
	switch frame.Tag {
	case codec.TagPing:
		active, _, _ := d.live.snapshot()
		_ = d.reply(fr, codec.Frame{
			Tag: codec.TagOK,
			Payload: []interface{}{map[string]interface{}{
				"pid":    os.Getpid(),
				"active": active,
			}},
		})
		return continueHandler

	case codec.TagCall:
		return d.dispatchCall(fr, frame)

	case codec.TagShutdown:
		_ = d.reply(fr, codec.Frame{
			Tag:     codec.TagOK,
			Payload: []interface{}{map[string]interface{}{"shutdown": true}},
		})
		d.triggerShutdown()
		return stopHandler

	default:
		_ = d.reply(fr, codec.Frame{
			Tag:     codec.TagErr,
			Payload: []interface{}{"unknown message type: " + string(frame.Tag)},
		})
		return continueHandler
	}
}

func (d *Daemon) dispatchCall(fr *transport.Framer, frame codec.Frame) handlerSignal {
	payload := codec.AsSlice(frame.Payload)
	if len(payload) != 3 {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"malformed CALL"}})
		return continueHandler
	}

	method, _ := payload[0].(string)
	args := codec.AsSlice(payload[1])
	kwargs := codec.AsStringMap(payload[2])

	if strings.HasPrefix(method, "_") {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"private methods are not allowed"}})
		return continueHandler
	}

	reply := make(chan callReply, 1)
	req := callRequest{method: method, args: args, kwargs: kwargs, reply: reply}

	select {
	case d.work <- req:
	case <-d.shutdown:
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{"daemon is shutting down"}})
		return stopHandler
	}

	res := <-reply
	if res.ok {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagOK, Payload: []interface{}{res.result}})
	} else {
		_ = d.reply(fr, codec.Frame{Tag: codec.TagErr, Payload: []interface{}{res.errText}})
	}
	return continueHandler
}

func (d *Daemon) reply(fr *transport.Framer, frame codec.Frame) error {
	b, err := d.codec.EncodeFrame(frame)
	if err != nil {
		return err
	}
	return fr.Send(b)
}
