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

// Package transport implements the length-prefixed frame exchange spec.md
// §4.1 specifies: a big-endian uint32 length prefix followed by exactly
// that many payload bytes, with a maximum frame size enforced on the
// receive side before the payload is ever read off the stream.
package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	liberr "github.com/sabouaram/loopback-singleton/errors"
)

// MaxFrameSize is the default maximum declared frame length, matching
// spec.md §4.1's 16 MiB bound.
const MaxFrameSize uint32 = 16 * 1024 * 1024

const lengthPrefixSize = 4

// Framer reads and writes length-prefixed frames over a single stream
// connection. It is not safe for concurrent use by multiple goroutines on
// the same direction (callers serialize their own reads/writes, exactly as
// the daemon's single-worker handler and the proxy's mutex-guarded socket
// already do).
type Framer struct {
	conn    net.Conn
	br      *bufio.Reader
	maxSize uint32
}

// peekBufCap bounds the bufio.Reader buffer RecvTimeout peeks into. It is
// smaller than MaxFrameSize: the timeout-aware path is only ever used for
// small control frames (HELLO/PING/SHUTDOWN-sized), never bulk CALL
// payloads, so a 1 MiB buffer comfortably covers it without paying a 16
// MiB allocation per accepted connection.
const peekBufCap = 1 << 20

// NewFramer wraps conn with frame-level Send/Recv, enforcing maxSize as the
// largest acceptable declared payload length. A maxSize of 0 selects
// MaxFrameSize.
func NewFramer(conn net.Conn, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = MaxFrameSize
	}

	bufSize := peekBufCap
	if int(maxSize)+lengthPrefixSize < bufSize {
		bufSize = int(maxSize) + lengthPrefixSize
	}

	return &Framer{conn: conn, br: bufio.NewReaderSize(conn, bufSize), maxSize: maxSize}
}

// Conn returns the underlying connection.
func (f *Framer) Conn() net.Conn { return f.conn }

// Close closes the underlying connection.
func (f *Framer) Close() error { return f.conn.Close() }

// Send writes the length prefix followed by payload, looping on partial
// writes until the entire frame has been written or an error occurs.
func (f *Framer) Send(payload []byte) error {
	var hdr [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	if err := writeFull(f.conn, hdr[:]); err != nil {
		return liberr.ProtocolError.Error(err)
	}
	if err := writeFull(f.conn, payload); err != nil {
		return liberr.ProtocolError.Error(err)
	}
	return nil
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Recv blocks until a complete frame has arrived and returns its payload.
// A declared length exceeding maxSize is rejected without attempting to
// read the payload bytes off the stream; the connection should be closed
// by the caller immediately after.
func (f *Framer) Recv() ([]byte, error) {
	n, err := f.readLength()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(f.br, buf); err != nil {
		return nil, liberr.NewConnectionFailed(err)
	}
	return buf, nil
}

func (f *Framer) readLength() (uint32, error) {
	var hdr [lengthPrefixSize]byte
	if _, err := io.ReadFull(f.br, hdr[:]); err != nil {
		return 0, liberr.NewConnectionFailed(err)
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > f.maxSize {
		return 0, liberr.ProtocolError.Error(fmt.Errorf("declared frame length %d exceeds maximum %d", n, f.maxSize))
	}
	return n, nil
}

// errNotReady is returned internally by RecvTimeout when no complete frame
// is buffered yet within the deadline; it is not a connection error.
var errNotReady = errors.New("transport: frame not ready")

// IsNotReady reports whether err is the "no complete frame yet" condition
// RecvTimeout returns when its deadline elapses without enough buffered
// bytes for a full frame. Callers (the daemon watchdog path) treat this as
// "keep waiting", distinct from a genuine connection error.
func IsNotReady(err error) bool {
	return errors.Is(err, errNotReady)
}

// RecvTimeout waits up to d for a complete frame to become available,
// without consuming a partial frame: it peeks the length prefix and then
// peeks the full frame length, only advancing the reader once the peek
// shows the frame is entirely buffered. If the peer has half-closed while
// a partial frame is buffered, it returns a connection-closed error rather
// than blocking forever.
func (f *Framer) RecvTimeout(d time.Duration) ([]byte, error) {
	deadline := time.Now().Add(d)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errNotReady
		}

		_ = f.conn.SetReadDeadline(time.Now().Add(minDuration(remaining, 50*time.Millisecond)))

		hdr, err := f.br.Peek(lengthPrefixSize)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil, liberr.NewConnectionFailed(err)
			}
			return nil, liberr.NewConnectionFailed(err)
		}

		n := binary.BigEndian.Uint32(hdr)
		if n > f.maxSize {
			_ = f.conn.SetReadDeadline(time.Time{})
			return nil, liberr.ProtocolError.Error(fmt.Errorf("declared frame length %d exceeds maximum %d", n, f.maxSize))
		}

		total := lengthPrefixSize + int(n)
		if total > f.br.Size() {
			_ = f.conn.SetReadDeadline(time.Time{})
			return nil, liberr.ProtocolError.Error(fmt.Errorf("frame too large for timeout-aware receive: %d bytes", total))
		}

		full, err := f.br.Peek(total)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil, liberr.NewConnectionFailed(err)
			}
			return nil, liberr.NewConnectionFailed(err)
		}

		payload := make([]byte, n)
		copy(payload, full[lengthPrefixSize:])

		if _, err := f.br.Discard(total); err != nil {
			return nil, liberr.NewConnectionFailed(err)
		}

		_ = f.conn.SetReadDeadline(time.Time{})
		return payload, nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
