/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

// Root and family codes for the loopback-singleton error taxonomy. Every
// exported CodeError here is registered with RegisterIdFctMessage below so
// that CodeError.Error() / CodeError.Message() produce the same diagnostic
// text regardless of which package raised it.
const (
	// LoopbackSingletonError is the family root; no code is ever raised
	// directly with this value, it only anchors the numbering.
	LoopbackSingletonError CodeError = MinAvailable - 1

	ProtocolError CodeError = MinPkgTransport
)

const (
	ConnectionFailedError CodeError = MinPkgClient + iota
	HandshakeError
	DaemonConnectionError
	FactoryMismatchError
	RemoteError
)

func init() {
	RegisterIdFctMessage(MinPkgTransport, func(code CodeError) string {
		switch code {
		case ProtocolError:
			return "malformed frame or out-of-spec message length"
		default:
			return UnknownMessage
		}
	})

	RegisterIdFctMessage(MinPkgClient, func(code CodeError) string {
		switch code {
		case ConnectionFailedError:
			return "no daemon reachable for this name"
		case HandshakeError:
			return "handshake failed"
		case DaemonConnectionError:
			return "failed to reach or start daemon"
		case FactoryMismatchError:
			return "running daemon was constructed with a different factory"
		case RemoteError:
			return "remote method call failed"
		default:
			return UnknownMessage
		}
	})
}

// NewConnectionFailed builds a DaemonConnectionError whose direct code is
// ConnectionFailedError, matching spec's "DaemonConnectionError is the
// parent of ConnectionFailedError / HandshakeError" taxonomy: HasCode
// reports true for both the specific and the family code.
func NewConnectionFailed(parent ...error) Error {
	e := ConnectionFailedError.Error(parent...)
	e.Add(DaemonConnectionError.Error())
	return e
}

// NewHandshakeFailed builds a DaemonConnectionError whose direct code is
// HandshakeError.
func NewHandshakeFailed(parent ...error) Error {
	e := HandshakeError.Error(parent...)
	e.Add(DaemonConnectionError.Error())
	return e
}

// IsDaemonConnectionError reports whether err is, or descends from, the
// DaemonConnectionError family (directly or via ConnectionFailedError /
// HandshakeError).
func IsDaemonConnectionError(err error) bool {
	return Has(err, DaemonConnectionError) || Has(err, ConnectionFailedError) || Has(err, HandshakeError)
}

// NewFactoryMismatch builds a FactoryMismatchError: the running daemon was
// constructed with a factory description whose identity differs from what
// the caller requested. Per spec §4.5 this is terminal and must never be
// retried by the caller.
func NewFactoryMismatch(parent ...error) Error {
	return FactoryMismatchError.Error(parent...)
}

// NewRemoteError builds a RemoteError carrying the daemon-side diagnostic
// text for a CALL whose user method raised.
func NewRemoteError(diagnostic string) Error {
	return New(RemoteError.Uint16(), diagnostic)
}

// IsFactoryMismatch reports whether err is a FactoryMismatchError.
func IsFactoryMismatch(err error) bool {
	return Has(err, FactoryMismatchError)
}

// IsRemoteError reports whether err is a RemoteError.
func IsRemoteError(err error) bool {
	return Has(err, RemoteError)
}
