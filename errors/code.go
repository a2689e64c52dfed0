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

package errors

// Message is the function a package registers to resolve the human-readable
// text for every CodeError in its range.
type Message func(code CodeError) (message string)

// CodeError is a numeric error code, partitioned per package by the
// MinPkgX constants in modules.go.
type CodeError uint16

const (
	// UnknownError is the fallback code for an error with no family.
	UnknownError CodeError = 0

	// UnknownMessage is the default message for any code with nothing
	// registered for it.
	UnknownMessage = "unknown error"
)

// idMsgFct maps a package's range-starting CodeError (one of the MinPkgX
// constants) to the function that resolves messages for every code in that
// range. A code is resolved against the highest registered key not greater
// than itself.
var idMsgFct = make(map[CodeError]Message)

// RegisterIdFctMessage registers fct as the message resolver for every
// CodeError from minCode up to (but not including) the next package's
// registered range. Called once per package, from an init().
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	idMsgFct[minCode] = fct
}

// rangeKey returns the registered range key that code falls under, or 0 if
// none matches (meaning no package claimed that range).
func rangeKey(code CodeError) CodeError {
	var best CodeError
	for k := range idMsgFct {
		if k <= code && k > best {
			best = k
		}
	}
	return best
}

// Message resolves the human-readable text for c via whichever package
// registered the range c falls in, or UnknownMessage if none did.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	if fct, ok := idMsgFct[rangeKey(c)]; ok {
		if m := fct(c); m != "" {
			return m
		}
	}

	return UnknownMessage
}

// Uint16 returns c as a uint16, the representation an Error stores its
// code in and IsCode compares against.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// Error builds an Error whose direct code is c and whose message is
// c.Message(), optionally chaining parent errors under it.
func (c CodeError) Error(parent ...error) Error {
	return New(c.Uint16(), c.Message(), parent...)
}
