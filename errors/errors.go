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

// Package errors is this module's error taxonomy: a small tagged-variant
// Error on top of a numeric CodeError, with a parent chain so a daemon- or
// client-side failure can carry the lower-level cause that produced it
// (spec.md §7's LoopbackSingletonError family tree). Every CodeError this
// module raises is declared in variants.go and partitioned by package via
// modules.go's MinPkgX ranges.
package errors

// Error is a CodeError-tagged error with an optional parent chain. Add
// appends parents (e.g. the lower-level cause), HasCode/IsCode answer
// "is this, or one of its parents, code X" for the taxonomy walks
// IsFactoryMismatch/IsDaemonConnectionError/IsRemoteError do in variants.go.
type Error interface {
	error

	// IsCode reports whether this error's own code equals code, ignoring
	// parents.
	IsCode(code CodeError) bool
	// HasCode reports whether this error or any parent has code.
	HasCode(code CodeError) bool

	// Add appends non-nil parents to this error's parent chain.
	Add(parent ...error)

	// Unwrap exposes the parent chain to the standard errors.Is/As walk.
	Unwrap() []error
}

type ers struct {
	code    uint16
	message string
	parent  []error
}

// New builds an Error with the given code, message and parents. A nil
// parent is dropped; a non-Error parent is kept as-is (still reachable via
// Unwrap, just without a CodeError of its own).
func New(code uint16, message string, parent ...error) Error {
	e := &ers{code: code, message: message}
	e.Add(parent...)
	return e
}

func (e *ers) Error() string {
	return e.message
}

func (e *ers) IsCode(code CodeError) bool {
	return e.code == code.Uint16()
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}
	for _, p := range e.parent {
		if Has(p, code) {
			return true
		}
	}
	return false
}

func (e *ers) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.parent = append(e.parent, p)
		}
	}
}

func (e *ers) Unwrap() []error {
	return e.parent
}

// Has reports whether err is an Error with code, or has a parent (direct or
// transitive) with code.
func Has(err error, code CodeError) bool {
	e, ok := err.(Error)
	if !ok {
		return false
	}
	return e.HasCode(code)
}
