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

package errors_test

import (
	goerrors "errors"

	. "github.com/sabouaram/loopback-singleton/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CodeError", func() {
	It("resolves an unregistered code to UnknownMessage", func() {
		Expect(CodeError(42).Message()).To(Equal(UnknownMessage))
	})

	It("resolves a registered code within a package's range", func() {
		Expect(ProtocolError.Message()).To(ContainSubstring("malformed frame"))
	})

	It("builds an Error carrying its own code and message", func() {
		err := ProtocolError.Error()
		Expect(err.IsCode(ProtocolError)).To(BeTrue())
		Expect(err.Error()).To(Equal(ProtocolError.Message()))
	})

	It("chains a parent error", func() {
		cause := goerrors.New("short read")
		err := ProtocolError.Error(cause)
		Expect(err.Unwrap()).To(ConsistOf(cause))
	})
})

var _ = Describe("Has", func() {
	It("reports false for a plain stdlib error", func() {
		Expect(Has(goerrors.New("boom"), ProtocolError)).To(BeFalse())
	})

	It("reports true through a chain of Add-ed parents", func() {
		err := New(TestErrorCode1.Uint16(), "outer")
		err.Add(ProtocolError.Error())
		Expect(Has(err, ProtocolError)).To(BeTrue())
		Expect(Has(err, TestErrorCode1)).To(BeTrue())
	})

	It("ignores nil parents passed to Add", func() {
		err := New(0, "outer")
		err.Add(nil, ProtocolError.Error(), nil)
		Expect(err.Unwrap()).To(HaveLen(1))
	})
})
