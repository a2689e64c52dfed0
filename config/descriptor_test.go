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

package config_test

import (
	"time"

	"github.com/sabouaram/loopback-singleton/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Default", func() {
	It("produces a Descriptor that already passes Validate", func() {
		d := config.Default("my-service", "pkg:Counter")
		Expect(d.Validate()).To(Succeed())

		Expect(d.Name).To(Equal("my-service"))
		Expect(d.FactoryImport).To(Equal("pkg:Counter"))
		Expect(d.IdleTTL).To(Equal(5 * time.Minute))
		Expect(d.Codec).To(Equal("cbor"))
		Expect(d.Scope).To(Equal("user"))
		Expect(d.ConnectTimeout).To(BeNumerically(">", 0))
		Expect(d.StartTimeout).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Validate", func() {
	var d config.Descriptor

	BeforeEach(func() {
		d = config.Default("my-service", "pkg:Counter")
	})

	It("rejects an empty Name", func() {
		d.Name = ""
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects an empty FactoryImport", func() {
		d.FactoryImport = ""
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects a zero IdleTTL", func() {
		d.IdleTTL = 0
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects a negative IdleTTL", func() {
		d.IdleTTL = -time.Second
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects an empty Codec", func() {
		d.Codec = ""
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects a Scope other than \"user\"", func() {
		d.Scope = "system"
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects a zero ConnectTimeout", func() {
		d.ConnectTimeout = 0
		Expect(d.Validate()).To(HaveOccurred())
	})

	It("rejects a zero StartTimeout", func() {
		d.StartTimeout = 0
		Expect(d.Validate()).To(HaveOccurred())
	})
})
