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

package runtimedir_test

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sabouaram/loopback-singleton/runtimedir"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func tempPaths(dir string) runtimedir.Paths {
	return runtimedir.Paths{
		Name:    "test-name",
		Scope:   "user",
		Dir:     dir,
		Runtime: filepath.Join(dir, "runtime.bin"),
		Auth:    filepath.Join(dir, "auth.bin"),
		Lock:    filepath.Join(dir, "lockfile.lock"),
		Factory: filepath.Join(dir, "factory.bin"),
	}
}

var _ = Describe("New", func() {
	It("honors XDG_RUNTIME_DIR when it is usable", func() {
		if runtime.GOOS == "windows" {
			Skip("XDG_RUNTIME_DIR is POSIX-only")
		}

		dir := GinkgoT().TempDir()
		GinkgoT().Setenv("XDG_RUNTIME_DIR", dir)

		p, err := runtimedir.New("user", "my-service")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Dir).To(Equal(filepath.Join(dir, runtimedir.DirName, "my-service")))
	})
})

var _ = Describe("EnsureAuthToken", func() {
	It("creates a 64-char hex token and returns it again on a second call", func() {
		p := tempPaths(GinkgoT().TempDir())

		tok1, err := runtimedir.EnsureAuthToken(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok1).To(HaveLen(64))

		tok2, err := runtimedir.EnsureAuthToken(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok2).To(Equal(tok1))
	})
})

var _ = Describe("ReadRuntime/WriteRuntime", func() {
	It("round-trips a record", func() {
		p := tempPaths(GinkgoT().TempDir())
		Expect(p.EnsureDir()).To(Succeed())

		rec := runtimedir.Record{
			ProtocolVersion: runtimedir.ProtocolVersion,
			Host:            "127.0.0.1",
			Port:            4242,
			Pid:             1234,
			CodecName:       "cbor",
			StartedAt:       time.Now().Truncate(time.Second),
			FactoryID:       "deadbeef",
		}
		Expect(runtimedir.WriteRuntime(p, rec)).To(Succeed())

		got, ok := runtimedir.ReadRuntime(p)
		Expect(ok).To(BeTrue())
		Expect(got.Port).To(Equal(4242))
		Expect(got.Pid).To(Equal(1234))
		Expect(got.FactoryID).To(Equal("deadbeef"))
	})

	It("treats a missing file as not present", func() {
		p := tempPaths(GinkgoT().TempDir())
		_, ok := runtimedir.ReadRuntime(p)
		Expect(ok).To(BeFalse())
	})

	It("treats corrupt bytes as not present rather than erroring", func() {
		dir := GinkgoT().TempDir()
		p := tempPaths(dir)
		Expect(p.EnsureDir()).To(Succeed())
		Expect(os.WriteFile(p.Runtime, []byte("not cbor at all"), 0600)).To(Succeed())

		_, ok := runtimedir.ReadRuntime(p)
		Expect(ok).To(BeFalse())
	})

	It("RemoveRuntime is a best-effort unlink that tolerates missing files", func() {
		p := tempPaths(GinkgoT().TempDir())
		Expect(func() { runtimedir.RemoveRuntime(p) }).NotTo(Panic())
	})
})

var _ = Describe("FactoryID", func() {
	It("is stable across key order in nested kwargs", func() {
		id1, err := runtimedir.FactoryID("pkg:Counter", []interface{}{0, 1}, map[string]interface{}{
			"a": 1, "b": 2,
		})
		Expect(err).NotTo(HaveOccurred())

		id2, err := runtimedir.FactoryID("pkg:Counter", []interface{}{0, 1}, map[string]interface{}{
			"b": 2, "a": 1,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(id1).To(Equal(id2))
		Expect(id1).To(HaveLen(16))
	})

	It("differs when positional args differ", func() {
		id1, _ := runtimedir.FactoryID("pkg:Counter", []interface{}{0, 1}, nil)
		id2, _ := runtimedir.FactoryID("pkg:Counter", []interface{}{5, 1}, nil)
		Expect(id1).NotTo(Equal(id2))
	})
})

var _ = Describe("FactoryPayload", func() {
	It("round-trips through WriteFactory/ReadFactoryFile", func() {
		p := tempPaths(GinkgoT().TempDir())
		Expect(p.EnsureDir()).To(Succeed())

		payload := runtimedir.FactoryPayload{
			ProtocolVersion: runtimedir.ProtocolVersion,
			FactoryImport:   "pkg:Counter",
			FactoryArgs:     []interface{}{0, 1},
			FactoryKwargs:   map[string]interface{}{"step": 1},
		}
		Expect(runtimedir.WriteFactory(p, payload)).To(Succeed())

		got, err := runtimedir.ReadFactoryFile(p.Factory)
		Expect(err).NotTo(HaveOccurred())

		if diff := cmp.Diff(payload.FactoryImport, got.FactoryImport); diff != "" {
			Fail("factory_import mismatch (-want +got):\n" + diff)
		}
		Expect(got.FactoryArgs).To(HaveLen(len(payload.FactoryArgs)))
	})

	It("rejects an empty FactoryImport", func() {
		payload := runtimedir.FactoryPayload{FactoryImport: ""}
		Expect(payload.Validate()).To(HaveOccurred())
	})
})
