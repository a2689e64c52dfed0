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
	"context"
	"net"
	"runtime"
	"time"

	"github.com/sabouaram/loopback-singleton/codec"
	"github.com/sabouaram/loopback-singleton/factory"
	"github.com/sabouaram/loopback-singleton/runtimedir"
	"github.com/sabouaram/loopback-singleton/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type echoService struct{}

func (echoService) Echo(s string) string { return s }

func (echoService) Boom() error { return errBoom }

var errBoom = &testErr{"deliberate failure"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func bootDaemon(name string) (Config, runtimedir.Paths) {
	if runtime.GOOS == "windows" {
		Skip("loopback daemon integration tests assume a POSIX runtime dir")
	}

	dir := GinkgoT().TempDir()
	GinkgoT().Setenv("XDG_RUNTIME_DIR", dir)

	paths, err := runtimedir.New("user", name)
	Expect(err).NotTo(HaveOccurred())
	Expect(paths.EnsureDir()).To(Succeed())

	_, err = runtimedir.EnsureAuthToken(paths)
	Expect(err).NotTo(HaveOccurred())

	factory.Register("test:echo-service", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return echoService{}, nil
	})

	payload := runtimedir.FactoryPayload{
		ProtocolVersion: runtimedir.ProtocolVersion,
		FactoryImport:   "test:echo-service",
	}
	Expect(runtimedir.WriteFactory(paths, payload)).To(Succeed())

	cfg := Config{
		Name:            name,
		FactoryFilePath: paths.Factory,
		IdleTTL:         50 * time.Millisecond,
		CodecName:       "cbor",
		Scope:           "user",
	}
	return cfg, paths
}

func dialAndShake(addr *net.TCPAddr, token string) (*transport.Framer, codec.Codec) {
	conn, err := net.Dial("tcp", addr.String())
	Expect(err).NotTo(HaveOccurred())

	fr := transport.NewFramer(conn, transport.MaxFrameSize)
	c := codec.CBOR()

	b, err := c.EncodeFrame(codec.Frame{Tag: codec.TagHello, Payload: []interface{}{runtimedir.ProtocolVersion, token}})
	Expect(err).NotTo(HaveOccurred())
	Expect(fr.Send(b)).To(Succeed())

	raw, err := fr.Recv()
	Expect(err).NotTo(HaveOccurred())
	reply, err := c.DecodeFrame(raw)
	Expect(err).NotTo(HaveOccurred())
	Expect(reply.Tag).To(Equal(codec.TagOK))

	return fr, c
}

var _ = Describe("Daemon end-to-end", func() {
	It("completes a HELLO/PING/CALL/SHUTDOWN round trip", func() {
		cfg, paths := bootDaemon("e2e-basic")

		d, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- d.Run(ctx) }()

		tok, err := runtimedir.EnsureAuthToken(paths)
		Expect(err).NotTo(HaveOccurred())

		fr, c := dialAndShake(d.Addr(), tok)
		defer func() { _ = fr.Close() }()

		// PING
		b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagPing})
		Expect(fr.Send(b)).To(Succeed())
		raw, err := fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err := c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagOK))

		// CALL echo
		b, _ = c.EncodeFrame(codec.Frame{Tag: codec.TagCall, Payload: []interface{}{
			"echo", []interface{}{"hi"}, map[string]interface{}{},
		}})
		Expect(fr.Send(b)).To(Succeed())
		raw, err = fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err = c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagOK))
		payload := codec.AsSlice(reply.Payload)
		Expect(payload[0]).To(Equal("hi"))

		// CALL a private method is rejected
		b, _ = c.EncodeFrame(codec.Frame{Tag: codec.TagCall, Payload: []interface{}{
			"_secret", []interface{}{}, map[string]interface{}{},
		}})
		Expect(fr.Send(b)).To(Succeed())
		raw, err = fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err = c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagErr))

		// CALL a method that returns an error
		b, _ = c.EncodeFrame(codec.Frame{Tag: codec.TagCall, Payload: []interface{}{
			"boom", []interface{}{}, map[string]interface{}{},
		}})
		Expect(fr.Send(b)).To(Succeed())
		raw, err = fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err = c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagErr))

		// SHUTDOWN
		b, _ = c.EncodeFrame(codec.Frame{Tag: codec.TagShutdown})
		Expect(fr.Send(b)).To(Succeed())
		raw, err = fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err = c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagOK))

		Eventually(runErr, 2*time.Second).Should(Receive(BeNil()))

		_, ok := runtimedir.ReadRuntime(paths)
		Expect(ok).To(BeFalse())
	})

	It("rejects a HELLO with the wrong auth token", func() {
		cfg, _ := bootDaemon("e2e-badtoken")

		d, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = d.Run(ctx) }()

		conn, err := net.Dial("tcp", d.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = conn.Close() }()

		fr := transport.NewFramer(conn, transport.MaxFrameSize)
		c := codec.CBOR()

		b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagHello, Payload: []interface{}{runtimedir.ProtocolVersion, "wrong-token"}})
		Expect(fr.Send(b)).To(Succeed())

		raw, err := fr.Recv()
		Expect(err).NotTo(HaveOccurred())
		reply, err := c.DecodeFrame(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Tag).To(Equal(codec.TagErr))

		_, err = fr.Recv()
		Expect(err).To(HaveOccurred())
	})

	It("self-terminates once idle past its configured TTL", func() {
		cfg, paths := bootDaemon("e2e-idle")

		d, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- d.Run(ctx) }()

		tok, err := runtimedir.EnsureAuthToken(paths)
		Expect(err).NotTo(HaveOccurred())

		fr, _ := dialAndShake(d.Addr(), tok)
		Expect(fr.Close()).To(Succeed())

		Eventually(runErr, 2*time.Second).Should(Receive(BeNil()))
	})

	It("answers a sequence of CALLs on one connection through the executor", func() {
		cfg, paths := bootDaemon("e2e-serialize")

		d, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = d.Run(ctx) }()

		tok, err := runtimedir.EnsureAuthToken(paths)
		Expect(err).NotTo(HaveOccurred())

		fr, c := dialAndShake(d.Addr(), tok)
		defer func() { _ = fr.Close() }()

		for i := 0; i < 5; i++ {
			b, _ := c.EncodeFrame(codec.Frame{Tag: codec.TagCall, Payload: []interface{}{
				"echo", []interface{}{"seq"}, map[string]interface{}{},
			}})
			Expect(fr.Send(b)).To(Succeed())
			raw, err := fr.Recv()
			Expect(err).NotTo(HaveOccurred())
			reply, err := c.DecodeFrame(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Tag).To(Equal(codec.TagOK))
		}
	})
})
