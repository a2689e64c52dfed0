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

package startlock_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/loopback-singleton/startlock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WithLock", func() {
	It("creates parent directories lazily", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "deeper", "lockfile.lock")
		err := startlock.WithLock(context.Background(), path, func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs fn and propagates its error", func() {
		path := filepath.Join(GinkgoT().TempDir(), "lockfile.lock")
		boom := errors.New("boom")

		err := startlock.WithLock(context.Background(), path, func() error { return boom })
		Expect(err).To(Equal(boom))
	})

	It("serializes two concurrent critical sections on the same path", func() {
		path := filepath.Join(GinkgoT().TempDir(), "lockfile.lock")

		var active int32
		var maxActive int32
		var wg sync.WaitGroup

		critical := func() error {
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(40 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}

		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				_ = startlock.WithLock(context.Background(), path, critical)
			}()
		}
		wg.Wait()

		Expect(atomic.LoadInt32(&maxActive)).To(Equal(int32(1)))
	})

	It("releases the lock on every exit path so a later caller can acquire it", func() {
		path := filepath.Join(GinkgoT().TempDir(), "lockfile.lock")

		err := startlock.WithLock(context.Background(), path, func() error {
			return errors.New("first holder fails")
		})
		Expect(err).To(HaveOccurred())

		ran := false
		err = startlock.WithLock(context.Background(), path, func() error {
			ran = true
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).To(BeTrue())
	})

	It("gives up once its context is cancelled while another holder has the lock", func() {
		path := filepath.Join(GinkgoT().TempDir(), "lockfile.lock")

		release := make(chan struct{})
		holding := make(chan struct{})
		go func() {
			_ = startlock.WithLock(context.Background(), path, func() error {
				close(holding)
				<-release
				return nil
			})
		}()
		<-holding

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := startlock.WithLock(ctx, path, func() error { return nil })
		Expect(err).To(HaveOccurred())

		close(release)
	})
})
