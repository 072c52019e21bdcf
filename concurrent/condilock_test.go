/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package concurrent

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("lockCondilock", func() {
	It("returns true without blocking when the predicate already holds", func() {
		c := newMonitorCondilock()
		start := time.Now()
		ok, err := c.AwaitWhileFalse(nil, func() bool { return true }, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", 100*time.Millisecond))
	})

	It("times out when the predicate never becomes true", func() {
		c := newMonitorCondilock()
		ok, err := c.AwaitWhileFalse(nil, func() bool { return false }, 50*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("wakes a waiter via SignalAllInLock once another goroutine sets the predicate", func() {
		c := newMonitorCondilock()
		var ready int32

		done := make(chan bool, 1)
		go func() {
			ok, err := c.AwaitWhileFalse(nil, func() bool {
				return atomic.LoadInt32(&ready) != 0
			}, 2*time.Second)
			Expect(err).NotTo(HaveOccurred())
			done <- ok
		}()

		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&ready, 1)
		c.SignalAllInLock()

		Eventually(done, time.Second).Should(Receive(BeTrue()))
	})

	It("shares its lock with an external mutex when constructed via newLockCondilock", func() {
		var mu sync.Mutex
		c := newLockCondilock(&mu)
		Expect(c.lockPtr()).To(BeIdenticalTo(&mu))

		mu.Lock()
		c.signalAllLocked() // must not deadlock or panic while mu is held externally
		mu.Unlock()
	})

	It("respects AwaitUntilDeadline with a deadline already in the past", func() {
		c := newMonitorCondilock()
		ok, err := c.AwaitUntilDeadline(nil, func() bool { return false }, time.Now().Add(-time.Second))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("passiveCondilock", func() {
	It("succeeds immediately when the predicate already holds", func() {
		c := NewPassiveCondilock()
		ok, err := c.AwaitWhileFalse(nil, func() bool { return true }, time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("fails with ErrInvalidState when the predicate does not already hold", func() {
		c := NewPassiveCondilock()
		ok, err := c.AwaitWhileFalse(nil, func() bool { return false }, time.Second)
		Expect(err).To(MatchError(ErrInvalidState))
		Expect(ok).To(BeFalse())
	})

	It("treats Lock/Unlock/SignalAllInLock as no-ops", func() {
		c := NewPassiveCondilock()
		c.Lock()
		c.Unlock()
		c.SignalAllInLock()
	})

	It("reports no underlying mutex", func() {
		Expect(passiveCondilock{}.lockPtr()).To(BeNil())
	})
})
