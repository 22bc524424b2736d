/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
 * ==============================================================================
 */

package dkd

import (
	"math/rand"
	"sync/atomic"
)

// sn is the process-wide serial-number counter, seeded once at process
// start with a random value in [0, 2^31) (§4.3 "intentionally not
// time-derived, because two contents produced in the same millisecond
// must still differ").
var sn uint32 = rand.Uint32() % (1 << 31)

// GenerateSerialNumber increments the process-wide counter, wrapping to
// 1 at 2^31-1 (§4.3).
func GenerateSerialNumber() uint32 {
	for {
		old := atomic.LoadUint32(&sn)
		next := old + 1
		if next > 1<<31-1 {
			next = 1
		}
		if atomic.CompareAndSwapUint32(&sn, old, next) {
			return next
		}
	}
}
