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

package mkm

import "sync"

// ThanosCache is an insertion-ordered string-keyed cache with the §4.2
// "Thanos eviction" policy: on Reduce(), every entry at an odd position
// (1, 3, 5, ...) is removed, so two sweeps approximate halving the
// cache. Every identity factory (Address/ID/Meta/Document) embeds one of
// these instead of a bare map.
type ThanosCache struct {
	mutex sync.RWMutex
	keys  []string
	items map[string]interface{}
}

func NewThanosCache() *ThanosCache {
	return &ThanosCache{items: make(map[string]interface{})}
}

func (c *ThanosCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, ok := c.items[key]
	return value, ok
}

func (c *ThanosCache) Put(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, exists := c.items[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.items[key] = value
}

// Reduce removes every odd-positioned entry (insertion order) and
// returns the number removed.
func (c *ThanosCache) Reduce() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	survivors := make([]string, 0, len(c.keys)/2+1)
	removed := 0
	for i, key := range c.keys {
		if i%2 == 1 {
			delete(c.items, key)
			removed++
			continue
		}
		survivors = append(survivors, key)
	}
	c.keys = survivors
	return removed
}

func (c *ThanosCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.keys)
}

// ThanosReduce runs Reduce across every cache supplied and sums the
// removed counts, matching §4.2's "the number of entries removed across
// all caches it is invoked on".
func ThanosReduce(caches ...*ThanosCache) int {
	total := 0
	for _, c := range caches {
		total += c.Reduce()
	}
	return total
}
