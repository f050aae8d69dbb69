/**
 * Copyright 2025 AvroArrow Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"container/list"
	"fmt"
	"sync"
)

const maxPreallocateCapacity = 10000

// LRUCache is a Least Recently Used (LRU) Cache with given capacity.
// It is safe for concurrent use.
type LRUCache[K comparable, V any] struct {
	cacheLock   sync.Mutex
	capacity    int
	entries     map[K]V
	lruElements map[K]*list.Element
	lruKeys     *list.List
}

// NewLRUCache creates a new Least Recently Used (LRU) Cache
//
// Parameters:
//   - `capacity` - a positive integer indicating the max capacity of this cache
//
// Returns the new allocated LRU Cache and an error
func NewLRUCache[K comparable, V any](capacity int) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be a positive integer")
	}
	c := &LRUCache[K, V]{capacity: capacity}
	if capacity <= maxPreallocateCapacity {
		c.entries = make(map[K]V, capacity)
		c.lruElements = make(map[K]*list.Element, capacity)
	} else {
		c.entries = make(map[K]V)
		c.lruElements = make(map[K]*list.Element)
	}
	c.lruKeys = list.New()
	return c, nil
}

// Get returns the cache value associated with key and a bool that is `false`
// if the key was not found
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	value, ok = c.entries[key]
	if ok {
		if element, okElement := c.lruElements[key]; okElement {
			c.lruKeys.MoveToFront(element)
		}
	}
	return value, ok
}

// Put puts a value in cache associated with key, evicting the least recently
// used entry when the cache is at capacity
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if _, ok := c.entries[key]; !ok {
		// delete in advance to avoid increasing map capacity
		if c.lruKeys.Len() == c.capacity {
			if back := c.lruKeys.Back(); back != nil {
				evicted := c.lruKeys.Remove(back).(K)
				delete(c.lruElements, evicted)
				delete(c.entries, evicted)
			}
		}
		c.lruElements[key] = c.lruKeys.PushFront(key)
	} else if element, okElement := c.lruElements[key]; okElement {
		c.lruKeys.MoveToFront(element)
	}
	c.entries[key] = value
}

// Delete deletes the cache entry associated with key
func (c *LRUCache[K, V]) Delete(key K) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if _, ok := c.entries[key]; !ok {
		return
	}
	if element, okElement := c.lruElements[key]; okElement {
		delete(c.lruElements, key)
		c.lruKeys.Remove(element)
	}
	delete(c.entries, key)
}

// ToMap returns the current cache entries copied into a map
func (c *LRUCache[K, V]) ToMap() map[K]V {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	ret := make(map[K]V, len(c.entries))
	for k, v := range c.entries {
		ret[k] = v
	}
	return ret
}
