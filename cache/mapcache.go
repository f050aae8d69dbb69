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

// MapCache is an unbounded cache backed by a map. It is not safe for
// concurrent use.
type MapCache[K comparable, V any] struct {
	entries map[K]V
}

// NewMapCache creates a new cache backed by a map
func NewMapCache[K comparable, V any]() *MapCache[K, V] {
	return &MapCache[K, V]{entries: make(map[K]V)}
}

// Get returns the cache value associated with key and a bool that is `false`
// if the key was not found
func (c *MapCache[K, V]) Get(key K) (value V, ok bool) {
	value, ok = c.entries[key]
	return
}

// Put puts a value in cache associated with key
func (c *MapCache[K, V]) Put(key K, value V) {
	c.entries[key] = value
}

// Delete deletes the cache entry associated with key
func (c *MapCache[K, V]) Delete(key K) {
	delete(c.entries, key)
}

// ToMap returns the current cache entries copied into a map
func (c *MapCache[K, V]) ToMap() map[K]V {
	ret := make(map[K]V, len(c.entries))
	for k, v := range c.entries {
		ret[k] = v
	}
	return ret
}
