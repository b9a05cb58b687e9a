// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package voice

import (
	"container/list"
	"sync"

	"github.com/zeebo/blake3"
)

// clipKey identifies synthesized audio by voice and text.
type clipKey [32]byte

// clipDomainKey separates clip hashes from any other BLAKE3 use. The
// bytes are the ASCII domain name, zero-padded to 32.
var clipDomainKey = [32]byte{
	'e', 'n', 's', 'e', 'm', 'b', 'l', 'e', '.', 'v', 'o', 'i', 'c', 'e', '.',
	'c', 'l', 'i', 'p', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// newClipKey hashes voiceID and text. A zero byte separates them so
// ("ab", "c") and ("a", "bc") differ.
func newClipKey(voiceID, text string) clipKey {
	hasher, err := blake3.NewKeyed(clipDomainKey[:])
	if err != nil {
		panic("voice: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(voiceID))
	hasher.Write([]byte{0})
	hasher.Write([]byte(text))
	var key clipKey
	copy(key[:], hasher.Sum(nil))
	return key
}

// clipCache is a fixed-size LRU of synthesized audio. A capacity of
// zero disables it.
type clipCache struct {
	capacity int

	mu      sync.Mutex
	order   *list.List // front is most recent; values are *clipEntry
	entries map[clipKey]*list.Element
}

type clipEntry struct {
	key   clipKey
	audio []byte
}

func newClipCache(capacity int) *clipCache {
	return &clipCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[clipKey]*list.Element),
	}
}

func (cache *clipCache) get(key clipKey) ([]byte, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	element, ok := cache.entries[key]
	if !ok {
		return nil, false
	}
	cache.order.MoveToFront(element)
	return element.Value.(*clipEntry).audio, true
}

func (cache *clipCache) put(key clipKey, audio []byte) {
	if cache.capacity <= 0 {
		return
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if element, ok := cache.entries[key]; ok {
		element.Value.(*clipEntry).audio = audio
		cache.order.MoveToFront(element)
		return
	}
	cache.entries[key] = cache.order.PushFront(&clipEntry{key: key, audio: audio})
	for cache.order.Len() > cache.capacity {
		oldest := cache.order.Back()
		cache.order.Remove(oldest)
		delete(cache.entries, oldest.Value.(*clipEntry).key)
	}
}

func (cache *clipCache) len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.order.Len()
}
