// Package cache memoizes pipeline results per input. Entries are keyed by a
// content hash of the raw tables, so a changed table simply misses; stale
// entries are dropped by Invalidate or Purge, or evicted when the store is
// full.
package cache

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sakif/social-analytics/internal/dataset"
)

// Key identifies one set of raw input tables.
type Key string

// KeyOf hashes every table name, header and cell. Cells are length-prefixed
// so that shifting text between neighbouring cells changes the key.
func KeyOf(raw dataset.Raw) Key {
	d := xxhash.New()
	var buf []byte
	write := func(s string) {
		buf = binary.AppendUvarint(buf[:0], uint64(len(s)))
		_, _ = d.Write(buf)
		_, _ = d.WriteString(s)
	}
	for _, t := range raw.Tables() {
		if t == nil {
			write("<nil>")
			continue
		}
		write(t.Name)
		buf = binary.AppendUvarint(buf[:0], uint64(len(t.Header)))
		_, _ = d.Write(buf)
		for _, h := range t.Header {
			write(h)
		}
		buf = binary.AppendUvarint(buf[:0], uint64(len(t.Rows)))
		_, _ = d.Write(buf)
		for _, row := range t.Rows {
			for _, cell := range row {
				write(cell)
			}
		}
	}
	return Key(strconv.FormatUint(d.Sum64(), 16))
}

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 4

// Store is a bounded in-memory map over an LRU cache. When full, the least
// recently used entry is evicted. It is safe for concurrent use.
type Store[V any] struct {
	lru *lru.Cache[Key, V]
}

// New creates a Store holding at most capacity entries.
func New[V any](capacity int) *Store[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails on a non-positive size.
	c, _ := lru.New[Key, V](capacity)
	return &Store[V]{lru: c}
}

// Get returns the value stored under key and marks it recently used.
func (s *Store[V]) Get(key Key) (V, bool) {
	return s.lru.Get(key)
}

// Put stores v under key, replacing any previous value.
func (s *Store[V]) Put(key Key, v V) {
	s.lru.Add(key, v)
}

// Invalidate drops one entry. It reports whether the key was present.
func (s *Store[V]) Invalidate(key Key) bool {
	return s.lru.Remove(key)
}

// Purge drops every entry.
func (s *Store[V]) Purge() {
	s.lru.Purge()
}

// Len returns the number of entries.
func (s *Store[V]) Len() int {
	return s.lru.Len()
}
