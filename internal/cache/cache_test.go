package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/social-analytics/internal/dataset"
)

func rawWith(postRows ...[]string) dataset.Raw {
	return dataset.Raw{
		Users:       dataset.New(dataset.Users, dataset.Schemas[dataset.Users], nil),
		Friendships: dataset.New(dataset.Friendships, dataset.Schemas[dataset.Friendships], nil),
		Posts:       dataset.New(dataset.Posts, dataset.Schemas[dataset.Posts], postRows),
		Reactions:   dataset.New(dataset.Reactions, dataset.Schemas[dataset.Reactions], nil),
	}
}

func TestKeyOf(t *testing.T) {
	a := KeyOf(rawWith([]string{"1", "100"}))
	b := KeyOf(rawWith([]string{"1", "100"}))
	c := KeyOf(rawWith([]string{"1", "101"}))
	// Same characters, different cell boundaries.
	d := KeyOf(rawWith([]string{"11", "00"}))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.NotEmpty(t, a)
}

func TestStore_PutGetInvalidate(t *testing.T) {
	s := New[int](2)

	s.Put("a", 1)
	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, s.Invalidate("a"))
	assert.False(t, s.Invalidate("a"))
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := New[string](2)
	s.Put("a", "1")
	s.Put("b", "2")
	_, _ = s.Get("a")
	s.Put("c", "3")

	_, ok := s.Get("b")
	assert.False(t, ok, "b was the least recently used entry")
	assert.Equal(t, 2, s.Len())

	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestStore_PutReplaces(t *testing.T) {
	s := New[string](2)
	s.Put("a", "1")
	s.Put("a", "1bis")

	v, _ := s.Get("a")
	assert.Equal(t, "1bis", v)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Purge(t *testing.T) {
	s := New[int](0)
	s.Put("a", 1)
	s.Put("b", 2)

	s.Purge()

	assert.Zero(t, s.Len())
}

func TestStore_Concurrent(t *testing.T) {
	s := New[int](8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key(string(rune('a' + i%8)))
			s.Put(k, i)
			s.Get(k)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 8)
}
