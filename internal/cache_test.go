package internal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/sift"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "duration > 2", NormalizeQuery("  Duration   >  2 "))
	assert.Equal(t, NormalizeQuery("Phase 3"), NormalizeQuery("phase   3"))
}

func TestCacheKey_SchemaSignature(t *testing.T) {
	schemaA := []sift.FieldSchema{{Name: "Duration"}, {Name: "TaskName"}}
	schemaB := []sift.FieldSchema{{Name: "Duration"}, {Name: "Owner"}, {Name: "TaskName"}}

	a := CacheKey(sift.EntityTasks, schemaA, "duration > 2")
	b := CacheKey(sift.EntityTasks, schemaB, "duration > 2")
	assert.NotEqual(t, a, b, "a column change must change the key")

	assert.NotEqual(t,
		CacheKey(sift.EntityTasks, schemaA, "duration > 2"),
		CacheKey(sift.EntityWorkers, schemaA, "duration > 2"),
		"the same text on another entity must not share a slot")

	assert.Equal(t,
		CacheKey(sift.EntityTasks, schemaA, "Duration   > 2"),
		CacheKey(sift.EntityTasks, schemaA, "duration > 2"),
		"cosmetic whitespace and case must share a slot")
}

func TestQueryCache_GetPut(t *testing.T) {
	cache := NewQueryCache(4)
	node := &sift.Leaf{Op: sift.OpCmp, Field: "Duration", Cmp: sift.CmpGt, Value: float64(2)}

	_, _, ok := cache.Get("k1")
	assert.False(t, ok)

	cache.Put("k1", node, sift.SourceAI)
	got, source, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, sift.SourceAI, source)
	assert.Same(t, node, got.(*sift.Leaf))
}

func TestQueryCache_Bound(t *testing.T) {
	cache := NewQueryCache(3)
	for i := 0; i < 10; i++ {
		cache.Put(fmt.Sprintf("k%d", i), &sift.Leaf{Op: sift.OpExists, Field: "F"}, sift.SourceDeterministic)
	}
	assert.Equal(t, 3, cache.Len())

	// Oldest entries are gone, newest survive.
	_, _, ok := cache.Get("k0")
	assert.False(t, ok)
	_, _, ok = cache.Get("k9")
	assert.True(t, ok)
}

func TestQueryCache_LRUOrder(t *testing.T) {
	cache := NewQueryCache(2)
	leaf := &sift.Leaf{Op: sift.OpExists, Field: "F"}

	cache.Put("a", leaf, sift.SourceDeterministic)
	cache.Put("b", leaf, sift.SourceDeterministic)

	// Touch a so b becomes the eviction candidate.
	_, _, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", leaf, sift.SourceDeterministic)

	_, _, ok = cache.Get("a")
	assert.True(t, ok)
	_, _, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestQueryCache_PutOverwrites(t *testing.T) {
	cache := NewQueryCache(2)
	cache.Put("k", &sift.Leaf{Op: sift.OpExists, Field: "Old"}, sift.SourceHeuristic)
	cache.Put("k", &sift.Leaf{Op: sift.OpExists, Field: "New"}, sift.SourceAI)

	node, source, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "New", node.(*sift.Leaf).Field)
	assert.Equal(t, sift.SourceAI, source)
	assert.Equal(t, 1, cache.Len())
}
