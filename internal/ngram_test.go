package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldName(t *testing.T) {
	assert.Equal(t, "prioritylevel", normalizeFieldName("Priority Level"))
	assert.Equal(t, "prioritylevel", normalizeFieldName("priority_level"))
	assert.Equal(t, "maxload2", normalizeFieldName("Max-Load 2"))
	assert.Equal(t, "", normalizeFieldName("  __ "))
}

func TestSimilarity(t *testing.T) {
	// Separator differences normalize away entirely.
	assert.Equal(t, 1.0, Similarity("priority level", "PriorityLevel"))
	assert.Equal(t, 1.0, Similarity("Duration", "duration"))

	// Near misses score high, unrelated names score low.
	assert.GreaterOrEqual(t, Similarity("PriorityLevl", "PriorityLevel"), 0.65)
	assert.Less(t, Similarity("Duration", "GroupTag"), 0.2)

	// Degenerate inputs.
	assert.Equal(t, 0.0, Similarity("", "Duration"))
	assert.Equal(t, 0.0, Similarity("Duration", "  "))
	assert.Equal(t, 1.0, Similarity("ab", "AB"))
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"PreferredPhases", "preferred phase"},
		{"Skills", "RequiredSkills"},
		{"WorkerGroup", "GroupTag"},
	}
	for _, p := range pairs {
		assert.InDelta(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), 1e-12, "Similarity(%q, %q)", p[0], p[1])
	}
}
