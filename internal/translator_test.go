package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/sift"
)

func taskSchema() []sift.FieldSchema {
	return []sift.FieldSchema{
		{Name: "Category", Type: sift.FieldString, Samples: []string{"build", "qa"}},
		{Name: "Duration", Type: sift.FieldNumber, Samples: []string{"1", "2", "3"}},
		{Name: "MaxConcurrent", Type: sift.FieldNumber, Samples: []string{"1", "2"}},
		{Name: "PreferredPhases", Type: sift.FieldArray, Samples: []string{"[1,2]", "[3]"}},
		{Name: "RequiredSkills", Type: sift.FieldString, Samples: []string{"welding,coding", "analysis"}},
		{Name: "TaskID", Type: sift.FieldString, Samples: []string{"T1", "T2"}},
		{Name: "TaskName", Type: sift.FieldString, Samples: []string{"Assemble", "Review"}},
	}
}

func TestNLToDSL_SymbolicAndPhase(t *testing.T) {
	tr := NewTranslator()
	node := tr.NLToDSL("duration > 2 and phase 3", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)

	root, ok := node.(*sift.Composite)
	require.True(t, ok, "expected composite, got %T", node)
	assert.Equal(t, sift.OpAnd, root.Op)
	require.Len(t, root.Children, 2)

	first, ok := root.Children[0].(*sift.Leaf)
	require.True(t, ok)
	assert.Equal(t, sift.OpCmp, first.Op)
	assert.Equal(t, "Duration", first.Field)
	assert.Equal(t, sift.CmpGt, first.Cmp)
	assert.Equal(t, float64(2), first.Value)

	second, ok := root.Children[1].(*sift.Leaf)
	require.True(t, ok)
	assert.Equal(t, sift.OpIncludes, second.Op)
	assert.Equal(t, "PreferredPhases", second.Field)
	assert.Equal(t, float64(3), second.Value)
}

func TestNLToDSL_SingleClauseUnwrapped(t *testing.T) {
	tr := NewTranslator()
	node := tr.NLToDSL("duration >= 3", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)

	leaf, ok := node.(*sift.Leaf)
	require.True(t, ok, "single clause must not be wrapped, got %T", node)
	assert.Equal(t, sift.CmpGte, leaf.Cmp)
	assert.Equal(t, float64(3), leaf.Value)
}

func TestNLToDSL_ClauseFamilies(t *testing.T) {
	tr := NewTranslator()
	schema := taskSchema()

	tests := []struct {
		name      string
		text      string
		wantOp    sift.Op
		wantField string
		wantCmp   sift.Cmp
		wantValue any
	}{
		{"includes verb", "required skills include welding", sift.OpIncludes, "RequiredSkills", "", "welding"},
		{"contains on plain string", "task name contains audit", sift.OpContains, "TaskName", "", "audit"},
		{"equality", "category is qa", sift.OpCmp, "Category", sift.CmpEq, "qa"},
		{"worded comparison", "duration is more than 3", sift.OpCmp, "Duration", sift.CmpGt, float64(3)},
		{"at least", "concurrency at least 2", sift.OpCmp, "MaxConcurrent", sift.CmpGte, float64(2)},
		{"symbolic eq", "duration = 2", sift.OpCmp, "Duration", sift.CmpEq, float64(2)},
		{"phase shorthand", "in phase 2", sift.OpIncludes, "PreferredPhases", "", float64(2)},
		{"skill shorthand", "skill analysis", sift.OpIncludes, "RequiredSkills", "", "analysis"},
		{"bare field value", "category qa", sift.OpCmp, "Category", sift.CmpEq, "qa"},
		{"bare list field", "preferred phases 3", sift.OpIncludes, "PreferredPhases", "", float64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := tr.NLToDSL(tt.text, sift.EntityTasks, schema)
			require.NotNil(t, node, "query %q did not translate", tt.text)
			leaf, ok := node.(*sift.Leaf)
			require.True(t, ok, "expected leaf for %q, got %T", tt.text, node)
			assert.Equal(t, tt.wantOp, leaf.Op)
			assert.Equal(t, tt.wantField, leaf.Field)
			assert.Equal(t, tt.wantCmp, leaf.Cmp)
			assert.Equal(t, tt.wantValue, leaf.Value)
		})
	}
}

func TestNLToDSL_DropsUnresolvedClauses(t *testing.T) {
	tr := NewTranslator()
	node := tr.NLToDSL("gibberish flurble, duration > 1", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)

	leaf, ok := node.(*sift.Leaf)
	require.True(t, ok, "unresolved clause must be dropped, got %T", node)
	assert.Equal(t, "Duration", leaf.Field)
}

func TestNLToDSL_NothingResolves(t *testing.T) {
	tr := NewTranslator()
	assert.Nil(t, tr.NLToDSL("purple monkey dishwasher nonsense", sift.EntityTasks, taskSchema()))
	assert.Nil(t, tr.NLToDSL("", sift.EntityTasks, taskSchema()))
}

func TestNLToDSL_EntitySynonymsDiffer(t *testing.T) {
	tr := NewTranslator()
	workerSchema := []sift.FieldSchema{
		{Name: "AvailableSlots", Type: sift.FieldArray, Samples: []string{"[1,2]"}},
		{Name: "Skills", Type: sift.FieldString, Samples: []string{"welding,coding"}},
	}

	node := tr.NLToDSL("in phase 2", sift.EntityWorkers, workerSchema)
	require.NotNil(t, node)
	leaf := node.(*sift.Leaf)
	assert.Equal(t, "AvailableSlots", leaf.Field)

	node = tr.NLToDSL("in phase 2", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)
	assert.Equal(t, "PreferredPhases", node.(*sift.Leaf).Field)
}

func TestNLToDSL_GuessedFieldSurvivesForRepair(t *testing.T) {
	// An equality clause with an unknown field phrase still produces a
	// leaf; the repair pass resolves or prunes the guessed name.
	tr := NewTranslator()
	node := tr.NLToDSL("budget ceiling is 100", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)
	leaf := node.(*sift.Leaf)
	assert.Equal(t, "BudgetCeiling", leaf.Field)
	assert.Equal(t, float64(100), leaf.Value)
}

func TestTranslator_LoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	content := `tasks:
  effort: Duration
  "the big list": PreferredPhases
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tr := NewTranslator()
	require.NoError(t, tr.LoadOverrides(path))

	node := tr.NLToDSL("effort > 2", sift.EntityTasks, taskSchema())
	require.NotNil(t, node)
	assert.Equal(t, "Duration", node.(*sift.Leaf).Field)
}

func TestLoadSynonymOverrides_UnknownEntity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gadgets:\n  x: Y\n"), 0o644))

	_, err := LoadSynonymOverrides(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity")
}
