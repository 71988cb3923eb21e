package centerline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridgetrace/internal/models"
	"ridgetrace/pkg/phantom"
)

func TestForestMergeNewComponent(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 40}
	forest := NewForest(size, 2)
	line := phantom.Line(vox(5, 5, 5), vox(5, 5, 14))

	id, ok := forest.Merge(manualTrace(size, line, 1), testParams())
	require.True(t, ok)
	assert.Equal(t, 1, id)
	assert.Equal(t, 10, forest.Length(id))
	assert.Len(t, forest.Path(id), 10)
	assert.Equal(t, map[int]int{1: 10}, labeledCount(forest))

	id2, ok := forest.Merge(manualTrace(size, phantom.Line(vox(12, 12, 5), vox(12, 12, 11)), 1), testParams())
	require.True(t, ok)
	assert.Equal(t, 2, id2, "ids are assigned from the forest counter")
	assert.Equal(t, 2, forest.Len())
	assert.Equal(t, []int{1, 2}, forest.IDs())
}

func TestForestMergeSingleConnection(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 40}
	forest := NewForest(size, 2)
	_, ok := forest.Merge(manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 14)), 1), testParams())
	require.True(t, ok)

	branch := manualTrace(size, phantom.Line(vox(6, 5, 15), vox(13, 5, 15)), 1)
	branch.connect(1)
	id, ok := forest.Merge(branch, testParams())
	require.True(t, ok)

	assert.Equal(t, 1, id)
	assert.Equal(t, 18, forest.Length(1))
	assert.Len(t, forest.Path(1), 18)
	assert.Equal(t, 1, forest.Len())
	assert.Equal(t, map[int]int{1: 18}, labeledCount(forest))
}

func TestForestMergeFoldsSecondConnection(t *testing.T) {
	size := models.Size{X: 30, Y: 20, Z: 40}
	forest := NewForest(size, 3)
	params := testParams()

	a, ok := forest.Merge(manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 14)), 1), params)
	require.True(t, ok)
	b, ok := forest.Merge(manualTrace(size, phantom.Line(vox(20, 5, 5), vox(20, 5, 10)), 1), params)
	require.True(t, ok)
	require.Equal(t, 10, forest.Length(a))
	require.Equal(t, 6, forest.Length(b))

	bridge := manualTrace(size, phantom.Line(vox(8, 5, 16), vox(12, 5, 16)), 0.8)
	bridge.connect(a)
	bridge.connect(b)
	id, ok := forest.Merge(bridge, params)
	require.True(t, ok)

	assert.Equal(t, a, id)
	assert.Equal(t, 10+6+5, forest.Length(a), "lengths are conserved across merges")
	assert.Len(t, forest.Path(a), 21)
	assert.Equal(t, 1, forest.Len())
	assert.Zero(t, forest.Length(b))
	assert.Nil(t, forest.Path(b))
	assert.Equal(t, map[int]int{a: 21}, labeledCount(forest), "no voxel keeps the folded id")

	// the counter keeps going after a fold
	c, ok := forest.Merge(manualTrace(size, phantom.Line(vox(25, 15, 5), vox(25, 15, 12)), 1), params)
	require.True(t, ok)
	assert.Equal(t, 3, c)
}

func TestForestPathIsACopy(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 40}
	forest := NewForest(size, 2)
	id, ok := forest.Merge(manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 14)), 1), testParams())
	require.True(t, ok)

	path := forest.Path(id)
	path[0].Pos = vox(0, 0, 0)
	_ = append(path[:1], PathPoint{Pos: vox(1, 1, 1)})

	stored := forest.Path(id)
	require.Len(t, stored, 10)
	assert.Equal(t, vox(5, 5, 5), stored[0].Pos)
	assert.Equal(t, vox(5, 5, 6), stored[1].Pos)
}

func TestForestMergeRejects(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 40}
	params := testParams()

	tests := []struct {
		name  string
		trace func() *trace
	}{
		{"too short", func() *trace {
			return manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 8)), 1)
		}},
		{"low mean tubeness", func() *trace {
			return manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 20)), 0.5)
		}},
		{"loop", func() *trace {
			tc := manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 20)), 1)
			tc.loop = true
			return tc
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest := NewForest(size, 2)
			id, ok := forest.Merge(tt.trace(), params)
			assert.False(t, ok)
			assert.Zero(t, id)
			assert.Zero(t, forest.Len())
			assert.Empty(t, labeledCount(forest))
			assert.Equal(t, 1, forest.nextID)
		})
	}
}

func TestForestMergeAcceptsBoundary(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 40}
	forest := NewForest(size, 2)
	params := testParams()

	// Dmin+1 voxels is the shortest accepted trace
	_, ok := forest.Merge(manualTrace(size, phantom.Line(vox(5, 5, 5), vox(5, 5, 5+params.Dmin)), 1), params)
	assert.True(t, ok)
}
