package centerline

import (
	"container/heap"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridgetrace/internal/models"
	"ridgetrace/pkg/phantom"
)

func TestCandidateQueueOrder(t *testing.T) {
	q := &candidateQueue{}
	for _, c := range []Candidate{
		{Index: 7, Score: 0.6},
		{Index: 3, Score: 0.9},
		{Index: 9, Score: 0.9},
		{Index: 1, Score: 0.6},
		{Index: 5, Score: 1.0},
	} {
		heap.Push(q, c)
	}

	var order []int
	for q.Len() > 0 {
		order = append(order, heap.Pop(q).(Candidate).Index)
	}
	assert.Equal(t, []int{5, 3, 9, 1, 7}, order)
}

func TestCollectSeedsStraightTube(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 60}
	line := phantom.Line(vox(10, 10, 5), vox(10, 10, 54))
	f := buildField(t, size, phantom.Tube{Voxels: line, Tubeness: 1})

	q, err := collectSeeds(context.Background(), f, testParams())
	require.NoError(t, err)
	require.Equal(t, len(line), q.Len())

	onAxis := make(map[models.Voxel]bool)
	for _, v := range line {
		onAxis[v] = true
	}
	first := heap.Pop(q).(Candidate)
	assert.Equal(t, vox(10, 10, 5), first.Pos, "ties pop in ascending index order")
	assert.Equal(t, 1.0, first.Score)
	for q.Len() > 0 {
		c := heap.Pop(q).(Candidate)
		assert.True(t, onAxis[c.Pos], "seed %v is off the centerline", c.Pos)
		assert.Equal(t, size.Index(c.Pos), c.Index)
	}
}

func TestCollectSeedsRespectsMargin(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 20}
	line := phantom.Line(vox(10, 10, 0), vox(10, 10, 19))
	f := buildField(t, size, phantom.Tube{Voxels: line, Tubeness: 1})

	q, err := collectSeeds(context.Background(), f, testParams())
	require.NoError(t, err)

	// z in [3, 16]
	assert.Equal(t, 14, q.Len())
	for _, c := range *q {
		assert.GreaterOrEqual(t, c.Pos.Z, seedMargin)
		assert.LessOrEqual(t, c.Pos.Z, size.Z-1-seedMargin)
	}
}

func TestCollectSeedsBelowThreshold(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 30}
	f := buildField(t, size, phantom.Tube{Voxels: phantom.Line(vox(10, 10, 5), vox(10, 10, 24)), Tubeness: 0.4})

	_, err := collectSeeds(context.Background(), f, testParams())
	assert.ErrorIs(t, err, ErrNoSeedPoints)
}

func TestCollectSeedsRequiresLocalMinimum(t *testing.T) {
	size := models.Size{X: 12, Y: 12, Z: 12}
	p, err := phantom.Build(context.Background(), size, nil, phantom.DefaultScale)
	require.NoError(t, err)

	// A high tubeness voxel next to a voxel of lower magnitude is no seed.
	center := vox(6, 6, 6)
	for _, off := range neighborhood {
		p.Vectors.Set(center.Add(off), 0, 0.9)
	}
	p.Tubeness.Set(center, 1)
	p.Vectors.Set(center, 0, 0.5)
	p.Vectors.Set(vox(6, 6, 7), 0, 0.2)
	f, err := NewVolumeField(p.Tubeness, p.Vectors)
	require.NoError(t, err)

	assert.False(t, isSeed(f, center, 0.5))

	p.Vectors.Set(vox(6, 6, 7), 0, 0.5)
	assert.True(t, isSeed(f, center, 0.5), "equal magnitude still counts as a minimum")
}

func TestCollectSeedsCanceled(t *testing.T) {
	size := models.Size{X: 20, Y: 20, Z: 30}
	f := buildField(t, size, phantom.Tube{Voxels: phantom.Line(vox(10, 10, 5), vox(10, 10, 24)), Tubeness: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := collectSeeds(ctx, f, testParams())
	assert.ErrorIs(t, err, context.Canceled)
}
