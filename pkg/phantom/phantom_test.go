package phantom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"ridgetrace/internal/models"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Voxel
		want int
	}{
		{"single voxel", models.Voxel{X: 1, Y: 2, Z: 3}, models.Voxel{X: 1, Y: 2, Z: 3}, 1},
		{"axis aligned", models.Voxel{Z: 2}, models.Voxel{Z: 11}, 10},
		{"reversed", models.Voxel{X: 9}, models.Voxel{X: 0}, 10},
		{"diagonal", models.Voxel{}, models.Voxel{X: 5, Y: 3, Z: 1}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Line(tt.a, tt.b)
			require.Len(t, line, tt.want)
			assert.Equal(t, tt.a, line[0])
			assert.Equal(t, tt.b, line[len(line)-1])
			for i := 1; i < len(line); i++ {
				d := models.Voxel{X: line[i].X - line[i-1].X, Y: line[i].Y - line[i-1].Y, Z: line[i].Z - line[i-1].Z}
				assert.LessOrEqual(t, max(abs(d.X), abs(d.Y), abs(d.Z)), 1, "gap between %v and %v", line[i-1], line[i])
			}
		})
	}
}

func TestRing(t *testing.T) {
	center := models.Voxel{X: 15, Y: 15, Z: 4}
	ring := Ring(center, 8)

	seen := make(map[models.Voxel]bool)
	for _, v := range ring {
		assert.False(t, seen[v], "duplicate voxel %v", v)
		seen[v] = true
		assert.Equal(t, center.Z, v.Z)
		d := r3.Norm(r3.Sub(v.Vec(), center.Vec()))
		assert.InDelta(t, 8, d, 1)
	}
	assert.True(t, seen[models.Voxel{X: 23, Y: 15, Z: 4}])
	assert.True(t, seen[models.Voxel{X: 15, Y: 7, Z: 4}])
}

func TestBuild(t *testing.T) {
	size := models.Size{X: 12, Y: 12, Z: 12}
	line := Line(models.Voxel{X: 6, Y: 6, Z: 2}, models.Voxel{X: 6, Y: 6, Z: 9})
	p, err := Build(context.Background(), size, []Tube{{Voxels: line, Tubeness: 0.8}}, DefaultScale)
	require.NoError(t, err)

	for _, v := range line {
		assert.Equal(t, 0.8, p.Tubeness.At(v))
		assert.Equal(t, r3.Vec{}, p.Vectors.Head3(v), "vector field vanishes on the centerline")
	}
	assert.Zero(t, p.Tubeness.At(models.Voxel{X: 7, Y: 6, Z: 5}))

	off := p.Vectors.Head3(models.Voxel{X: 9, Y: 6, Z: 5})
	assert.InDelta(t, 0.3, off.X, 1e-12)
	assert.Zero(t, off.Y)
	assert.Zero(t, off.Z)

	beyond := p.Vectors.Head3(models.Voxel{X: 6, Y: 6, Z: 11})
	assert.InDelta(t, 0.2, beyond.Z, 1e-12, "points past the end use the end voxel")
}

func TestBuildFirstTubeWins(t *testing.T) {
	size := models.Size{X: 10, Y: 10, Z: 10}
	shared := models.Voxel{X: 5, Y: 5, Z: 5}
	p, err := Build(context.Background(), size, []Tube{
		{Voxels: []models.Voxel{shared}, Tubeness: 0.7},
		{Voxels: []models.Voxel{shared}, Tubeness: 0.2},
	}, DefaultScale)
	require.NoError(t, err)
	assert.Equal(t, 0.7, p.Tubeness.At(shared))
}

func TestBuildEmpty(t *testing.T) {
	p, err := Build(context.Background(), models.Size{X: 4, Y: 4, Z: 4}, nil, DefaultScale)
	require.NoError(t, err)
	for _, v := range p.Vectors.Data {
		assert.Zero(t, v)
	}
}

func TestBuildErrors(t *testing.T) {
	size := models.Size{X: 8, Y: 8, Z: 8}
	tests := []struct {
		name  string
		size  models.Size
		tubes []Tube
	}{
		{"empty size", models.Size{X: 8, Y: 0, Z: 8}, nil},
		{"outside volume", size, []Tube{{Voxels: []models.Voxel{{X: 8, Y: 1, Z: 1}}, Tubeness: 1}}},
		{"tubeness above one", size, []Tube{{Voxels: []models.Voxel{{X: 1, Y: 1, Z: 1}}, Tubeness: 1.5}}},
		{"negative tubeness", size, []Tube{{Voxels: []models.Voxel{{X: 1, Y: 1, Z: 1}}, Tubeness: -0.1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.size, tt.tubes, DefaultScale)
			assert.Error(t, err)
		})
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, models.Size{X: 8, Y: 8, Z: 8},
		[]Tube{{Voxels: []models.Voxel{{X: 4, Y: 4, Z: 4}}, Tubeness: 1}}, DefaultScale)
	assert.ErrorIs(t, err, context.Canceled)
}
