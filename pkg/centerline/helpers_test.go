package centerline

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"ridgetrace/internal/models"
	"ridgetrace/pkg/phantom"
)

func buildField(t *testing.T, size models.Size, tubes ...phantom.Tube) *VolumeField {
	t.Helper()
	p, err := phantom.Build(context.Background(), size, tubes, phantom.DefaultScale)
	require.NoError(t, err)
	f, err := NewVolumeField(p.Tubeness, p.Vectors)
	require.NoError(t, err)
	return f
}

func vox(x, y, z int) models.Voxel {
	return models.Voxel{X: x, Y: y, Z: z}
}

func quietExtractor(params Params) *Extractor {
	return NewExtractor(params, WithLogger(log.New(io.Discard)))
}

func testParams() Params {
	p := DefaultParams()
	p.Workers = 4
	return p
}

// manualTrace builds an unconnected trace that walked voxels in order.
func manualTrace(size models.Size, voxels []models.Voxel, tube float64) *trace {
	t := newTrace(voxels[0], size.Index(voxels[0]), tube)
	for i, v := range voxels[1:] {
		t.path = append(t.path, PathPoint{Pos: v, Prev: voxels[i], HasPrev: true})
		t.visited.Add(uint32(size.Index(v)))
		t.distance++
		t.meanTubeSum += tube
	}
	return t
}

// labeledCount returns how many voxels carry each label.
func labeledCount(f *Forest) map[int]int {
	counts := make(map[int]int)
	for _, id := range f.labels {
		if id > 0 {
			counts[id]++
		}
	}
	return counts
}
