// Package phantom builds synthetic tube volumes with known centerlines.
//
// A phantom carries tubeness only on its centerline voxels. Its vector field
// points from the nearest centerline voxel to each voxel and is scaled by a
// constant, so the magnitude is zero exactly on the centerlines and grows
// linearly with the distance from them.
package phantom

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"ridgetrace/internal/models"
)

// DefaultScale is the vector magnitude per voxel of distance.
const DefaultScale = 0.1

// Tube is one centerline of a phantom.
type Tube struct {
	// Voxels lists the centerline voxels.
	Voxels []models.Voxel

	// Tubeness is the value written to every centerline voxel.
	Tubeness float64
}

// Phantom holds the generated fields.
type Phantom struct {
	Tubeness *models.Volume
	Vectors  *models.VectorVolume
}

// Line returns the voxels of a straight segment from a to b, both included.
func Line(a, b models.Voxel) []models.Voxel {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	steps := max(abs(dx), abs(dy), abs(dz))
	if steps == 0 {
		return []models.Voxel{a}
	}
	voxels := make([]models.Voxel, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		voxels = append(voxels, models.Voxel{
			X: a.X + int(math.Round(t*float64(dx))),
			Y: a.Y + int(math.Round(t*float64(dy))),
			Z: a.Z + int(math.Round(t*float64(dz))),
		})
	}
	return voxels
}

// Ring returns the voxels of a circle of the given radius in the z plane of
// center.
func Ring(center models.Voxel, radius int) []models.Voxel {
	samples := int(math.Ceil(2*math.Pi*float64(radius))) * 4
	seen := make(map[models.Voxel]bool, samples)
	var voxels []models.Voxel
	for i := 0; i < samples; i++ {
		angle := 2 * math.Pi * float64(i) / float64(samples)
		v := models.Voxel{
			X: center.X + int(math.Round(float64(radius)*math.Cos(angle))),
			Y: center.Y + int(math.Round(float64(radius)*math.Sin(angle))),
			Z: center.Z,
		}
		if !seen[v] {
			seen[v] = true
			voxels = append(voxels, v)
		}
	}
	return voxels
}

// Build rasterizes tubes into a volume of the given size. Where tubes share a
// voxel, or a voxel is equally close to several tubes, the earlier tube wins.
func Build(ctx context.Context, size models.Size, tubes []Tube, scale float64) (*Phantom, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("invalid phantom size %v", size)
	}

	p := &Phantom{
		Tubeness: models.NewVolume(size),
		Vectors:  models.NewVectorVolume(size, 3),
	}

	var axis []models.Voxel
	for i, tube := range tubes {
		if tube.Tubeness < 0 || tube.Tubeness > 1 {
			return nil, fmt.Errorf("tube %d: tubeness %g outside [0,1]", i, tube.Tubeness)
		}
		for _, v := range tube.Voxels {
			if !size.Contains(v) {
				return nil, fmt.Errorf("tube %d: voxel %v outside volume %v", i, v, size)
			}
			if p.Tubeness.At(v) == 0 {
				p.Tubeness.Set(v, tube.Tubeness)
			}
			axis = append(axis, v)
		}
	}
	if len(axis) == 0 {
		return p, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for z := 0; z < size.Z; z++ {
		z := z
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for y := 0; y < size.Y; y++ {
				for x := 0; x < size.X; x++ {
					v := models.Voxel{X: x, Y: y, Z: z}
					q := nearest(v, axis)
					p.Vectors.Set(v, 0, scale*float64(v.X-q.X))
					p.Vectors.Set(v, 1, scale*float64(v.Y-q.Y))
					p.Vectors.Set(v, 2, scale*float64(v.Z-q.Z))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// nearest returns the first voxel of axis with minimal distance to v.
func nearest(v models.Voxel, axis []models.Voxel) models.Voxel {
	best := axis[0]
	bestDist := dist2(v, best)
	for _, q := range axis[1:] {
		if d := dist2(v, q); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}

func dist2(a, b models.Voxel) int {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
