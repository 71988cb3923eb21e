// Package centerline extracts the medial axes of tube-like structures from a
// tubeness field and a structure vector field by ridge traversal.
//
// Extraction runs in three phases. Seed voxels are collected by a parallel
// scan, each seed is traced along the local tube axis in both directions,
// and the accepted traces are merged into a labeled forest. The dominant
// trees of that forest are finally written out as a line set and a binary
// mask.
package centerline

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"ridgetrace/internal/models"
)

// ErrFieldMismatch is returned when a tubeness field and a vector field
// cannot be used together.
var ErrFieldMismatch = errors.New("field mismatch")

// Field is the read-only view of one detection consumed by the extractor.
type Field interface {
	// Size returns the extent shared by the scalar and vector data.
	Size() models.Size

	// Tubeness returns the normalized tubeness at p.
	Tubeness(p models.Voxel) float64

	// Vector returns the first three components of the structure vector at p.
	Vector(p models.Voxel) r3.Vec
}

// VolumeField adapts a tubeness volume and a vector volume to Field.
type VolumeField struct {
	tubeness *models.Volume
	vectors  *models.VectorVolume
}

// maxVoxels is the largest volume whose linear indices fit the uint32 visited
// set of a trace.
const maxVoxels int64 = math.MaxUint32 + 1

// NewVolumeField pairs a tubeness volume with its vector field. Both must have
// identical dimensions, at most maxVoxels voxels, and the vector field needs
// at least three components.
func NewVolumeField(tubeness *models.Volume, vectors *models.VectorVolume) (*VolumeField, error) {
	if tubeness == nil || vectors == nil {
		return nil, fmt.Errorf("%w: nil volume", ErrFieldMismatch)
	}
	if tubeness.Size != vectors.Size {
		return nil, fmt.Errorf("%w: tubeness is %v, vector field is %v", ErrFieldMismatch, tubeness.Size, vectors.Size)
	}
	if vectors.Components < 3 {
		return nil, fmt.Errorf("%w: vector field has %d components, need at least 3", ErrFieldMismatch, vectors.Components)
	}
	if n := int64(tubeness.Size.Len()); n > maxVoxels {
		return nil, fmt.Errorf("%w: %d voxels exceed the limit of %d", ErrFieldMismatch, n, maxVoxels)
	}
	if len(tubeness.Data) != tubeness.Size.Len() || len(vectors.Data) != vectors.Size.Len()*vectors.Components {
		return nil, fmt.Errorf("%w: data length does not match size %v", ErrFieldMismatch, tubeness.Size)
	}
	return &VolumeField{tubeness: tubeness, vectors: vectors}, nil
}

// Size implements Field.
func (f *VolumeField) Size() models.Size { return f.tubeness.Size }

// Tubeness implements Field.
func (f *VolumeField) Tubeness(p models.Voxel) float64 { return f.tubeness.At(p) }

// Vector implements Field.
func (f *VolumeField) Vector(p models.Voxel) r3.Vec { return f.vectors.Head3(p) }

// magnitude is the distance-from-ridge encoded by the vector field at p.
func magnitude(f Field, p models.Voxel) float64 {
	return r3.Norm(f.Vector(p))
}

// neighborhood lists the 26 offsets around a voxel in lexicographic
// (dx, dy, dz) order. Neighbor selection depends on this order for ties.
var neighborhood = func() []models.Voxel {
	offsets := make([]models.Voxel, 0, 26)
	for a := -1; a <= 1; a++ {
		for b := -1; b <= 1; b++ {
			for c := -1; c <= 1; c++ {
				if a == 0 && b == 0 && c == 0 {
					continue
				}
				offsets = append(offsets, models.Voxel{X: a, Y: b, Z: c})
			}
		}
	}
	return offsets
}()
