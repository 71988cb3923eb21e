package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Voxel is an integer grid position inside a volume
type Voxel struct {
	X, Y, Z int
}

// Add returns the voxel displaced by o
func (v Voxel) Add(o Voxel) Voxel {
	return Voxel{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Vec returns the voxel position as a floating point vector
func (v Voxel) Vec() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Size is the extent of a volume in voxels
type Size struct {
	X, Y, Z int
}

// Len returns the total number of voxels
func (s Size) Len() int {
	return s.X * s.Y * s.Z
}

// Index converts a voxel position to its linear offset.
// Volumes are stored x-fastest, then y, then z.
func (s Size) Index(v Voxel) int {
	return v.X + v.Y*s.X + v.Z*s.X*s.Y
}

// Voxel converts a linear offset back to a voxel position
func (s Size) Voxel(idx int) Voxel {
	plane := s.X * s.Y
	z := idx / plane
	rem := idx - z*plane
	return Voxel{X: rem % s.X, Y: rem / s.X, Z: z}
}

// Contains reports whether v lies inside the volume
func (s Size) Contains(v Voxel) bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0 && v.X < s.X && v.Y < s.Y && v.Z < s.Z
}

// Volume represents a scalar 3D field such as a tubeness map
type Volume struct {
	// Data is the 3D volume data as a 1D array in x-fastest order
	Data []float64

	// Size is the extent of the volume in voxels
	Size Size

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewVolume allocates a zeroed scalar volume with unit voxel size
func NewVolume(size Size) *Volume {
	v := &Volume{
		Data: make([]float64, size.Len()),
		Size: size,
	}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// At returns the value stored at voxel p
func (v *Volume) At(p Voxel) float64 {
	return v.Data[v.Size.Index(p)]
}

// Set stores value at voxel p
func (v *Volume) Set(p Voxel, value float64) {
	v.Data[v.Size.Index(p)] = value
}

// VectorVolume represents a multi-component 3D field. Components of one voxel
// are stored contiguously.
type VectorVolume struct {
	// Data holds Components values per voxel
	Data []float64

	// Size is the extent of the volume in voxels
	Size Size

	// Components is the number of values stored per voxel
	Components int
}

// NewVectorVolume allocates a zeroed vector volume
func NewVectorVolume(size Size, components int) *VectorVolume {
	return &VectorVolume{
		Data:       make([]float64, size.Len()*components),
		Size:       size,
		Components: components,
	}
}

// At returns component c of voxel p
func (v *VectorVolume) At(p Voxel, c int) float64 {
	return v.Data[v.Size.Index(p)*v.Components+c]
}

// Set stores component c of voxel p
func (v *VectorVolume) Set(p Voxel, c int, value float64) {
	v.Data[v.Size.Index(p)*v.Components+c] = value
}

// Head3 returns the first three components of voxel p as a vector
func (v *VectorVolume) Head3(p Voxel) r3.Vec {
	base := v.Size.Index(p) * v.Components
	return r3.Vec{X: v.Data[base], Y: v.Data[base+1], Z: v.Data[base+2]}
}

// Mask is a binary segmentation volume holding 0 or 1 per voxel
type Mask struct {
	Data []uint8
	Size Size
}

// NewMask allocates an all-zero mask
func NewMask(size Size) *Mask {
	return &Mask{Data: make([]uint8, size.Len()), Size: size}
}

// At returns the mask value at voxel p
func (m *Mask) At(p Voxel) uint8 {
	return m.Data[m.Size.Index(p)]
}

// Count returns the number of voxels set to 1
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// LineSet is a set of line segments given as pairs of indices into Vertices
type LineSet struct {
	Vertices []r3.Vec
	Lines    [][2]int
}
