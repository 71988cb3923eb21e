package centerline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"ridgetrace/internal/models"
)

// Eigenpair is one eigenvalue of the structure tensor with its unit eigenvector.
type Eigenpair struct {
	Value  float64
	Vector r3.Vec
}

// eigenTriple holds the three eigenpairs of a structure tensor ordered by
// ascending absolute eigenvalue. The first vector approximates the tube axis.
type eigenTriple [3]Eigenpair

// gradient returns the central difference gradient of component k of the
// vector field at p.
func gradient(f Field, p models.Voxel, k int) r3.Vec {
	diff := func(off models.Voxel) float64 {
		return 0.5 * (component(f.Vector(p.Add(off)), k) - component(f.Vector(p.Add(models.Voxel{X: -off.X, Y: -off.Y, Z: -off.Z})), k))
	}
	return r3.Vec{
		X: diff(models.Voxel{X: 1}),
		Y: diff(models.Voxel{Y: 1}),
		Z: diff(models.Voxel{Z: 1}),
	}
}

func component(v r3.Vec, k int) float64 {
	switch k {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// structureTensor builds the symmetric 3x3 tensor of vector field derivatives
// at p from the lower triangle of the Jacobian.
func structureTensor(f Field, p models.Voxel) *mat.SymDense {
	fx := gradient(f, p, 0)
	fy := gradient(f, p, 1)
	fz := gradient(f, p, 2)
	return mat.NewSymDense(3, []float64{
		fx.X, fy.X, fz.X,
		fy.X, fy.Y, fz.Y,
		fz.X, fz.Y, fz.Z,
	})
}

// decompose eigen-decomposes a symmetric tensor and orders the result by
// absolute eigenvalue. It reports false when the factorization fails.
func decompose(t mat.Symmetric) (eigenTriple, bool) {
	var es mat.EigenSym
	if !es.Factorize(t, true) {
		return eigenTriple{}, false
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	var triple eigenTriple
	for i := range triple {
		triple[i] = Eigenpair{
			Value:  values[i],
			Vector: r3.Vec{X: vectors.At(0, i), Y: vectors.At(1, i), Z: vectors.At(2, i)},
		}
	}
	return sortByMagnitude(triple), true
}

// sortByMagnitude returns the triple ordered by ascending |eigenvalue|.
func sortByMagnitude(triple eigenTriple) eigenTriple {
	sorted := triple
	sort.SliceStable(sorted[:], func(i, j int) bool {
		return math.Abs(sorted[i].Value) < math.Abs(sorted[j].Value)
	})
	return sorted
}

// eigenAt returns the ordered eigenpairs of the structure tensor at p.
func eigenAt(f Field, p models.Voxel) (eigenTriple, bool) {
	return decompose(structureTensor(f, p))
}

// tubeDirection estimates the sign-ambiguous tube axis at p. A zero vector is
// returned when no direction can be computed.
func tubeDirection(f Field, p models.Voxel) r3.Vec {
	triple, ok := eigenAt(f, p)
	if !ok {
		return r3.Vec{}
	}
	return triple[0].Vector
}

// isBlob reports whether all eigenvalues are negative, which marks a locally
// blob-like rather than tube-like neighborhood.
func (t eigenTriple) isBlob() bool {
	return t[0].Value < 0 && t[1].Value < 0 && t[2].Value < 0
}

// alignedAxis returns the eigenvector to follow given the current direction.
// In blob-like neighborhoods the axis estimate is unreliable, so the vector
// best aligned with the current direction is used instead.
func (t eigenTriple) alignedAxis(current r3.Vec) r3.Vec {
	e1, e2, e3 := t[0].Vector, t[1].Vector, t[2].Vector
	if !t.isBlob() {
		return e1
	}
	d1 := math.Abs(r3.Dot(current, e1))
	d2 := math.Abs(r3.Dot(current, e2))
	d3 := math.Abs(r3.Dot(current, e3))
	if d3 > d2 {
		if d3 > d1 {
			return e3
		}
	} else if d2 > d1 {
		return e2
	}
	return e1
}
