package centerline

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"ridgetrace/internal/models"
)

const (
	// traverseMargin stops a walk before its neighborhood leaves the volume.
	traverseMargin = 3

	// minForward is the smallest alignment between a step and the current
	// direction for the step to count as forward progress.
	minForward = 0.1
)

// PathPoint is one accepted voxel of a trace together with the voxel it was
// reached from. Root points have no predecessor.
type PathPoint struct {
	Pos     models.Voxel
	Prev    models.Voxel
	HasPrev bool
}

// Path is the append-only history of a component. The most recent point is
// the last element.
type Path []PathPoint

// Segments returns the number of points that carry an edge to a predecessor.
func (p Path) Segments() int {
	n := 0
	for _, pt := range p {
		if pt.HasPrev {
			n++
		}
	}
	return n
}

// trace is the transient state of one two-directional walk from a seed.
type trace struct {
	seed        models.Voxel
	path        Path
	visited     *roaring.Bitmap
	distance    int
	meanTubeSum float64

	// prevConnection and secondConnection hold the ids of labeled components
	// the walk ran into, 0 when unused.
	prevConnection   int
	secondConnection int

	// loop is set when both directions ran into the same component.
	loop bool
}

func newTrace(seed models.Voxel, index int, tubeness float64) *trace {
	t := &trace{
		seed:        seed,
		path:        Path{{Pos: seed}},
		visited:     roaring.New(),
		distance:    1,
		meanTubeSum: tubeness,
	}
	t.visited.Add(uint32(index))
	return t
}

// meanTube is the average tubeness over the accepted voxels.
func (t *trace) meanTube() float64 {
	return t.meanTubeSum / float64(t.distance)
}

// connect records a collision with component id.
func (t *trace) connect(id int) {
	switch {
	case t.prevConnection == 0:
		t.prevConnection = id
	case t.prevConnection == id:
		t.loop = true
	default:
		t.secondConnection = id
	}
}

// tracer walks seeds through one field while reading the labels owned by a
// forest. It never mutates the forest.
type tracer struct {
	field  Field
	forest *Forest
	params Params
	size   models.Size
}

func newTracer(f Field, forest *Forest, params Params) *tracer {
	return &tracer{field: f, forest: forest, params: params, size: f.Size()}
}

// trace follows the ridge through seed in both directions. The two partial
// paths share the seed as their root.
func (tr *tracer) trace(seed models.Voxel) *trace {
	t := newTrace(seed, tr.size.Index(seed), tr.field.Tubeness(seed))
	axis := tubeDirection(tr.field, seed)
	for _, direction := range [2]float64{-1, 1} {
		tr.walk(t, r3.Scale(direction, axis))
	}
	return t
}

// walk extends t from its seed along initial until the ridge ends, quality
// drops, the walk loops onto itself or it hits a labeled component.
func (tr *tracer) walk(t *trace, initial r3.Vec) {
	position := t.seed
	previous := t.seed
	current, last := initial, initial
	belowTlow := 0

	for tr.interior(position) {
		next, ok := tr.nextNeighbor(position, current)
		if !ok {
			return
		}
		idx := tr.size.Index(next)

		if id := tr.forest.Label(idx); id > 0 {
			t.connect(id)
			return
		}
		tube := tr.field.Tubeness(next)
		if 1-magnitude(tr.field, next) < tr.params.Mlow ||
			(belowTlow > tr.params.MaxBelowTlow && tube < tr.params.Tlow) {
			return
		}
		if t.visited.Contains(uint32(idx)) {
			return
		}

		if tube < tr.params.Tlow {
			belowTlow++
		} else {
			belowTlow = 0
		}

		current, last = tr.steer(next, current, last), current

		position = next
		t.distance++
		t.meanTubeSum += tube
		t.visited.Add(uint32(idx))
		t.path = append(t.path, PathPoint{Pos: next, Prev: previous, HasPrev: true})
		previous = next
	}
}

// interior reports whether p is far enough from every face to keep walking.
func (tr *tracer) interior(p models.Voxel) bool {
	s := tr.size
	return p.X >= traverseMargin && p.X <= s.X-traverseMargin &&
		p.Y >= traverseMargin && p.Y <= s.Y-traverseMargin &&
		p.Z >= traverseMargin && p.Z <= s.Z-traverseMargin
}

// nextNeighbor picks the most central forward neighbor of p. Neighbors
// without tubeness are ignored. The first candidate in neighborhood order
// wins ties.
func (tr *tracer) nextNeighbor(p models.Voxel, direction r3.Vec) (models.Voxel, bool) {
	var best models.Voxel
	bestScore := math.Inf(-1)
	found := false
	for _, off := range neighborhood {
		n := p.Add(off)
		if tr.field.Tubeness(n) == 0 {
			continue
		}
		if r3.Dot(r3.Unit(off.Vec()), direction) <= minForward {
			continue
		}
		score := 1 - magnitude(tr.field, n)
		if !found || score > bestScore {
			best, bestScore, found = n, score, true
		}
	}
	return best, found
}

// steer updates the walking direction at p. The new direction averages the
// local axis with the two previous directions, which damps oscillation.
func (tr *tracer) steer(p models.Voxel, current, last r3.Vec) r3.Vec {
	sum := r3.Add(current, last)
	if triple, ok := eigenAt(tr.field, p); ok {
		axis := triple.alignedAxis(current)
		sum = r3.Add(sum, r3.Scale(sign(r3.Dot(axis, current)), axis))
	}
	if r3.Norm(sum) == 0 {
		return current
	}
	return r3.Unit(sum)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
