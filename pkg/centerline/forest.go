package centerline

import (
	"slices"
	"sort"

	"ridgetrace/internal/models"
)

// Forest owns the voxel labels and the per-component paths and lengths built
// up by accepted traces. Component ids are positive and assigned from a
// counter local to the forest, so one forest can be shared by several
// extraction passes while ids stay unique.
//
// A Forest is not safe for concurrent mutation.
type Forest struct {
	size    models.Size
	labels  []int
	paths   map[int]Path
	lengths map[int]int
	nextID  int
	workers int
}

// NewForest creates an empty forest covering a volume of the given size.
func NewForest(size models.Size, workers int) *Forest {
	if workers < 1 {
		workers = 1
	}
	return &Forest{
		size:    size,
		labels:  make([]int, size.Len()),
		paths:   make(map[int]Path),
		lengths: make(map[int]int),
		nextID:  1,
		workers: workers,
	}
}

// Size returns the extent of the labeled volume.
func (f *Forest) Size() models.Size { return f.size }

// Label returns the component id at linear index idx, 0 when unlabeled.
func (f *Forest) Label(idx int) int { return f.labels[idx] }

// Len returns the number of live components.
func (f *Forest) Len() int { return len(f.lengths) }

// Length returns the accumulated length of component id.
func (f *Forest) Length(id int) int { return f.lengths[id] }

// Path returns a copy of the path history of component id.
func (f *Forest) Path(id int) Path { return slices.Clone(f.paths[id]) }

// IDs returns the live component ids in ascending order.
func (f *Forest) IDs() []int {
	ids := make([]int, 0, len(f.lengths))
	for id := range f.lengths {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// accepts reports whether a finished trace is long, tubular and loop free
// enough to enter the forest.
func accepts(t *trace, params Params) bool {
	return t.distance > params.Dmin && t.meanTube() > params.MinMeanTube && !t.loop
}

// Merge adds an accepted trace to the forest and returns the id of the
// component that now holds it. Rejected traces leave the forest untouched.
//
// A trace touching no component becomes a new component. A trace touching
// one component is appended to it. A trace bridging two components is
// appended to the first and the second component is folded into the first.
func (f *Forest) Merge(t *trace, params Params) (int, bool) {
	if !accepts(t, params) {
		return 0, false
	}

	if t.prevConnection == 0 {
		id := f.nextID
		f.nextID++
		f.claim(t, id)
		f.paths[id] = t.path
		f.lengths[id] = t.distance
		return id, true
	}

	target := t.prevConnection
	f.claim(t, target)
	f.paths[target] = append(f.paths[target], t.path...)
	f.lengths[target] += t.distance

	if second := t.secondConnection; second != 0 {
		f.relabel(second, target)
		f.paths[target] = append(f.paths[target], f.paths[second]...)
		f.lengths[target] += f.lengths[second]
		delete(f.paths, second)
		delete(f.lengths, second)
	}
	return target, true
}

// claim labels every voxel visited by t with id.
func (f *Forest) claim(t *trace, id int) {
	it := t.visited.Iterator()
	for it.HasNext() {
		f.labels[it.Next()] = id
	}
}

// relabel rewrites every voxel labeled from to the label to. The whole
// volume is scanned in parallel chunks.
func (f *Forest) relabel(from, to int) {
	parallelRange(len(f.labels), f.workers, func(start, end int) {
		for i := start; i < end; i++ {
			if f.labels[i] == from {
				f.labels[i] = to
			}
		}
	})
}
