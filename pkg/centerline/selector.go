package centerline

import (
	"ridgetrace/internal/models"
)

// Selection names the components that survive pruning.
type Selection struct {
	// Main is the component with the largest accumulated length.
	Main int

	// Kept holds Main and every component longer than TreeMin, ascending.
	Kept []int
}

// Select picks the longest component and every component whose length
// exceeds treeMin. It reports false when the forest is empty. Ties for the
// longest component go to the smallest id.
func (f *Forest) Select(treeMin int) (Selection, bool) {
	ids := f.IDs()
	if len(ids) == 0 {
		return Selection{}, false
	}

	sel := Selection{Main: ids[0]}
	for _, id := range ids[1:] {
		if f.lengths[id] > f.lengths[sel.Main] {
			sel.Main = id
		}
	}
	for _, id := range ids {
		if id == sel.Main || f.lengths[id] > treeMin {
			sel.Kept = append(sel.Kept, id)
		}
	}
	return sel, true
}

// Mask marks every voxel that belongs to a kept component.
func (f *Forest) Mask(sel Selection) *models.Mask {
	mask := models.NewMask(f.size)
	if len(sel.Kept) == 0 {
		return mask
	}

	keep := make([]bool, f.nextID)
	for _, id := range sel.Kept {
		keep[id] = true
	}
	parallelRange(len(f.labels), f.workers, func(start, end int) {
		for i := start; i < end; i++ {
			if id := f.labels[i]; id > 0 && keep[id] {
				mask.Data[i] = 1
			}
		}
	})
	return mask
}

// LineSet emits one segment per path point of every kept component that has
// a predecessor. Paths are walked from the most recent point back to the
// root.
func (f *Forest) LineSet(sel Selection) models.LineSet {
	var ls models.LineSet
	for _, id := range sel.Kept {
		path := f.paths[id]
		for i := len(path) - 1; i >= 0; i-- {
			pt := path[i]
			if !pt.HasPrev {
				continue
			}
			n := len(ls.Vertices)
			ls.Vertices = append(ls.Vertices, pt.Pos.Vec(), pt.Prev.Vec())
			ls.Lines = append(ls.Lines, [2]int{n, n + 1})
		}
	}
	return ls
}
