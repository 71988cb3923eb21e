package centerline

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"ridgetrace/internal/models"
)

// ErrNoSeedPoints is returned when no voxel of a field qualifies as a seed.
var ErrNoSeedPoints = errors.New("no valid start points found")

// seedMargin is the minimum distance of a seed from every face, leaving room
// for the full neighborhood and the central differences around it.
const seedMargin = 3

// Candidate is a seed voxel waiting to be traced.
type Candidate struct {
	Pos   models.Voxel
	Index int
	Score float64
}

// candidateQueue is a max-heap on Score. Equal scores pop in ascending voxel
// index so the order does not depend on scan scheduling.
type candidateQueue []Candidate

func (q candidateQueue) Len() int { return len(q) }

func (q candidateQueue) Less(i, j int) bool {
	if q[i].Score != q[j].Score {
		return q[i].Score > q[j].Score
	}
	return q[i].Index < q[j].Index
}

func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) { *q = append(*q, x.(Candidate)) }

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// collectSeeds scans f for voxels that are far enough from the border, have a
// tubeness of at least Thigh and a vector magnitude no larger than any of
// their 26 neighbors. Each z plane is scanned by its own goroutine.
func collectSeeds(ctx context.Context, f Field, params Params) (*candidateQueue, error) {
	size := f.Size()
	queue := &candidateQueue{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(params.workers())

	for z := seedMargin; z < size.Z-seedMargin; z++ {
		z := z
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var found []Candidate
			for y := seedMargin; y < size.Y-seedMargin; y++ {
				for x := seedMargin; x < size.X-seedMargin; x++ {
					p := models.Voxel{X: x, Y: y, Z: z}
					if isSeed(f, p, params.Thigh) {
						found = append(found, Candidate{Pos: p, Index: size.Index(p), Score: f.Tubeness(p)})
					}
				}
			}
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			for _, c := range found {
				heap.Push(queue, c)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if queue.Len() == 0 {
		return nil, ErrNoSeedPoints
	}
	return queue, nil
}

// isSeed reports whether p is a local minimum of vector magnitude with high
// enough tubeness. Ties with a neighbor still count as a minimum.
func isSeed(f Field, p models.Voxel, thigh float64) bool {
	if f.Tubeness(p) < thigh {
		return false
	}
	m := magnitude(f, p)
	for _, off := range neighborhood {
		if magnitude(f, p.Add(off)) < m {
			return false
		}
	}
	return true
}
