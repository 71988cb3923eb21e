package centerline

import (
	"fmt"
	"runtime"
)

// Params holds the thresholds that steer seed selection, tracing and pruning.
type Params struct {
	// Thigh is the minimum tubeness of a seed voxel.
	Thigh float64

	// Dmin is the minimum number of voxels a trace must span to be accepted.
	Dmin int

	// Mlow is the minimum centrality score (1 - vector magnitude) a trace
	// needs to keep growing.
	Mlow float64

	// Tlow is the tubeness below which a step counts as low quality.
	Tlow float64

	// MaxBelowTlow is how many consecutive low quality steps are tolerated.
	MaxBelowTlow int

	// MinMeanTube is the minimum mean tubeness of an accepted trace.
	MinMeanTube float64

	// TreeMin is the accumulated length a secondary tree must exceed to be kept.
	TreeMin int

	// Workers bounds the goroutines used by the parallel scans.
	Workers int
}

// DefaultParams returns the thresholds used by the reference method.
func DefaultParams() Params {
	return Params{
		Thigh:        0.5,
		Dmin:         4,
		Mlow:         0.02,
		Tlow:         0.1,
		MaxBelowTlow: 4,
		MinMeanTube:  0.5,
		TreeMin:      20,
		Workers:      runtime.NumCPU(),
	}
}

// Validate checks that every threshold lies in its admissible range.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"thigh":       p.Thigh,
		"mlow":        p.Mlow,
		"tlow":        p.Tlow,
		"minMeanTube": p.MinMeanTube,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	if p.Dmin < 0 {
		return fmt.Errorf("dmin must be non-negative, got %d", p.Dmin)
	}
	if p.MaxBelowTlow < 0 {
		return fmt.Errorf("maxBelowTlow must be non-negative, got %d", p.MaxBelowTlow)
	}
	if p.TreeMin < 0 {
		return fmt.Errorf("treeMin must be non-negative, got %d", p.TreeMin)
	}
	return nil
}

func (p Params) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}
