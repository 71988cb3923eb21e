package centerline

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"ridgetrace/internal/models"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for progress reporting.
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Extractor runs ridge traversal centerline extraction.
type Extractor struct {
	params Params
	logger *log.Logger
}

// NewExtractor creates an extractor with the given thresholds.
func NewExtractor(params Params, opts ...Option) *Extractor {
	e := &Extractor{params: params, logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Component describes one component of the final forest.
type Component struct {
	ID     int
	Length int
	Points int
	Kept   bool
}

// Result is the output of an extraction.
type Result struct {
	// Lines holds the centerline segments of the kept components.
	Lines models.LineSet

	// Mask is 1 for every voxel of a kept component.
	Mask *models.Mask

	// Main is the id of the longest component, 0 when nothing was extracted.
	Main int

	// Kept lists the ids written to Lines and Mask.
	Kept []int

	// Components describes every component of the forest, ascending by id.
	Components []Component
}

// Empty reports whether no centerline survived.
func (r *Result) Empty() bool {
	return len(r.Kept) == 0
}

// Summary aggregates component lengths of a result.
type Summary struct {
	Components int
	Kept       int
	Segments   int
	MeanLength float64
	StdLength  float64
}

// Summary computes length statistics over all components.
func (r *Result) Summary() Summary {
	s := Summary{Components: len(r.Components), Kept: len(r.Kept), Segments: len(r.Lines.Lines)}
	if len(r.Components) == 0 {
		return s
	}
	lengths := make([]float64, len(r.Components))
	for i, c := range r.Components {
		lengths[i] = float64(c.Length)
	}
	s.MeanLength = stat.Mean(lengths, nil)
	if len(lengths) > 1 {
		s.StdLength = stat.StdDev(lengths, nil)
	}
	return s
}

// Extract traces every field in order into one shared forest and returns the
// dominant trees. Passing two fields fuses two independent detections.
//
// A field without seed points is skipped with a warning while a later field
// is still pending. When the last field has no seed points the error wraps
// ErrNoSeedPoints.
func (e *Extractor) Extract(ctx context.Context, fields ...Field) (*Result, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields given", ErrFieldMismatch)
	}
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	size := fields[0].Size()
	for i, f := range fields[1:] {
		if f.Size() != size {
			return nil, fmt.Errorf("%w: field %d is %v, field 1 is %v", ErrFieldMismatch, i+2, f.Size(), size)
		}
	}

	forest := NewForest(size, e.params.workers())
	for i, f := range fields {
		pass := i + 1
		err := e.extractPass(ctx, forest, f, pass)
		if errors.Is(err, ErrNoSeedPoints) && pass < len(fields) {
			e.logger.Warn("No valid start points, continuing with next pass", "pass", pass)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
	}

	return e.assemble(forest), nil
}

// extractPass traces all seeds of f in descending tubeness order. Tracing and
// merging are strictly sequential because every merge may relabel voxels the
// next trace reads.
func (e *Extractor) extractPass(ctx context.Context, forest *Forest, f Field, pass int) error {
	start := time.Now()
	e.logger.Info("Getting valid start points for centerline extraction", "pass", pass)
	queue, err := collectSeeds(ctx, f, e.params)
	if err != nil {
		return err
	}
	e.logger.Info("Processing valid start points", "pass", pass, "count", queue.Len())

	tr := newTracer(f, forest, e.params)
	accepted := 0
	for queue.Len() > 0 {
		c := heap.Pop(queue).(Candidate)
		if forest.Label(c.Index) > 0 {
			continue
		}
		t := tr.trace(c.Pos)
		id, ok := forest.Merge(t, e.params)
		e.logger.Debug("Finished trace",
			"seed", c.Pos, "distance", t.distance, "meanTube", t.meanTube(),
			"accepted", ok, "component", id)
		if ok {
			accepted++
		}
	}

	e.logger.Info("Finished traversal", "pass", pass, "accepted", accepted,
		"components", forest.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// assemble selects the kept components and builds the outputs.
func (e *Extractor) assemble(forest *Forest) *Result {
	sel, ok := forest.Select(e.params.TreeMin)
	if !ok {
		e.logger.Warn("No centerlines were extracted")
		return &Result{Mask: models.NewMask(forest.Size())}
	}

	res := &Result{
		Lines: forest.LineSet(sel),
		Mask:  forest.Mask(sel),
		Main:  sel.Main,
		Kept:  sel.Kept,
	}
	kept := make(map[int]bool, len(sel.Kept))
	for _, id := range sel.Kept {
		kept[id] = true
	}
	for _, id := range forest.IDs() {
		res.Components = append(res.Components, Component{
			ID:     id,
			Length: forest.Length(id),
			Points: len(forest.paths[id]),
			Kept:   kept[id],
		})
	}
	e.logger.Info("Centerlines extracted", "components", forest.Len(), "kept", len(sel.Kept), "main", sel.Main)
	return res
}
