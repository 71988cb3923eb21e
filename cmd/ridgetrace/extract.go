package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ridgetrace/pkg/centerline"
	"ridgetrace/pkg/visualization"
	"ridgetrace/pkg/volumeio"
)

type extractOptions struct {
	tubeness  string
	vectors   string
	tubeness2 string
	vectors2  string
	outDir    string
	compress  string
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract centerlines from a tubeness field and its vector field",
		Long: `Extract traces the ridges of a tubeness field and writes the kept centerlines
as a VTK line set and a binary mask volume. A second tubeness/vector pair may be
given to fuse two independent detections into one result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tubeness, "tubeness", "", "header of the tubeness volume (required)")
	cmd.Flags().StringVar(&opts.vectors, "vectors", "", "header of the vector field volume (required)")
	cmd.Flags().StringVar(&opts.tubeness2, "tubeness2", "", "header of a second tubeness volume to fuse")
	cmd.Flags().StringVar(&opts.vectors2, "vectors2", "", "header of the second vector field volume")
	cmd.Flags().StringVarP(&opts.outDir, "output", "o", "centerlines", "output directory")
	cmd.Flags().StringVar(&opts.compress, "compress", "", "compress the mask data (gz, zst or lz4)")
	_ = cmd.MarkFlagRequired("tubeness")
	_ = cmd.MarkFlagRequired("vectors")

	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	if (opts.tubeness2 == "") != (opts.vectors2 == "") {
		return fmt.Errorf("--tubeness2 and --vectors2 must be given together")
	}

	prog := newProgress(logger)
	fields := make([]centerline.Field, 0, 2)
	primary, err := loadField(opts.tubeness, opts.vectors)
	if err != nil {
		return err
	}
	fields = append(fields, primary)
	if opts.tubeness2 != "" {
		secondary, err := loadField(opts.tubeness2, opts.vectors2)
		if err != nil {
			return err
		}
		fields = append(fields, secondary)
	}
	prog.done(fmt.Sprintf("Loaded %d field pair(s)", len(fields)))

	prog = newProgress(logger)
	extractor := centerline.NewExtractor(cfg.Params(), centerline.WithLogger(logger))
	res, err := extractor.Extract(ctx, fields...)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	summary := res.Summary()
	prog.done(fmt.Sprintf("Extracted %d components, kept %d", summary.Components, summary.Kept))
	if res.Empty() {
		logger.Warn("No centerlines were extracted, writing empty outputs")
	} else {
		logger.Info("Component lengths", "main", res.Main, "mean", summary.MeanLength, "stddev", summary.StdLength, "segments", summary.Segments)
	}

	linesPath := filepath.Join(opts.outDir, "centerlines.vtk")
	if err := volumeio.WriteLineSetVTK(linesPath, res.Lines); err != nil {
		return err
	}
	maskData := "mask.raw"
	if opts.compress != "" {
		maskData += "." + opts.compress
	}
	maskPath := filepath.Join(opts.outDir, "mask.yaml")
	if err := volumeio.WriteMask(maskPath, maskData, res.Mask); err != nil {
		return err
	}
	logger.Info("Wrote outputs", "lines", linesPath, "mask", maskPath)

	if cfg.Output.SaveSlices {
		tubeness, err := volumeio.ReadScalar(opts.tubeness)
		if err != nil {
			return err
		}
		viewer := visualization.NewViewer(tubeness)
		if err := viewer.SetOverlay(res.Mask); err != nil {
			return err
		}
		previewDir := filepath.Join(opts.outDir, "previews")
		if err := viewer.SaveProjections(previewDir); err != nil {
			logger.Warn("Failed to save previews", "err", err)
		} else {
			logger.Info("Saved previews", "dir", previewDir)
		}

		sliceDir := filepath.Join(previewDir, "mask")
		if err := visualization.NewMaskViewer(res.Mask).SaveSliceSequence("z", sliceDir); err != nil {
			logger.Warn("Failed to save mask slices", "err", err)
		} else {
			logger.Info("Saved mask slices", "dir", sliceDir)
		}
	}
	return nil
}

func loadField(tubenessPath, vectorsPath string) (*centerline.VolumeField, error) {
	tubeness, err := volumeio.ReadScalar(tubenessPath)
	if err != nil {
		return nil, fmt.Errorf("load tubeness: %w", err)
	}
	vectors, err := volumeio.ReadVector(vectorsPath)
	if err != nil {
		return nil, fmt.Errorf("load vector field: %w", err)
	}
	return centerline.NewVolumeField(tubeness, vectors)
}
