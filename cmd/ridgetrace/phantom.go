package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ridgetrace/internal/models"
	"ridgetrace/pkg/phantom"
	"ridgetrace/pkg/volumeio"
)

// phantomKinds maps a phantom name to its volume size and tubes.
var phantomKinds = map[string]func() (models.Size, []phantom.Tube){
	"straight": func() (models.Size, []phantom.Tube) {
		return models.Size{X: 20, Y: 20, Z: 60}, []phantom.Tube{
			{Voxels: phantom.Line(models.Voxel{X: 10, Y: 10, Z: 5}, models.Voxel{X: 10, Y: 10, Z: 54}), Tubeness: 1},
		}
	},
	"junction": func() (models.Size, []phantom.Tube) {
		return models.Size{X: 40, Y: 20, Z: 50}, []phantom.Tube{
			{Voxels: phantom.Line(models.Voxel{X: 10, Y: 10, Z: 5}, models.Voxel{X: 10, Y: 10, Z: 44}), Tubeness: 1},
			{Voxels: phantom.Line(models.Voxel{X: 11, Y: 10, Z: 25}, models.Voxel{X: 30, Y: 10, Z: 25}), Tubeness: 0.9},
		}
	},
	"ring": func() (models.Size, []phantom.Tube) {
		return models.Size{X: 31, Y: 31, Z: 21}, []phantom.Tube{
			{Voxels: phantom.Ring(models.Voxel{X: 15, Y: 15, Z: 10}, 8), Tubeness: 1},
		}
	},
	"trees": func() (models.Size, []phantom.Tube) {
		return models.Size{X: 30, Y: 30, Z: 40}, []phantom.Tube{
			{Voxels: phantom.Line(models.Voxel{X: 8, Y: 8, Z: 5}, models.Voxel{X: 8, Y: 8, Z: 34}), Tubeness: 1},
			{Voxels: phantom.Line(models.Voxel{X: 20, Y: 20, Z: 5}, models.Voxel{X: 20, Y: 20, Z: 14}), Tubeness: 1},
		}
	},
}

func newPhantomCmd() *cobra.Command {
	var (
		kind   string
		outDir string
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "phantom",
		Short: "Generate a synthetic tubeness and vector field pair",
		Long:  `Phantom writes a synthetic tube volume (straight, junction, ring or trees) whose centerlines are known, for trying out extraction settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			build, ok := phantomKinds[kind]
			if !ok {
				return fmt.Errorf("unknown phantom kind %q", kind)
			}
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			size, tubes := build()
			p, err := phantom.Build(cmd.Context(), size, tubes, scale)
			if err != nil {
				return fmt.Errorf("build phantom: %w", err)
			}
			if err := volumeio.WriteScalar(filepath.Join(outDir, "tubeness.yaml"), "", p.Tubeness); err != nil {
				return err
			}
			if err := volumeio.WriteVector(filepath.Join(outDir, "vectors.yaml"), "", p.Vectors); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Wrote %s phantom of size %dx%dx%d to %s", kind, size.X, size.Y, size.Z, outDir))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "junction", "phantom kind: straight, junction, ring or trees")
	cmd.Flags().StringVarP(&outDir, "output", "o", "phantom", "output directory")
	cmd.Flags().Float64Var(&scale, "scale", phantom.DefaultScale, "vector magnitude per voxel of distance")

	return cmd
}
