package volumeio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"ridgetrace/internal/models"
)

// WriteLineSetVTK writes ls as a legacy ASCII VTK polydata file.
func WriteLineSetVTK(path string, ls models.LineSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating line set file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# vtk DataFile Version 3.0")
	fmt.Fprintln(w, "ridgetrace centerlines")
	fmt.Fprintln(w, "ASCII")
	fmt.Fprintln(w, "DATASET POLYDATA")
	fmt.Fprintf(w, "POINTS %d float\n", len(ls.Vertices))
	for _, v := range ls.Vertices {
		fmt.Fprintf(w, "%g %g %g\n", v.X, v.Y, v.Z)
	}
	fmt.Fprintf(w, "LINES %d %d\n", len(ls.Lines), 3*len(ls.Lines))
	for _, l := range ls.Lines {
		fmt.Fprintf(w, "2 %d %d\n", l[0], l[1])
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing line set: %w", err)
	}
	return f.Close()
}
