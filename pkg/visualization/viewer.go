package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"ridgetrace/internal/models"
)

// Viewer renders slices and projections of a scalar volume, optionally with
// a centerline mask drawn on top.
type Viewer struct {
	// volumeData holds the 3D volume data in [0,1]
	volumeData []float64

	// size of the volume
	size models.Size

	// mask is drawn in red over the grayscale volume when set
	mask *models.Mask
}

// NewViewer creates a viewer over a scalar volume such as a tubeness map
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{volumeData: vol.Data, size: vol.Size}
}

// NewMaskViewer creates a viewer that shows a binary mask in grayscale
func NewMaskViewer(mask *models.Mask) *Viewer {
	data := make([]float64, len(mask.Data))
	for i, v := range mask.Data {
		data[i] = float64(v)
	}
	return &Viewer{volumeData: data, size: mask.Size}
}

// SetOverlay draws mask voxels in red on every rendered image
func (v *Viewer) SetOverlay(mask *models.Mask) error {
	if mask != nil && mask.Size != v.size {
		return fmt.Errorf("overlay size %v does not match volume size %v", mask.Size, v.size)
	}
	v.mask = mask
	return nil
}

// planeAxes returns the image width, image height and the function mapping
// an image pixel at depth position to a voxel for the given axis.
func (v *Viewer) planeAxes(axis string) (int, int, int, func(px, py, pos int) models.Voxel, error) {
	switch axis {
	case "x", "X":
		// YZ plane
		return v.size.Z, v.size.Y, v.size.X, func(px, py, pos int) models.Voxel {
			return models.Voxel{X: pos, Y: py, Z: px}
		}, nil
	case "y", "Y":
		// XZ plane
		return v.size.X, v.size.Z, v.size.Y, func(px, py, pos int) models.Voxel {
			return models.Voxel{X: px, Y: pos, Z: py}
		}, nil
	case "z", "Z":
		// XY plane
		return v.size.X, v.size.Y, v.size.Z, func(px, py, pos int) models.Voxel {
			return models.Voxel{X: px, Y: py, Z: pos}
		}, nil
	default:
		return 0, 0, 0, nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

func toGray(value float64) uint8 {
	return uint8(math.Max(0, math.Min(255, value*255)))
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	w, h, depth, voxelAt, err := v.planeAxes(axis)
	if err != nil {
		return nil, err
	}
	if position >= depth {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, depth)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			vox := voxelAt(px, py, position)
			idx := v.size.Index(vox)
			g := toGray(v.volumeData[idx])
			c := color.RGBA{R: g, G: g, B: g, A: 255}
			if v.mask != nil && v.mask.Data[idx] != 0 {
				c = color.RGBA{R: 255, A: 255}
			}
			img.SetRGBA(px, py, c)
		}
	}
	return img, nil
}

// MaximumIntensityProjection projects the volume along axis, keeping the
// largest value on each ray. Overlay voxels anywhere on the ray are shown.
func (v *Viewer) MaximumIntensityProjection(axis string) (image.Image, error) {
	w, h, depth, voxelAt, err := v.planeAxes(axis)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			maxValue := 0.0
			marked := false
			for pos := 0; pos < depth; pos++ {
				idx := v.size.Index(voxelAt(px, py, pos))
				maxValue = math.Max(maxValue, v.volumeData[idx])
				if v.mask != nil && v.mask.Data[idx] != 0 {
					marked = true
				}
			}
			g := toGray(maxValue)
			c := color.RGBA{R: g, G: g, B: g, A: 255}
			if marked {
				c = color.RGBA{R: 255, A: 255}
			}
			img.SetRGBA(px, py, c)
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	_, _, depth, _, err := v.planeAxes(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < depth; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveProjections writes one maximum intensity projection per axis
func (v *Viewer) SaveProjections(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.MaximumIntensityProjection(axis)
		if err != nil {
			return err
		}
		if err := v.SaveSlice(img, filepath.Join(outputDir, fmt.Sprintf("mip_%s.jpg", axis))); err != nil {
			return err
		}
	}
	return nil
}
