// Package volumeio reads and writes volumes as a YAML header next to a raw
// little-endian data file, similar to MetaImage. Data files ending in .gz,
// .zst or .lz4 are compressed transparently.
package volumeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"ridgetrace/internal/models"
)

// Element types stored in data files.
const (
	Float32 = "float32"
	Uint8   = "uint8"
)

// Header describes a volume data file.
type Header struct {
	// Size is the extent in voxels along x, y and z.
	Size [3]int `yaml:"size"`

	// Components is the number of values per voxel.
	Components int `yaml:"components"`

	// ElementType is either float32 or uint8.
	ElementType string `yaml:"elementType"`

	// Spacing is the physical voxel size in mm.
	Spacing [3]float64 `yaml:"spacing,omitempty"`

	// DataFile is the data file name, relative to the header.
	DataFile string `yaml:"dataFile"`
}

func (h Header) size() models.Size {
	return models.Size{X: h.Size[0], Y: h.Size[1], Z: h.Size[2]}
}

func headerFor(size models.Size, components int, elementType, dataFile string) Header {
	return Header{
		Size:        [3]int{size.X, size.Y, size.Z},
		Components:  components,
		ElementType: elementType,
		DataFile:    dataFile,
	}
}

// ReadHeader parses a volume header.
func ReadHeader(path string) (Header, error) {
	var h Header
	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("error reading header: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("error parsing header %s: %w", path, err)
	}
	if h.Size[0] <= 0 || h.Size[1] <= 0 || h.Size[2] <= 0 {
		return h, fmt.Errorf("header %s: invalid size %v", path, h.Size)
	}
	if h.Components <= 0 {
		h.Components = 1
	}
	if h.ElementType == "" {
		h.ElementType = Float32
	}
	if h.DataFile == "" {
		return h, fmt.Errorf("header %s: missing dataFile", path)
	}
	return h, nil
}

// ReadScalar loads a single component float32 volume.
func ReadScalar(path string) (*models.Volume, error) {
	h, values, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	if h.Components != 1 {
		return nil, fmt.Errorf("%s: expected 1 component, got %d", path, h.Components)
	}
	vol := models.NewVolume(h.size())
	vol.Data = values
	if h.Spacing != [3]float64{} {
		vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = h.Spacing[0], h.Spacing[1], h.Spacing[2]
	}
	return vol, nil
}

// ReadVector loads a multi-component float32 volume.
func ReadVector(path string) (*models.VectorVolume, error) {
	h, values, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	vol := models.NewVectorVolume(h.size(), h.Components)
	vol.Data = values
	return vol, nil
}

func readFloats(path string) (Header, []float64, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return h, nil, err
	}
	if h.ElementType != Float32 {
		return h, nil, fmt.Errorf("%s: unsupported element type %q", path, h.ElementType)
	}

	r, err := openData(dataPath(path, h.DataFile))
	if err != nil {
		return h, nil, err
	}
	defer r.Close()

	raw := make([]float32, h.size().Len()*h.Components)
	if err := binary.Read(bufio.NewReader(r), binary.LittleEndian, raw); err != nil {
		return h, nil, fmt.Errorf("error reading %s: %w", h.DataFile, err)
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = float64(v)
	}
	return h, values, nil
}

// WriteScalar stores vol as float32 data. The data file name is derived from
// the header path unless dataFile is given.
func WriteScalar(path, dataFile string, vol *models.Volume) error {
	h := headerFor(vol.Size, 1, Float32, dataFileName(path, dataFile))
	h.Spacing = [3]float64{vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z}
	return writeVolume(path, h, func(w io.Writer) error {
		return writeFloats(w, vol.Data)
	})
}

// WriteVector stores vol as float32 data.
func WriteVector(path, dataFile string, vol *models.VectorVolume) error {
	h := headerFor(vol.Size, vol.Components, Float32, dataFileName(path, dataFile))
	return writeVolume(path, h, func(w io.Writer) error {
		return writeFloats(w, vol.Data)
	})
}

// WriteMask stores a binary mask as uint8 data.
func WriteMask(path, dataFile string, mask *models.Mask) error {
	h := headerFor(mask.Size, 1, Uint8, dataFileName(path, dataFile))
	return writeVolume(path, h, func(w io.Writer) error {
		_, err := w.Write(mask.Data)
		return err
	})
}

// ReadMask loads a uint8 mask volume.
func ReadMask(path string) (*models.Mask, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}
	if h.ElementType != Uint8 || h.Components != 1 {
		return nil, fmt.Errorf("%s: not a mask volume", path)
	}
	r, err := openData(dataPath(path, h.DataFile))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	mask := models.NewMask(h.size())
	if _, err := io.ReadFull(r, mask.Data); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", h.DataFile, err)
	}
	return mask, nil
}

func writeFloats(w io.Writer, values []float64) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}

func writeVolume(path string, h Header, body func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("error marshaling header: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	f, err := os.Create(dataPath(path, h.DataFile))
	if err != nil {
		return fmt.Errorf("error creating data file: %w", err)
	}
	w, err := compressor(f, h.DataFile)
	if err != nil {
		f.Close()
		return err
	}
	if err := body(w); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("error writing %s: %w", h.DataFile, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("error flushing %s: %w", h.DataFile, err)
	}
	return f.Close()
}

// dataFileName picks the data file for a header, defaulting to the header
// name with a .raw extension.
func dataFileName(headerPath, dataFile string) string {
	if dataFile != "" {
		return dataFile
	}
	base := filepath.Base(headerPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".raw"
}

func dataPath(headerPath, dataFile string) string {
	if filepath.IsAbs(dataFile) {
		return dataFile
	}
	return filepath.Join(filepath.Dir(headerPath), dataFile)
}

// nopWriteCloser flushes nothing on Close.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// readCloser closes a decompressor together with the underlying file.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openData(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening data file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening zstd stream: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, f.Close}}, nil
	case ".lz4":
		return &readCloser{Reader: lz4.NewReader(f), closers: []func() error{f.Close}}, nil
	default:
		return f, nil
	}
}

func compressor(w io.Writer, dataFile string) (io.WriteCloser, error) {
	switch strings.ToLower(filepath.Ext(dataFile)) {
	case ".gz":
		return gzip.NewWriter(w), nil
	case ".zst":
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("error creating zstd stream: %w", err)
		}
		return zw, nil
	case ".lz4":
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}
