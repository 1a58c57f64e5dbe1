// Package scene holds the raster inputs of one RGB-D snapshot: a color
// image, a 16-bit depth map, and an instance segmentation mask, all at the
// same resolution.
package scene

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrDimensionMismatch is returned when the color, depth, and mask rasters
// of a scene do not share the same dimensions. It is fatal: a scene with
// disagreeing rasters cannot be projected.
var ErrDimensionMismatch = errors.New("color, depth, and mask dimensions do not agree")

// A Scene is a single RGB-D snapshot of a cluttered workspace plus the
// instance segmentation of its color image.
type Scene struct {
	Color *image.NRGBA
	Depth *DepthMap
	Mask  *SegmentationMask
}

// New returns a Scene after validating that all three rasters share the
// same dimensions.
func New(colorImg *image.NRGBA, depth *DepthMap, mask *SegmentationMask) (*Scene, error) {
	sc := &Scene{Color: colorImg, Depth: depth, Mask: mask}
	if err := sc.CheckValid(); err != nil {
		return nil, err
	}
	return sc, nil
}

// CheckValid ensures all rasters exist and agree on dimensions.
func (sc *Scene) CheckValid() error {
	if sc.Color == nil || sc.Depth == nil || sc.Mask == nil {
		return errors.New("scene must have color, depth, and mask rasters")
	}
	if sc.Color.Bounds() != sc.Depth.Bounds() || sc.Color.Bounds() != sc.Mask.Bounds() {
		return errors.Wrapf(ErrDimensionMismatch,
			"Color(%d,%d) Depth(%d,%d) Mask(%d,%d)",
			sc.Width(), sc.Height(),
			sc.Depth.Width(), sc.Depth.Height(),
			sc.Mask.Width(), sc.Mask.Height())
	}
	return nil
}

// Width returns the width of the scene rasters.
func (sc *Scene) Width() int {
	return sc.Color.Bounds().Dx()
}

// Height returns the height of the scene rasters.
func (sc *Scene) Height() int {
	return sc.Color.Bounds().Dy()
}

// ColorAt returns the color at the given (x, y) coordinate.
func (sc *Scene) ColorAt(x, y int) color.NRGBA {
	return sc.Color.NRGBAAt(x, y)
}

func decodePNG(fn string) (img image.Image, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open raster %q", fn)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	img, err = png.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode raster %q", fn)
	}
	return img, nil
}

// NewFromFiles reads a scene from a color PNG, a 16-bit grayscale depth
// PNG, and a grayscale label PNG.
func NewFromFiles(colorFn, depthFn, maskFn string) (*Scene, error) {
	colorRaw, err := decodePNG(colorFn)
	if err != nil {
		return nil, err
	}
	colorImg, ok := colorRaw.(*image.NRGBA)
	if !ok {
		colorImg = image.NewNRGBA(colorRaw.Bounds())
		draw.Draw(colorImg, colorRaw.Bounds(), colorRaw, colorRaw.Bounds().Min, draw.Src)
	}

	depthRaw, err := decodePNG(depthFn)
	if err != nil {
		return nil, err
	}
	depth, err := NewDepthMapFromImage(depthRaw)
	if err != nil {
		return nil, errors.Wrapf(err, "raster %q", depthFn)
	}

	maskRaw, err := decodePNG(maskFn)
	if err != nil {
		return nil, err
	}
	mask, err := NewSegmentationMaskFromImage(maskRaw)
	if err != nil {
		return nil, errors.Wrapf(err, "raster %q", maskFn)
	}

	return New(colorImg, depth, mask)
}
