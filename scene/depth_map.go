package scene

import (
	"image"

	"github.com/pkg/errors"
)

// Depth is the depth reading at a pixel, in raw sensor units
// (millimeters for a depth scale of 1000). Zero means no reading.
type Depth uint16

// MaxDepth is the maximum representable depth reading.
const MaxDepth = Depth(65535)

// DepthMap fulfills the requirement of an image with 16-bit depth values
// at every pixel.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns an unset depth map with the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// NewDepthMapFromImage returns a depth map from an image, which must be
// 16-bit grayscale.
func NewDepthMapFromImage(img image.Image) (*DepthMap, error) {
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, errors.Errorf("expected 16-bit grayscale depth image, got %T", img)
	}
	bounds := gray.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.Set(x, y, Depth(gray.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
		}
	}
	return dm, nil
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle of the depth map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// GetDepth returns the depth at the given (x, y) coordinate.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[y*dm.width+x]
}

// Set sets the depth at the given (x, y) coordinate.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[y*dm.width+x] = val
}
