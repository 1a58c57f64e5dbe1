package scene

import (
	"image"
	"sort"

	"github.com/pkg/errors"
)

// BackgroundLabel is the mask value reserved for pixels that belong to no
// object.
const BackgroundLabel = 0

// SegmentationMask is a per-pixel integer labeling of object instances.
type SegmentationMask struct {
	width  int
	height int

	labels []int
}

// NewEmptySegmentationMask returns an all-background mask with the given
// dimensions.
func NewEmptySegmentationMask(width, height int) *SegmentationMask {
	return &SegmentationMask{
		width:  width,
		height: height,
		labels: make([]int, width*height),
	}
}

// NewSegmentationMaskFromImage returns a mask from an 8 or 16-bit grayscale
// label image.
func NewSegmentationMaskFromImage(img image.Image) (*SegmentationMask, error) {
	bounds := img.Bounds()
	mask := NewEmptySegmentationMask(bounds.Dx(), bounds.Dy())
	switch labeled := img.(type) {
	case *image.Gray:
		for y := 0; y < mask.height; y++ {
			for x := 0; x < mask.width; x++ {
				mask.Set(x, y, int(labeled.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
	case *image.Gray16:
		for y := 0; y < mask.height; y++ {
			for x := 0; x < mask.width; x++ {
				mask.Set(x, y, int(labeled.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
	default:
		return nil, errors.Errorf("expected grayscale label image, got %T", img)
	}
	return mask, nil
}

// Width returns the width of the mask.
func (mask *SegmentationMask) Width() int {
	return mask.width
}

// Height returns the height of the mask.
func (mask *SegmentationMask) Height() int {
	return mask.height
}

// Bounds returns the rectangle of the mask.
func (mask *SegmentationMask) Bounds() image.Rectangle {
	return image.Rect(0, 0, mask.width, mask.height)
}

// Get returns the label at the given (x, y) coordinate.
func (mask *SegmentationMask) Get(x, y int) int {
	return mask.labels[y*mask.width+x]
}

// Set sets the label at the given (x, y) coordinate.
func (mask *SegmentationMask) Set(x, y, label int) {
	mask.labels[y*mask.width+x] = label
}

// LabelCounts returns the number of pixels carrying each non-background
// label.
func (mask *SegmentationMask) LabelCounts() map[int]int {
	counts := map[int]int{}
	for _, label := range mask.labels {
		if label == BackgroundLabel {
			continue
		}
		counts[label]++
	}
	return counts
}

// Labels returns the non-background labels present in the mask, ascending.
func (mask *SegmentationMask) Labels() []int {
	counts := mask.LabelCounts()
	labels := make([]int, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}
