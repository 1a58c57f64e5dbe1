// Package segmentation partitions a scene point cloud into per-object point
// clouds using an instance segmentation mask.
package segmentation

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/scene"
)

// An ObjectCloud is the point cloud of a single object instance.
// PixelCount is how many mask pixels carry the object's label; PointCount is
// how many of those pixels had a valid depth reading and therefore a 3D
// point. PointCount is always > 0 and may be smaller than PixelCount.
type ObjectCloud struct {
	ID         int
	Cloud      *pointcloud.PointCloud
	PixelCount int
	PointCount int
}

// A Skip records a mask label that produced no valid 3D points. It is not an
// error; it is reported so the run summary can account for every label.
type Skip struct {
	ID         int
	PixelCount int
}

// SplitByMask partitions the given pixel-tagged cloud by the mask label at
// each point's source pixel. The background label is discarded. One
// ObjectCloud is returned per label with at least one valid point, ascending
// by label; labels whose pixels all lacked depth are returned as skips.
func SplitByMask(cloud *pointcloud.PointCloud, mask *scene.SegmentationMask) ([]*ObjectCloud, []Skip, error) {
	pixelCounts := mask.LabelCounts()
	bounds := mask.Bounds()

	grouped := map[int]*pointcloud.PointCloud{}
	var badPixel *pointcloud.Point
	cloud.Iterate(func(p pointcloud.Point) bool {
		if !p.Pixel.In(bounds) {
			badPixel = &p
			return false
		}
		label := mask.Get(p.Pixel.X, p.Pixel.Y)
		if label == scene.BackgroundLabel {
			return true
		}
		obj, ok := grouped[label]
		if !ok {
			obj = pointcloud.New()
			grouped[label] = obj
		}
		obj.Add(p)
		return true
	})
	if badPixel != nil {
		return nil, nil, errors.Errorf("point source pixel %v outside mask bounds %v", badPixel.Pixel, bounds)
	}

	labels := make([]int, 0, len(pixelCounts))
	for label := range pixelCounts {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	objects := make([]*ObjectCloud, 0, len(labels))
	var skips []Skip
	for _, label := range labels {
		obj, ok := grouped[label]
		if !ok || obj.Size() == 0 {
			skips = append(skips, Skip{ID: label, PixelCount: pixelCounts[label]})
			continue
		}
		objects = append(objects, &ObjectCloud{
			ID:         label,
			Cloud:      obj,
			PixelCount: pixelCounts[label],
			PointCount: obj.Size(),
		})
	}
	return objects, skips, nil
}
