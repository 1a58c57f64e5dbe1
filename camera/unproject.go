package camera

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/scene"
)

// Unproject converts a scene's color and depth rasters into a point cloud
// with exactly one entry per valid-depth pixel, row-major. Pixels with a
// zero depth reading produce no point. Every point is tagged with its source
// pixel so the cloud can later be partitioned by the segmentation mask.
func (params *Intrinsics) Unproject(sc *scene.Scene) (*pointcloud.PointCloud, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if err := sc.CheckValid(); err != nil {
		return nil, err
	}

	width, height := sc.Width(), sc.Height()
	scale := params.depthScale()
	cloud := pointcloud.NewWithPrealloc(width * height)
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			d := sc.Depth.GetDepth(u, v)
			if d == 0 {
				continue
			}
			z := float64(d) / scale
			x, y, z := params.PixelToPoint(float64(u), float64(v), z)
			cloud.Add(pointcloud.Point{
				Position: r3.Vector{X: x, Y: y, Z: z},
				Color:    sc.ColorAt(u, v),
				Pixel:    image.Point{X: u, Y: v},
			})
		}
	}
	return cloud, nil
}
