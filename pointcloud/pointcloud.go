// Package pointcloud defines an ordered point cloud where every point keeps
// the image pixel it was unprojected from.
//
// Clouds produced by camera unprojection are dense row-major sequences; the
// ordering is load-bearing for downstream segmentation, so unlike a
// position-keyed cloud, duplicate positions are allowed and insertion order
// is preserved.
package pointcloud

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// A Point is a single 3D sample of a scene. Position is in meters in the
// camera frame. Pixel is the source pixel (u, v) the point was unprojected
// from; it is the join key between a cloud and a segmentation mask.
type Point struct {
	Position r3.Vector
	Color    color.NRGBA
	Pixel    image.Point
}

// MetaData is aggregate data about the points in a cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// NewMetaData creates a new MetaData for a PointCloud.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
		MinZ: math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(p Point) {
	v := p.Position
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// PointCloud is an ordered sequence of points.
type PointCloud struct {
	points []Point
	meta   MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with capacity for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		points: make([]Point, 0, size),
		meta:   NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the meta data.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Add appends the given point to the cloud.
func (cloud *PointCloud) Add(p Point) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// At returns the point at index i.
func (cloud *PointCloud) At(i int) Point {
	return cloud.points[i]
}

// Iterate iterates over all points in the cloud in insertion order and calls
// the given function for each point. If the supplied function returns false,
// iteration stops.
func (cloud *PointCloud) Iterate(fn func(p Point) bool) {
	for _, p := range cloud.points {
		if !fn(p) {
			return
		}
	}
}

// Centroid returns the mean position of the points in the cloud, or the zero
// vector for an empty cloud.
func (cloud *PointCloud) Centroid() r3.Vector {
	n := float64(len(cloud.points))
	if n == 0 {
		return r3.Vector{}
	}
	return r3.Vector{
		X: cloud.meta.totalX / n,
		Y: cloud.meta.totalY / n,
		Z: cloud.meta.totalZ / n,
	}
}
