package segmentation

import (
	"image"
	"testing"

	"go.viam.com/test"

	"github.com/graspkit/graspkit/camera"
	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/scene"
)

var testIntrinsics = &camera.Intrinsics{Fx: 600, Fy: 600, Ppx: 4, Ppy: 3}

func makeLabeledScene(t *testing.T, width, height int) *scene.Scene {
	t.Helper()
	colorImg := image.NewNRGBA(image.Rect(0, 0, width, height))
	sc, err := scene.New(colorImg, scene.NewEmptyDepthMap(width, height), scene.NewEmptySegmentationMask(width, height))
	test.That(t, err, test.ShouldBeNil)
	return sc
}

func TestSplitByMaskPartition(t *testing.T) {
	sc := makeLabeledScene(t, 8, 6)
	// two objects, some background, some invalid depth inside object 3
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			sc.Depth.Set(x, y, 600)
		}
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			sc.Mask.Set(x, y, 3)
		}
	}
	for y := 3; y < 6; y++ {
		for x := 5; x < 8; x++ {
			sc.Mask.Set(x, y, 12)
		}
	}
	sc.Depth.Set(0, 0, 0) // object 3 loses one point

	cloud, err := testIntrinsics.Unproject(sc)
	test.That(t, err, test.ShouldBeNil)

	objects, skips, err := SplitByMask(cloud, sc.Mask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, skips, test.ShouldBeEmpty)
	test.That(t, len(objects), test.ShouldEqual, 2)

	test.That(t, objects[0].ID, test.ShouldEqual, 3)
	test.That(t, objects[0].PixelCount, test.ShouldEqual, 6)
	test.That(t, objects[0].PointCount, test.ShouldEqual, 5)
	test.That(t, objects[1].ID, test.ShouldEqual, 12)
	test.That(t, objects[1].PixelCount, test.ShouldEqual, 9)
	test.That(t, objects[1].PointCount, test.ShouldEqual, 9)

	// partition completeness: every non-background valid-depth pixel is
	// assigned to exactly one object
	seen := map[image.Point]int{}
	for _, obj := range objects {
		obj.Cloud.Iterate(func(p pointcloud.Point) bool {
			seen[p.Pixel]++
			test.That(t, sc.Mask.Get(p.Pixel.X, p.Pixel.Y), test.ShouldEqual, obj.ID)
			return true
		})
	}
	expected := 0
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if sc.Mask.Get(x, y) != scene.BackgroundLabel && sc.Depth.GetDepth(x, y) != 0 {
				expected++
			}
		}
	}
	test.That(t, len(seen), test.ShouldEqual, expected)
	for _, n := range seen {
		test.That(t, n, test.ShouldEqual, 1)
	}
}

func TestSplitByMaskSkipsEmptyObjects(t *testing.T) {
	// labels {0, 200, 85}: label 200 has 10 valid-depth pixels, label 85
	// has none
	sc := makeLabeledScene(t, 8, 6)
	for x := 0; x < 5; x++ {
		sc.Mask.Set(x, 0, 200)
		sc.Mask.Set(x, 1, 200)
		sc.Depth.Set(x, 0, 800)
		sc.Depth.Set(x, 1, 800)
	}
	for x := 0; x < 4; x++ {
		sc.Mask.Set(x, 4, 85)
	}

	cloud, err := testIntrinsics.Unproject(sc)
	test.That(t, err, test.ShouldBeNil)

	objects, skips, err := SplitByMask(cloud, sc.Mask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(objects), test.ShouldEqual, 1)
	test.That(t, objects[0].ID, test.ShouldEqual, 200)
	test.That(t, objects[0].PixelCount, test.ShouldEqual, 10)
	test.That(t, objects[0].PointCount, test.ShouldEqual, 10)

	test.That(t, len(skips), test.ShouldEqual, 1)
	test.That(t, skips[0], test.ShouldResemble, Skip{ID: 85, PixelCount: 4})
}

func TestSplitByMaskAllBackground(t *testing.T) {
	sc := makeLabeledScene(t, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			sc.Depth.Set(x, y, 500)
		}
	}
	cloud, err := testIntrinsics.Unproject(sc)
	test.That(t, err, test.ShouldBeNil)

	objects, skips, err := SplitByMask(cloud, sc.Mask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, objects, test.ShouldBeEmpty)
	test.That(t, skips, test.ShouldBeEmpty)
}

func TestSplitByMaskBadProvenance(t *testing.T) {
	cloud := pointcloud.New()
	cloud.Add(pointcloud.Point{Pixel: image.Point{10, 10}})
	_, _, err := SplitByMask(cloud, scene.NewEmptySegmentationMask(4, 4))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "outside mask bounds")
}
