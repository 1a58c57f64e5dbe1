// Package camera holds the pinhole camera model used to unproject RGB-D
// rasters into 3D point clouds.
package camera

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// DefaultDepthScale is the number of raw depth units per meter when a
// configuration does not say otherwise (millimeter depth values).
const DefaultDepthScale = 1000.0

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or
// they are invalid.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// Intrinsics holds the parameters of the pinhole projection between the 2D
// image plane and the 3D camera frame, plus the scale of raw depth values.
type Intrinsics struct {
	Fx  float64 `json:"fx"`
	Fy  float64 `json:"fy"`
	Ppx float64 `json:"cx"`
	Ppy float64 `json:"cy"`
	// DepthScale is the number of raw depth units per meter. Zero means
	// DefaultDepthScale.
	DepthScale float64 `json:"depth_scale"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return errors.Wrap(ErrNoIntrinsics, "intrinsics do not exist")
	}
	if params.Fx <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length fx = %v", params.Fx)
	}
	if params.Fy <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length fy = %v", params.Fy)
	}
	if params.Ppx < 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal point cx = %v", params.Ppx)
	}
	if params.Ppy < 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal point cy = %v", params.Ppy)
	}
	if params.DepthScale < 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid depth scale %v", params.DepthScale)
	}
	return nil
}

// NewIntrinsicsFromJSONFile reads Intrinsics from a JSON5 calibration file.
func NewIntrinsicsFromJSONFile(jsonPath string) (_ *Intrinsics, err error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening intrinsics file")
	}
	defer func() {
		err = multierr.Combine(err, jsonFile.Close())
	}()
	intrinsics := &Intrinsics{}
	if err := json5.NewDecoder(jsonFile).Decode(intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing intrinsics file")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

func (params *Intrinsics) depthScale() float64 {
	if params.DepthScale == 0 {
		return DefaultDepthScale
	}
	return params.DepthScale
}

// PixelToPoint transforms a pixel with depth (meters) to a 3D point in the
// camera frame.
func (params *Intrinsics) PixelToPoint(u, v, z float64) (float64, float64, float64) {
	x := (u - params.Ppx) * z / params.Fx
	y := (v - params.Ppy) * z / params.Fy
	return x, y, z
}

// PointToPixel projects a 3D point in the camera frame to a pixel in the
// image plane.
func (params *Intrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		u := math.Round((x/z)*params.Fx + params.Ppx)
		v := math.Round((y/z)*params.Fy + params.Ppy)
		return u, v
	}
	// zero depth projects nowhere; negative coordinates fall outside any
	// raster bounds
	return -1.0, -1.0
}

// Matrix returns the camera matrix
//
//	[[fx 0 cx],
//	 [0 fy cy],
//	 [0 0  1]]
func (params *Intrinsics) Matrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, params.Fx)
	m.Set(1, 1, params.Fy)
	m.Set(0, 2, params.Ppx)
	m.Set(1, 2, params.Ppy)
	m.Set(2, 2, 1)
	return m
}
