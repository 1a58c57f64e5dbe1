// Package grasp defines 6-DOF grasp candidates and the scene-level
// collection that aggregates them per object.
package grasp

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// A Pose is a 4x4 rigid transform describing a gripper pose in the camera
// frame. It is immutable once created.
type Pose struct {
	m *mat.Dense
}

// NewPose creates a Pose from 16 row-major elements. The bottom row must be
// (0 0 0 1).
func NewPose(elements []float64) (Pose, error) {
	if len(elements) != 16 {
		return Pose{}, errors.Errorf("pose needs 16 elements, got %d", len(elements))
	}
	bottom := elements[12:16]
	want := []float64{0, 0, 0, 1}
	for i := range want {
		if math.Abs(bottom[i]-want[i]) > 1e-9 {
			return Pose{}, errors.Errorf("pose bottom row must be (0 0 0 1), got %v", bottom)
		}
	}
	vals := make([]float64, 16)
	copy(vals, elements)
	return Pose{m: mat.NewDense(4, 4, vals)}, nil
}

// NewPoseFromMatrix creates a Pose from a 4x4 matrix.
func NewPoseFromMatrix(m *mat.Dense) (Pose, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return Pose{}, errors.Errorf("pose matrix must be 4x4, got %dx%d", r, c)
	}
	vals := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			vals = append(vals, m.At(i, j))
		}
	}
	return NewPose(vals)
}

// IdentityPose returns the identity transform.
func IdentityPose() Pose {
	p, err := NewPose([]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Matrix returns a copy of the transform as a 4x4 matrix.
func (p Pose) Matrix() *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	out.Copy(p.m)
	return out
}

// Translation returns the translation component of the transform.
func (p Pose) Translation() r3.Vector {
	return r3.Vector{X: p.m.At(0, 3), Y: p.m.At(1, 3), Z: p.m.At(2, 3)}
}

// Elements returns the 16 row-major elements of the transform.
func (p Pose) Elements() []float64 {
	vals := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			vals = append(vals, p.m.At(i, j))
		}
	}
	return vals
}

// MarshalJSON encodes the pose as its 16 row-major elements.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Elements())
}

// UnmarshalJSON decodes a pose from 16 row-major elements.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var elements []float64
	if err := json.Unmarshal(data, &elements); err != nil {
		return err
	}
	decoded, err := NewPose(elements)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
