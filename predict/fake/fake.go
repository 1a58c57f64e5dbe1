// Package fake implements a deterministic grasp predictor that needs no
// model weights or accelerator. It is used in tests and for dry runs of the
// pipeline.
package fake

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/graspkit/graspkit/grasp"
	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/predict"
)

// Predictor proposes top-down grasps spaced evenly around the object's
// vertical axis, centered on its centroid. Scores descend linearly from 1.
// Identical clouds always yield identical candidates.
type Predictor struct {
	// GenerateErr, if set, is returned by every Generate call. Tests use it
	// to exercise per-object fault isolation.
	GenerateErr error
}

var _ predict.Predictor = (*Predictor)(nil)

// Generate implements predict.Predictor.
func (p *Predictor) Generate(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	numGrasps int,
) ([]grasp.Pose, []float64, error) {
	if p.GenerateErr != nil {
		return nil, nil, p.GenerateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if numGrasps <= 0 {
		return nil, nil, errors.Errorf("numGrasps must be positive, got %d", numGrasps)
	}
	if cloud.Size() == 0 {
		return nil, nil, errors.New("cannot generate grasps for an empty cloud")
	}

	// degrade for very small clouds rather than fail
	n := numGrasps
	if cloud.Size() < n {
		n = cloud.Size()
	}

	center := cloud.Centroid()
	poses := make([]grasp.Pose, 0, n)
	scores := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		c, s := math.Cos(theta), math.Sin(theta)
		// rotation about the camera z axis, gripper at the centroid
		pose, err := grasp.NewPose([]float64{
			c, -s, 0, center.X,
			s, c, 0, center.Y,
			0, 0, 1, center.Z,
			0, 0, 0, 1,
		})
		if err != nil {
			return nil, nil, err
		}
		poses = append(poses, pose)
		scores = append(scores, 1-float64(i)/float64(n))
	}
	return poses, scores, nil
}
