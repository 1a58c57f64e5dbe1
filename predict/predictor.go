// Package predict defines the narrow capability contract to the external
// single-object grasp predictor, plus a remote client for predictors served
// over HTTP.
//
// The predictor's execution context (model weights, accelerator handle) is
// owned by the Predictor value: it is acquired once when the Predictor is
// constructed and shared read-only across every object of a run. The
// orchestration core never initializes it per object.
package predict

import (
	"context"

	"github.com/graspkit/graspkit/grasp"
	"github.com/graspkit/graspkit/pointcloud"
)

// Predictor proposes grasps for a single coherent object.
type Predictor interface {
	// Generate proposes up to numGrasps gripper poses for the given object
	// point cloud, with one quality score in [0, 1] per pose. Predictors
	// should degrade to returning fewer candidates for very small clouds
	// rather than failing. The call must respect ctx cancellation.
	Generate(ctx context.Context, cloud *pointcloud.PointCloud, numGrasps int) ([]grasp.Pose, []float64, error)
}
