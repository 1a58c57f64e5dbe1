// Package pipeline wires the full scene-to-grasps flow: unproject the depth
// raster into a point cloud, split it into per-object clouds along the
// segmentation mask, run the grasp predictor over every object, and aggregate
// the results into one collection with a per-object run summary.
package pipeline

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/graspkit/graspkit/camera"
	"github.com/graspkit/graspkit/grasp"
	"github.com/graspkit/graspkit/inference"
	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/predict"
	"github.com/graspkit/graspkit/scene"
	"github.com/graspkit/graspkit/segmentation"
)

// An ObjectFilter restricts which object ids are sent to inference. A nil or
// zero filter admits every object. When Only is non-empty it is the complete
// allow list; Exclude is applied on top of it either way.
type ObjectFilter struct {
	Only    []int
	Exclude []int
}

// Admits reports whether the object id passes the filter.
func (f *ObjectFilter) Admits(id int) bool {
	if f == nil {
		return true
	}
	for _, ex := range f.Exclude {
		if id == ex {
			return false
		}
	}
	if len(f.Only) == 0 {
		return true
	}
	for _, only := range f.Only {
		if id == only {
			return true
		}
	}
	return false
}

// Config carries everything a scene run needs besides the scene itself.
type Config struct {
	Intrinsics *camera.Intrinsics
	Inference  inference.Config
	// Filter limits which objects are processed; nil processes all.
	Filter *ObjectFilter
}

// A Result is the full outcome of one scene run.
type Result struct {
	// Cloud is the unprojected scene cloud, one point per valid-depth pixel.
	Cloud *pointcloud.PointCloud
	// Objects are the per-object clouds that went to inference.
	Objects []*segmentation.ObjectCloud
	// Skipped are the mask labels that had no valid depth points.
	Skipped []segmentation.Skip
	// Collection holds every object's grasp set plus the flattened records.
	Collection *grasp.Collection
	// Summary has one report row per mask label of the scene.
	Summary *inference.RunSummary
}

// Process runs the whole pipeline over one scene. The predictor must already
// be constructed; it is shared across all objects of the run. Input problems
// (bad intrinsics, mismatched rasters) fail immediately; per-object predictor
// trouble is isolated and reflected in the summary instead.
func Process(
	ctx context.Context,
	logger golog.Logger,
	predictor predict.Predictor,
	cfg Config,
	sc *scene.Scene,
) (*Result, error) {
	if cfg.Intrinsics == nil {
		return nil, camera.ErrNoIntrinsics
	}

	cloud, err := cfg.Intrinsics.Unproject(sc)
	if err != nil {
		return nil, errors.Wrap(err, "unprojecting scene")
	}
	logger.Debugw("scene unprojected", "points", cloud.Size())

	objects, skips, err := segmentation.SplitByMask(cloud, sc.Mask)
	if err != nil {
		return nil, errors.Wrap(err, "splitting scene cloud")
	}
	logger.Debugw("scene split", "objects", len(objects), "skipped", len(skips))

	if cfg.Filter != nil {
		kept := make([]*segmentation.ObjectCloud, 0, len(objects))
		for _, obj := range objects {
			if !cfg.Filter.Admits(obj.ID) {
				logger.Debugw("object excluded by filter", "object", obj.ID)
				continue
			}
			kept = append(kept, obj)
		}
		objects = kept
	}

	collection, summary, err := inference.Run(ctx, logger, predictor, cfg.Inference, objects, skips)
	if err != nil {
		return nil, err
	}
	return &Result{
		Cloud:      cloud,
		Objects:    objects,
		Skipped:    skips,
		Collection: collection,
		Summary:    summary,
	}, nil
}

// GraspCount is the total number of grasps across all objects of the result.
func (r *Result) GraspCount() int {
	if r.Collection == nil {
		return 0
	}
	return r.Collection.TotalGrasps()
}
