// Package inference runs the external grasp predictor over every segmented
// object of a scene and aggregates the results into one combined grasp
// collection.
//
// Each object is processed independently: a predictor failure, timeout, or
// malformed result downgrades to a warning and an empty grasp set for that
// object, never aborting the scene. Objects may be processed sequentially or
// by a bounded worker pool; the collection's per-object append is the only
// synchronization point.
package inference

import (
	"context"
	"sort"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/graspkit/graspkit/grasp"
	"github.com/graspkit/graspkit/predict"
	"github.com/graspkit/graspkit/segmentation"
)

// DefaultTimeout bounds a single predictor call when the config does not
// say otherwise.
const DefaultTimeout = 30 * time.Second

// Config controls the per-object inference loop.
type Config struct {
	// NumGrasps is how many candidates to request from the predictor per
	// object.
	NumGrasps int `json:"num_grasps"`
	// ScoreThreshold drops candidates whose score is not strictly greater.
	ScoreThreshold float64 `json:"score_threshold"`
	// TopK caps how many candidates are retained per object after
	// filtering and ranking.
	TopK int `json:"top_k"`
	// Timeout bounds each predictor call. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout"`
	// MaxWorkers is the size of the worker pool; values below 2 mean
	// strictly sequential execution.
	MaxWorkers int `json:"max_workers"`
}

// CheckValid checks the config fields.
func (cfg *Config) CheckValid() error {
	if cfg.NumGrasps <= 0 {
		return errors.Errorf("num_grasps must be positive, got %d", cfg.NumGrasps)
	}
	if cfg.TopK <= 0 {
		return errors.Errorf("top_k must be positive, got %d", cfg.TopK)
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		return errors.Errorf("score_threshold must be in [0,1], got %v", cfg.ScoreThreshold)
	}
	return nil
}

func (cfg *Config) timeout() time.Duration {
	if cfg.Timeout <= 0 {
		return DefaultTimeout
	}
	return cfg.Timeout
}

func (cfg *Config) workers() int {
	if cfg.MaxWorkers < 2 {
		return 1
	}
	return cfg.MaxWorkers
}

// Run calls the predictor once per object and returns the combined
// collection plus a run summary with one report row per object, including
// objects skipped before inference. The predictor must already hold its
// execution context; Run never reinitializes it.
//
// On cancellation, no new predictor calls are issued, objects not yet
// appended stay absent from the collection, and Run returns the context
// error alongside the partial collection and summary.
func Run(
	ctx context.Context,
	logger golog.Logger,
	predictor predict.Predictor,
	cfg Config,
	objects []*segmentation.ObjectCloud,
	skips []segmentation.Skip,
) (*grasp.Collection, *RunSummary, error) {
	if predictor == nil {
		return nil, nil, errors.New("inference needs a predictor")
	}
	if err := cfg.CheckValid(); err != nil {
		return nil, nil, err
	}

	collection := grasp.NewCollection()
	summary := NewRunSummary()
	for _, skip := range skips {
		summary.add(ObjectReport{
			ObjectID:   skip.ID,
			PixelCount: skip.PixelCount,
			Outcome:    OutcomeSkipped,
			Detail:     "no valid depth points",
		})
		logger.Warnw("object has no valid depth points; excluded from inference",
			"object", skip.ID, "pixels", skip.PixelCount)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.workers())
	for _, obj := range objects {
		obj := obj
		group.Go(func() error {
			return processObject(groupCtx, logger, predictor, cfg, obj, collection, summary)
		})
	}
	if err := group.Wait(); err != nil {
		return collection, summary, err
	}
	if err := collection.Validate(); err != nil {
		return nil, nil, err
	}
	return collection, summary, ctx.Err()
}

// processObject runs inference for one object. Only structural aggregation
// failures and cancellation propagate; predictor trouble is recorded and
// swallowed.
func processObject(
	ctx context.Context,
	logger golog.Logger,
	predictor predict.Predictor,
	cfg Config,
	obj *segmentation.ObjectCloud,
	collection *grasp.Collection,
	summary *RunSummary,
) error {
	if err := ctx.Err(); err != nil {
		// canceled before the call was issued: never attempted, so the
		// object stays absent from the collection
		summary.add(ObjectReport{
			ObjectID:   obj.ID,
			PixelCount: obj.PixelCount,
			PointCount: obj.PointCount,
			Outcome:    OutcomeNotAttempted,
			Detail:     "scene canceled",
		})
		return err
	}

	report := ObjectReport{
		ObjectID:   obj.ID,
		PixelCount: obj.PixelCount,
		PointCount: obj.PointCount,
		Outcome:    OutcomeProcessed,
	}

	poses, scores, err := generateBounded(ctx, predictor, obj, cfg.NumGrasps, cfg.timeout())
	if err == nil {
		err = checkWellFormed(poses, scores, cfg.NumGrasps)
	}

	set := &grasp.Set{ObjectID: obj.ID}
	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		summary.add(ObjectReport{
			ObjectID:   obj.ID,
			PixelCount: obj.PixelCount,
			PointCount: obj.PointCount,
			Outcome:    OutcomeNotAttempted,
			Detail:     "scene canceled",
		})
		return ctx.Err()
	case err != nil:
		report.Outcome = OutcomePredictorFailed
		report.Detail = err.Error()
		logger.Warnw("predictor failed for object; recording empty grasp set",
			"object", obj.ID, "error", err)
	default:
		set.Candidates = rank(poses, scores, obj.ID, cfg)
	}

	if err := collection.AddSet(set); err != nil {
		return err
	}
	report.GraspCount = len(set.Candidates)
	if best, ok := set.Best(); ok {
		report.BestScore = best.Score
	}
	summary.add(report)
	logger.Debugw("object processed",
		"object", obj.ID, "points", obj.PointCount, "retained", report.GraspCount, "best", report.BestScore)
	return nil
}

// generateBounded calls the predictor under a deadline. If the predictor
// ignores cancellation and hangs, the call is abandoned and the deadline
// error is returned; the goroutine is left to finish on its own.
func generateBounded(
	ctx context.Context,
	predictor predict.Predictor,
	obj *segmentation.ObjectCloud,
	numGrasps int,
	timeout time.Duration,
) ([]grasp.Pose, []float64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		poses  []grasp.Pose
		scores []float64
		err    error
	}
	results := make(chan result, 1)
	utils.PanicCapturingGo(func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r = result{err: errors.Errorf("predictor panicked: %v", p)}
			}
			results <- r
		}()
		r.poses, r.scores, r.err = predictor.Generate(ctx, obj.Cloud, numGrasps)
	})

	select {
	case r := <-results:
		return r.poses, r.scores, r.err
	case <-ctx.Done():
		return nil, nil, errors.Wrap(ctx.Err(), "predictor call abandoned")
	}
}

// checkWellFormed validates the shape of a predictor result.
func checkWellFormed(poses []grasp.Pose, scores []float64, numGrasps int) error {
	if len(poses) != len(scores) {
		return errors.Errorf("malformed result: %d grasps but %d scores", len(poses), len(scores))
	}
	if len(poses) > numGrasps {
		return errors.Errorf("malformed result: %d grasps exceeds requested %d", len(poses), numGrasps)
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			return errors.Errorf("malformed result: score %v at %d outside [0,1]", s, i)
		}
	}
	return nil
}

// rank applies the strict score threshold, sorts descending by score with
// ties keeping the predictor's emission order, and truncates to top-K.
func rank(poses []grasp.Pose, scores []float64, objectID int, cfg Config) []grasp.Candidate {
	kept := make([]grasp.Candidate, 0, len(poses))
	for i, pose := range poses {
		if scores[i] > cfg.ScoreThreshold {
			kept = append(kept, grasp.Candidate{Pose: pose, Score: scores[i], ObjectID: objectID})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > cfg.TopK {
		kept = kept[:cfg.TopK]
	}
	return kept
}
