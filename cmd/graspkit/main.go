// Package main is the graspkit batch driver: it runs the grasp pipeline over
// one RGB-D scene and writes the per-object artifacts to an output directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/graspkit/graspkit/camera"
	"github.com/graspkit/graspkit/inference"
	"github.com/graspkit/graspkit/pipeline"
	"github.com/graspkit/graspkit/pointcloud"
	"github.com/graspkit/graspkit/predict"
	"github.com/graspkit/graspkit/predict/fake"
	"github.com/graspkit/graspkit/scene"
)

const (
	flagColor            = "color"
	flagDepth            = "depth"
	flagMask             = "mask"
	flagIntrinsics       = "intrinsics"
	flagPredictor        = "predictor"
	flagPredictorAddress = "predictor-address"
	flagModel            = "model"
	flagNumGrasps        = "num-grasps"
	flagScoreThreshold   = "score-threshold"
	flagTopK             = "top-k"
	flagTimeout          = "timeout"
	flagWorkers          = "workers"
	flagOnly             = "only"
	flagExclude          = "exclude"
	flagOut              = "out"
	flagPCDBinary        = "pcd-binary"

	predictorFake   = "fake"
	predictorRemote = "remote"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "graspkit",
		Usage: "generate 6-DOF grasp candidates for every object in an RGB-D scene",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("graspkit")
			} else {
				logger = golog.NewDevelopmentLogger("graspkit")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "run the grasp pipeline over one scene and export the results",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagColor,
						Usage:    "color PNG of the scene",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagDepth,
						Usage:    "16-bit grayscale depth PNG of the scene",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagMask,
						Usage:    "grayscale instance label PNG of the scene",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagIntrinsics,
						Usage:    "JSON5 camera intrinsics calibration `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  flagPredictor,
						Value: predictorFake,
						Usage: "grasp predictor to use: fake or remote",
					},
					&cli.StringFlag{
						Name:  flagPredictorAddress,
						Usage: "base URL of the remote grasp predictor",
					},
					&cli.StringFlag{
						Name:  flagModel,
						Usage: "model name to request from the remote predictor",
					},
					&cli.IntFlag{
						Name:  flagNumGrasps,
						Value: 64,
						Usage: "candidates to request from the predictor per object",
					},
					&cli.Float64Flag{
						Name:  flagScoreThreshold,
						Value: 0.5,
						Usage: "drop candidates whose score is not strictly greater",
					},
					&cli.IntFlag{
						Name:  flagTopK,
						Value: 10,
						Usage: "candidates to retain per object after ranking",
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Value: inference.DefaultTimeout,
						Usage: "deadline of a single predictor call",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Value: 1,
						Usage: "objects processed in parallel; below 2 is sequential",
					},
					&cli.IntSliceFlag{
						Name:  flagOnly,
						Usage: "process only these object ids",
					},
					&cli.IntSliceFlag{
						Name:  flagExclude,
						Usage: "skip these object ids",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Value: "out",
						Usage: "directory for exported artifacts",
					},
					&cli.BoolFlag{
						Name:  flagPCDBinary,
						Usage: "write point clouds as binary PCD instead of ascii",
					},
				},
				Action: func(c *cli.Context) error {
					return runProcess(c, logger)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newPredictor(ctx context.Context, c *cli.Context, logger golog.Logger) (predict.Predictor, error) {
	switch c.String(flagPredictor) {
	case predictorFake:
		return &fake.Predictor{}, nil
	case predictorRemote:
		return predict.NewRemote(ctx, predict.RemoteConfig{
			Address: c.String(flagPredictorAddress),
			Model:   c.String(flagModel),
		}, logger)
	default:
		return nil, errors.Errorf("unknown predictor %q", c.String(flagPredictor))
	}
}

func runProcess(c *cli.Context, logger golog.Logger) error {
	ctx := c.Context

	intrinsics, err := camera.NewIntrinsicsFromJSONFile(c.String(flagIntrinsics))
	if err != nil {
		return err
	}
	sc, err := scene.NewFromFiles(c.String(flagColor), c.String(flagDepth), c.String(flagMask))
	if err != nil {
		return err
	}
	predictor, err := newPredictor(ctx, c, logger)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Intrinsics: intrinsics,
		Inference: inference.Config{
			NumGrasps:      c.Int(flagNumGrasps),
			ScoreThreshold: c.Float64(flagScoreThreshold),
			TopK:           c.Int(flagTopK),
			Timeout:        c.Duration(flagTimeout),
			MaxWorkers:     c.Int(flagWorkers),
		},
	}
	if only, exclude := c.IntSlice(flagOnly), c.IntSlice(flagExclude); len(only) > 0 || len(exclude) > 0 {
		cfg.Filter = &pipeline.ObjectFilter{Only: only, Exclude: exclude}
	}

	start := time.Now()
	result, err := pipeline.Process(ctx, logger, predictor, cfg, sc)
	if err != nil {
		return err
	}
	result.Summary.Log(logger)
	logger.Infow("scene processed",
		"run", result.Summary.RunID.String(),
		"objects", len(result.Objects),
		"skipped", len(result.Skipped),
		"grasps", result.GraspCount(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	outDir := c.String(flagOut)
	if err := exportResult(result, outDir, c.Bool(flagPCDBinary)); err != nil {
		return err
	}
	logger.Infow("artifacts written", "dir", outDir)
	return nil
}

// exportResult writes the scene cloud, one PCD per object, the flattened
// grasp records, and the run summary into dir.
func exportResult(result *pipeline.Result, dir string, binaryPCD bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create output directory %q", dir)
	}
	pcdType := pointcloud.PCDAscii
	if binaryPCD {
		pcdType = pointcloud.PCDBinary
	}

	if err := pointcloud.WriteToPCDFile(result.Cloud, filepath.Join(dir, "scene.pcd"), pcdType); err != nil {
		return errors.Wrap(err, "writing scene cloud")
	}
	for _, obj := range result.Objects {
		fn := filepath.Join(dir, fmt.Sprintf("object_%d.pcd", obj.ID))
		if err := pointcloud.WriteToPCDFile(obj.Cloud, fn, pcdType); err != nil {
			return errors.Wrapf(err, "writing cloud of object %d", obj.ID)
		}
		set, ok := result.Collection.Set(obj.ID)
		if !ok {
			continue
		}
		fn = filepath.Join(dir, fmt.Sprintf("object_%d_grasps.json", obj.ID))
		if err := writeJSONFile(fn, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}); err != nil {
			return errors.Wrapf(err, "writing grasp set of object %d", obj.ID)
		}
	}
	if err := writeJSONFile(filepath.Join(dir, "grasps.json"), result.Collection.WriteJSON); err != nil {
		return errors.Wrap(err, "writing grasp records")
	}
	if err := writeJSONFile(filepath.Join(dir, "summary.json"), result.Summary.WriteJSON); err != nil {
		return errors.Wrap(err, "writing run summary")
	}
	return nil
}

func writeJSONFile(fn string, write func(w io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return write(f)
}
