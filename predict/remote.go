package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/graspkit/graspkit/grasp"
	"github.com/graspkit/graspkit/pointcloud"
)

// RemoteConfig configures a connection to a grasp predictor served over
// HTTP.
type RemoteConfig struct {
	// Address is the base URL of the inference server, e.g.
	// "http://localhost:8093".
	Address string `json:"address"`
	// Model selects which loaded predictor model to query.
	Model string `json:"model"`
}

type remotePredictor struct {
	client *http.Client
	addr   string
	model  string
	logger golog.Logger
}

// NewRemote connects to a remote predictor and verifies it is ready to
// serve. The returned Predictor holds no per-object state and is safe for
// concurrent use.
func NewRemote(ctx context.Context, cfg RemoteConfig, logger golog.Logger) (Predictor, error) {
	if cfg.Address == "" {
		return nil, errors.New("remote predictor needs an address")
	}
	p := &remotePredictor{
		client: &http.Client{},
		addr:   cfg.Address,
		model:  cfg.Model,
		logger: logger,
	}
	if err := p.ready(ctx); err != nil {
		return nil, errors.Wrapf(err, "predictor at %q is not ready", cfg.Address)
	}
	return p, nil
}

func (p *remotePredictor) ready(ctx context.Context) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.addr+"/v1/ready", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, resp.Body.Close())
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ready check returned status %d", resp.StatusCode)
	}
	return nil
}

type generateRequest struct {
	Model     string       `json:"model,omitempty"`
	NumGrasps int          `json:"num_grasps"`
	Points    [][3]float64 `json:"points"`
}

type generateResponse struct {
	Grasps [][]float64 `json:"grasps"`
	Scores []float64   `json:"scores"`
}

// Generate asks the remote predictor for up to numGrasps poses. The caller
// bounds the call with ctx; a hung server surfaces as a context error.
func (p *remotePredictor) Generate(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	numGrasps int,
) (_ []grasp.Pose, _ []float64, err error) {
	points := make([][3]float64, 0, cloud.Size())
	cloud.Iterate(func(pt pointcloud.Point) bool {
		points = append(points, [3]float64{pt.Position.X, pt.Position.Y, pt.Position.Z})
		return true
	})

	body, err := json.Marshal(generateRequest{Model: p.model, NumGrasps: numGrasps, Points: points})
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.addr+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		err = multierr.Combine(err, resp.Body.Close())
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, errors.Errorf("predictor returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, nil, errors.Wrap(err, "cannot decode predictor response")
	}
	if len(decoded.Grasps) != len(decoded.Scores) {
		return nil, nil, errors.Errorf("predictor returned %d grasps but %d scores",
			len(decoded.Grasps), len(decoded.Scores))
	}

	poses := make([]grasp.Pose, 0, len(decoded.Grasps))
	for i, elements := range decoded.Grasps {
		pose, err := grasp.NewPose(elements)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "predictor grasp %d is malformed", i)
		}
		poses = append(poses, pose)
	}
	p.logger.Debugw("remote generate", "points", len(points), "requested", numGrasps, "returned", len(poses))
	return poses, decoded.Scores, nil
}
