package inference

import (
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
)

// Outcome classifies what happened to one object during a run.
type Outcome string

const (
	// OutcomeProcessed means inference ran and a grasp set (possibly
	// empty) was recorded.
	OutcomeProcessed Outcome = "processed"
	// OutcomePredictorFailed means the predictor call failed, timed out,
	// or returned a malformed result; an empty grasp set was recorded.
	OutcomePredictorFailed Outcome = "predictor_failed"
	// OutcomeSkipped means the object had no valid depth points and was
	// excluded from inference.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNotAttempted means the scene was canceled before the object's
	// predictor call was issued.
	OutcomeNotAttempted Outcome = "not_attempted"
)

// ObjectReport is the run summary row of one object. Every mask label of
// the scene appears in exactly one report; silent omission is not allowed.
type ObjectReport struct {
	ObjectID   int     `json:"object_id"`
	PixelCount int     `json:"pixel_count"`
	PointCount int     `json:"point_count"`
	GraspCount int     `json:"grasp_count"`
	BestScore  float64 `json:"best_score"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
}

// RunSummary accumulates per-object reports for one scene run.
type RunSummary struct {
	RunID uuid.UUID

	mu      sync.Mutex
	reports []ObjectReport
}

// NewRunSummary returns an empty summary with a fresh run id.
func NewRunSummary() *RunSummary {
	return &RunSummary{RunID: uuid.New()}
}

func (s *RunSummary) add(r ObjectReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

// Reports returns the per-object rows, ascending by object id.
func (s *RunSummary) Reports() []ObjectReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectReport, len(s.reports))
	copy(out, s.reports)
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

// Report returns the row for the given object, if present.
func (s *RunSummary) Report(objectID int) (ObjectReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ObjectID == objectID {
			return r, true
		}
	}
	return ObjectReport{}, false
}

// Log writes every row of the summary to the logger.
func (s *RunSummary) Log(logger golog.Logger) {
	for _, r := range s.Reports() {
		logger.Infow("object summary",
			"run", s.RunID.String(),
			"object", r.ObjectID,
			"pixels", r.PixelCount,
			"points", r.PointCount,
			"grasps", r.GraspCount,
			"best", r.BestScore,
			"outcome", string(r.Outcome),
			"detail", r.Detail,
		)
	}
}

type summaryJSON struct {
	RunID   string         `json:"run_id"`
	Objects []ObjectReport `json:"objects"`
}

// WriteJSON writes the summary as JSON.
func (s *RunSummary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryJSON{RunID: s.RunID.String(), Objects: s.Reports()})
}
