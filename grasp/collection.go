package grasp

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// A Candidate is one predicted gripper pose with its quality score and the
// object it was generated for.
type Candidate struct {
	Pose     Pose    `json:"grasp"`
	Score    float64 `json:"score"`
	ObjectID int     `json:"object_id"`
}

// A Set is the final, ranked grasp set of one object: candidates that
// survived threshold filtering and top-K truncation, descending by score.
// An empty set is a valid outcome and means the object was processed but
// produced no retained grasps.
type Set struct {
	ObjectID   int         `json:"object_id"`
	Candidates []Candidate `json:"candidates"`
}

// Best returns the highest scoring candidate, if any.
func (s *Set) Best() (Candidate, bool) {
	if len(s.Candidates) == 0 {
		return Candidate{}, false
	}
	return s.Candidates[0], true
}

// A Record is one flattened grasp entry of the combined collection.
// GraspIdx is the candidate's zero-based rank within its object's set.
type Record struct {
	ObjectID int     `json:"object_id"`
	Grasp    Pose    `json:"grasp"`
	Score    float64 `json:"score"`
	GraspIdx int     `json:"grasp_idx"`
}

// ErrDuplicateObject is returned when a grasp set is added for an object
// that already has one. It indicates a logic defect in the caller, not bad
// scene data.
var ErrDuplicateObject = errors.New("object already has a grasp set in the collection")

// ErrInconsistentCollection is returned by Validate when the collection's
// invariants do not hold.
var ErrInconsistentCollection = errors.New("grasp collection invariants violated")

// A Collection aggregates the grasp sets of every processed object in a
// scene, keeping both the per-object mapping and a flattened, indexed record
// sequence. Objects whose sets were never added are absent from the mapping,
// which is how "never attempted" is distinguished from "processed, zero
// grasps". AddSet is safe for concurrent use; each object's records are
// appended atomically.
type Collection struct {
	mu      sync.Mutex
	sets    map[int]*Set
	order   []int
	records []Record
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{sets: map[int]*Set{}}
}

// AddSet records the finished grasp set of one object, assigning each
// candidate its zero-based rank index and appending the object's records to
// the flattened sequence in one step.
func (c *Collection) AddSet(s *Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sets[s.ObjectID]; ok {
		return errors.Wrapf(ErrDuplicateObject, "object %d", s.ObjectID)
	}
	c.sets[s.ObjectID] = s
	c.order = append(c.order, s.ObjectID)
	for i, cand := range s.Candidates {
		c.records = append(c.records, Record{
			ObjectID: s.ObjectID,
			Grasp:    cand.Pose,
			Score:    cand.Score,
			GraspIdx: i,
		})
	}
	return nil
}

// Set returns the grasp set recorded for the given object, if any.
func (c *Collection) Set(objectID int) (*Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[objectID]
	return s, ok
}

// ObjectIDs returns the ids of all recorded objects in the order their sets
// were added.
func (c *Collection) ObjectIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.order))
	copy(out, c.order)
	return out
}

// Records returns a copy of the flattened record sequence.
func (c *Collection) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of recorded objects.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

// TotalGrasps returns the number of flattened records.
func (c *Collection) TotalGrasps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Validate checks the collection's structural invariants: every record's
// (object id, grasp idx) pair is unique, per-object record counts equal set
// sizes, and the flattened total equals the sum of retained counts. A
// violation means a defect in aggregation and is fatal to the run.
func (c *Collection) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	type key struct{ objectID, graspIdx int }
	seen := map[key]bool{}
	perObject := map[int]int{}
	for _, r := range c.records {
		k := key{r.ObjectID, r.GraspIdx}
		if seen[k] {
			return errors.Wrapf(ErrInconsistentCollection, "duplicate record for object %d grasp %d", r.ObjectID, r.GraspIdx)
		}
		seen[k] = true
		perObject[r.ObjectID]++
	}

	total := 0
	for id, s := range c.sets {
		if perObject[id] != len(s.Candidates) {
			return errors.Wrapf(ErrInconsistentCollection,
				"object %d has %d records but %d retained candidates", id, perObject[id], len(s.Candidates))
		}
		total += len(s.Candidates)
	}
	for id := range perObject {
		if _, ok := c.sets[id]; !ok {
			return errors.Wrapf(ErrInconsistentCollection, "records exist for object %d but no set was added", id)
		}
	}
	if total != len(c.records) {
		return errors.Wrapf(ErrInconsistentCollection,
			"flattened count %d != sum of retained counts %d", len(c.records), total)
	}
	return nil
}

// WriteJSON writes the flattened record sequence as JSON.
func (c *Collection) WriteJSON(w io.Writer) error {
	records := c.Records()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
