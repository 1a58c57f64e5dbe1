package grasp

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"go.viam.com/test"
)

func candidates(objectID int, scores ...float64) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for _, s := range scores {
		out = append(out, Candidate{Pose: IdentityPose(), Score: s, ObjectID: objectID})
	}
	return out
}

func TestCollectionAddSet(t *testing.T) {
	c := NewCollection()
	test.That(t, c.Len(), test.ShouldEqual, 0)
	test.That(t, c.TotalGrasps(), test.ShouldEqual, 0)

	err := c.AddSet(&Set{ObjectID: 7, Candidates: candidates(7, 0.9, 0.8, 0.7)})
	test.That(t, err, test.ShouldBeNil)
	err = c.AddSet(&Set{ObjectID: 3, Candidates: candidates(3, 0.6)})
	test.That(t, err, test.ShouldBeNil)
	err = c.AddSet(&Set{ObjectID: 5})
	test.That(t, err, test.ShouldBeNil)

	// duplicate object ids are a caller defect
	err = c.AddSet(&Set{ObjectID: 7})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDuplicateObject), test.ShouldBeTrue)

	test.That(t, c.Len(), test.ShouldEqual, 3)
	test.That(t, c.TotalGrasps(), test.ShouldEqual, 4)
	test.That(t, c.ObjectIDs(), test.ShouldResemble, []int{7, 3, 5})

	// processed-with-zero-grasps is distinguishable from never-attempted
	s, ok := c.Set(5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.Candidates, test.ShouldBeEmpty)
	_, ok = c.Set(99)
	test.That(t, ok, test.ShouldBeFalse)

	records := c.Records()
	test.That(t, len(records), test.ShouldEqual, 4)
	test.That(t, records[0].ObjectID, test.ShouldEqual, 7)
	test.That(t, records[0].GraspIdx, test.ShouldEqual, 0)
	test.That(t, records[1].GraspIdx, test.ShouldEqual, 1)
	test.That(t, records[2].GraspIdx, test.ShouldEqual, 2)
	test.That(t, records[3].ObjectID, test.ShouldEqual, 3)
	test.That(t, records[3].GraspIdx, test.ShouldEqual, 0)

	test.That(t, c.Validate(), test.ShouldBeNil)
}

func TestCollectionValidate(t *testing.T) {
	c := NewCollection()
	test.That(t, c.Validate(), test.ShouldBeNil)

	err := c.AddSet(&Set{ObjectID: 1, Candidates: candidates(1, 0.5, 0.4)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Validate(), test.ShouldBeNil)

	// corrupt the flattened sequence behind the collection's back
	c.records = append(c.records, Record{ObjectID: 1, Grasp: IdentityPose(), Score: 0.4, GraspIdx: 1})
	err = c.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInconsistentCollection), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate record")

	c.records = c.records[:2]
	c.records[1].GraspIdx = 5
	err = c.Validate()
	test.That(t, err, test.ShouldBeNil)

	c.records = c.records[:1]
	err = c.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInconsistentCollection), test.ShouldBeTrue)
}

func TestCollectionWriteJSON(t *testing.T) {
	c := NewCollection()
	err := c.AddSet(&Set{ObjectID: 2, Candidates: candidates(2, 0.9)})
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, c.WriteJSON(&buf), test.ShouldBeNil)

	var records []Record
	test.That(t, json.Unmarshal(buf.Bytes(), &records), test.ShouldBeNil)
	test.That(t, len(records), test.ShouldEqual, 1)
	test.That(t, records[0].ObjectID, test.ShouldEqual, 2)
	test.That(t, records[0].Score, test.ShouldEqual, 0.9)
	test.That(t, records[0].GraspIdx, test.ShouldEqual, 0)
}

func TestSetBest(t *testing.T) {
	s := &Set{ObjectID: 1}
	_, ok := s.Best()
	test.That(t, ok, test.ShouldBeFalse)

	s.Candidates = candidates(1, 0.9, 0.1)
	best, ok := s.Best()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, best.Score, test.ShouldEqual, 0.9)
}
