package schema

import (
	"encoding/json"
	"fmt"
)

// Column names of the dataset file that are not features.
const (
	IDColumn    = "student_id"
	LabelColumn = "success"
)

// StudentRecord is one synthetic or real observation.
type StudentRecord struct {
	StudentID             string `json:"student_id"`
	Attendance            int    `json:"attendance"`
	StudyHours            int    `json:"study_hours"`
	AssignmentsDone       int    `json:"assignments_done"`
	PreviousGrade         int    `json:"previous_grade"`
	MidtermScore          int    `json:"midterm_score"`
	Participations        int    `json:"participations"`
	ActiveExtracurricular int    `json:"active_extracurricular"`
	Success               int    `json:"success"`
}

// NewRecord builds a record from values in schema order and derives its
// label with the ground-truth rule.
func NewRecord(id string, values [NumFeatures]int) StudentRecord {
	r := StudentRecord{StudentID: id}
	r.SetValues(values)
	r.Success = Label(values)
	return r
}

// Values returns the seven feature values in schema order.
func (r StudentRecord) Values() [NumFeatures]int {
	return [NumFeatures]int{
		r.Attendance,
		r.StudyHours,
		r.AssignmentsDone,
		r.PreviousGrade,
		r.MidtermScore,
		r.Participations,
		r.ActiveExtracurricular,
	}
}

// SetValues assigns the seven features from schema order. The label is left
// untouched.
func (r *StudentRecord) SetValues(v [NumFeatures]int) {
	r.Attendance = v[Attendance]
	r.StudyHours = v[StudyHours]
	r.AssignmentsDone = v[AssignmentsDone]
	r.PreviousGrade = v[PreviousGrade]
	r.MidtermScore = v[MidtermScore]
	r.Participations = v[Participations]
	r.ActiveExtracurricular = v[ActiveExtracurricular]
}

// Features returns the record's FeatureVector.
func (r StudentRecord) Features() FeatureVector {
	var fv FeatureVector
	for i, v := range r.Values() {
		fv[i] = float64(v)
	}
	return fv
}

// FeatureVector holds the seven feature values in schema order.
type FeatureVector [NumFeatures]float64

// NewFeatureVector builds a vector from integer values in schema order.
func NewFeatureVector(values [NumFeatures]int) FeatureVector {
	var fv FeatureVector
	for i, v := range values {
		fv[i] = float64(v)
	}
	return fv
}

// Get returns the value of a single feature.
func (v FeatureVector) Get(f Feature) float64 {
	return v[f]
}

// Map returns the vector keyed by feature name.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range featureNames {
		m[name] = v[i]
	}
	return m
}

// MarshalJSON encodes the vector in its named form.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON accepts the named object form or the ordered array form and
// applies the same completeness checks as DecodeJSON.
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	fv, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*v = fv
	return nil
}

func (v FeatureVector) String() string {
	return fmt.Sprintf("attendance=%g study_hours=%g assignments_done=%g previous_grade=%g midterm_score=%g participations=%g active_extracurricular=%g",
		v[0], v[1], v[2], v[3], v[4], v[5], v[6])
}
