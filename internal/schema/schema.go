// Package schema defines the student feature schema shared by the dataset
// synthesizer, the trainer and the inference service.
//
// The order of FeatureNames is the column order of the dataset file, the
// column order the forest is trained on and the order a model artifact
// declares. Every other package derives feature positions from here.
package schema

import "fmt"

// Feature identifies one of the seven predictive attributes by its position
// in the fixed schema order.
type Feature int

const (
	Attendance Feature = iota
	StudyHours
	AssignmentsDone
	PreviousGrade
	MidtermScore
	Participations
	ActiveExtracurricular
)

// NumFeatures is the length of every FeatureVector.
const NumFeatures = 7

var featureNames = [NumFeatures]string{
	"attendance",
	"study_hours",
	"assignments_done",
	"previous_grade",
	"midterm_score",
	"participations",
	"active_extracurricular",
}

// Features lists every feature in schema order.
var Features = [NumFeatures]Feature{
	Attendance,
	StudyHours,
	AssignmentsDone,
	PreviousGrade,
	MidtermScore,
	Participations,
	ActiveExtracurricular,
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// FeatureNames returns a fresh copy of the feature names in schema order.
func FeatureNames() []string {
	names := make([]string, NumFeatures)
	copy(names, featureNames[:])
	return names
}

// FeatureByName resolves a column name to its Feature.
func FeatureByName(name string) (Feature, bool) {
	for i, n := range featureNames {
		if n == name {
			return Feature(i), true
		}
	}
	return 0, false
}

// MatchesNames reports whether names is exactly the schema order.
func MatchesNames(names []string) bool {
	if len(names) != NumFeatures {
		return false
	}
	for i, n := range names {
		if n != featureNames[i] {
			return false
		}
	}
	return true
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= float64(r.Min) && v <= float64(r.Max)
}

// GenerationRanges are the uniform sampling ranges of the synthesizer.
var GenerationRanges = [NumFeatures]Range{
	{Min: 40, Max: 100},
	{Min: 0, Max: 70},
	{Min: 0, Max: 10},
	{Min: 35, Max: 100},
	{Min: 35, Max: 100},
	{Min: 0, Max: 10},
	{Min: 0, Max: 5},
}

// UIRanges are the input limits of the presentation panel. They differ from
// GenerationRanges on purpose: the two were authored independently and the
// mismatch is kept until product decides which one wins.
var UIRanges = [NumFeatures]Range{
	{Min: 50, Max: 100},
	{Min: 10, Max: 70},
	{Min: 5, Max: 15},
	{Min: 50, Max: 100},
	{Min: 50, Max: 100},
	{Min: 1, Max: 10},
	{Min: 1, Max: 5},
}

// UIDefaults are the initial slider positions of the presentation panel.
var UIDefaults = [NumFeatures]int{75, 30, 10, 70, 70, 5, 2}

// FeatureSpec describes one feature for presentation clients.
type FeatureSpec struct {
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Generation Range  `json:"generation_range"`
	UI         Range  `json:"ui_range"`
	UIDefault  int    `json:"ui_default"`
}

// Description is the schema as served to presentation clients.
type Description struct {
	Features []FeatureSpec `json:"features"`
	Label    string        `json:"label"`
}

// Describe returns the schema in a form a UI can build its inputs from.
func Describe() Description {
	specs := make([]FeatureSpec, NumFeatures)
	for i, f := range Features {
		specs[i] = FeatureSpec{
			Name:       f.String(),
			Position:   i,
			Generation: GenerationRanges[i],
			UI:         UIRanges[i],
			UIDefault:  UIDefaults[i],
		}
	}
	return Description{Features: specs, Label: LabelColumn}
}
