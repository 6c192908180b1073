package dataset

import (
	"github.com/krnkaavya03/StuPred/internal/schema"
)

// FeatureStats summarizes one column.
type FeatureStats struct {
	Name string  `json:"name"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
}

// Summary is the class distribution and per-feature spread of a dataset.
type Summary struct {
	Rows        int            `json:"rows"`
	Successes   int            `json:"successes"`
	Failures    int            `json:"failures"`
	SuccessRate float64        `json:"success_rate"`
	Features    []FeatureStats `json:"features"`
}

// Summarize computes a Summary. An empty dataset yields zero counts and
// zero-valued feature stats.
func Summarize(records []schema.StudentRecord) Summary {
	s := Summary{
		Rows:     len(records),
		Features: make([]FeatureStats, schema.NumFeatures),
	}
	for i, f := range schema.Features {
		s.Features[i].Name = f.String()
	}
	if len(records) == 0 {
		return s
	}

	var sums [schema.NumFeatures]int
	for n, r := range records {
		if r.Success == 1 {
			s.Successes++
		}
		for i, v := range r.Values() {
			sums[i] += v
			fs := &s.Features[i]
			if n == 0 || v < fs.Min {
				fs.Min = v
			}
			if n == 0 || v > fs.Max {
				fs.Max = v
			}
		}
	}

	s.Failures = s.Rows - s.Successes
	s.SuccessRate = float64(s.Successes) / float64(s.Rows)
	for i := range s.Features {
		s.Features[i].Mean = float64(sums[i]) / float64(s.Rows)
	}
	return s
}
