package ml

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// StratifiedSplit partitions records into train and test sets so that each
// set keeps the overall class balance. For every class, round(count *
// testFraction) rows go to test, clamped so that both partitions receive at
// least one row of the class. Row order inside each class is shuffled with
// rng first.
func StratifiedSplit(records []schema.StudentRecord, testFraction float64, rng *rand.Rand) (train, test []schema.StudentRecord, err error) {
	if testFraction <= 0 || testFraction >= 1 || math.IsNaN(testFraction) {
		return nil, nil, fmt.Errorf("%w: test fraction %v not in (0,1)", ErrInvalidConfig, testFraction)
	}

	var byClass [2][]schema.StudentRecord
	for _, r := range records {
		if r.Success != 0 && r.Success != 1 {
			return nil, nil, fmt.Errorf("%w: record %s has label %d", ErrInsufficientData, r.StudentID, r.Success)
		}
		byClass[r.Success] = append(byClass[r.Success], r)
	}

	for class, rows := range byClass {
		if len(rows) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d rows, need at least 2", ErrInsufficientData, class, len(rows))
		}
	}

	train = make([]schema.StudentRecord, 0, len(records))
	test = make([]schema.StudentRecord, 0, len(records))
	for _, rows := range byClass {
		shuffled := make([]schema.StudentRecord, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nTest := int(math.Round(float64(len(shuffled)) * testFraction))
		nTest = max(1, min(nTest, len(shuffled)-1))

		test = append(test, shuffled[:nTest]...)
		train = append(train, shuffled[nTest:]...)
	}

	return train, test, nil
}
