package schema

// SuccessThreshold is the weighted-sum cut-off of the ground-truth rule.
const SuccessThreshold = 100.0

// Weights of the ground-truth rule in schema order.
var Weights = [NumFeatures]float64{0.25, 1.5, 1.2, 0.25, 0.2, 2, 1.5}

// The rule is evaluated on weights scaled by 20 so that every coefficient is
// an integer and the comparison with the threshold is exact.
const ruleScale = 20

var scaledWeights = [NumFeatures]int{5, 30, 24, 5, 4, 40, 30}

// WeightedScore is the ground-truth weighted sum of a record's features.
func WeightedScore(values [NumFeatures]int) float64 {
	return float64(scaledScore(values)) / ruleScale
}

// Label applies the ground-truth rule: 1 when the weighted sum reaches the
// threshold, 0 otherwise. Only the synthesizer labels data with it; models
// learn the rule from examples.
func Label(values [NumFeatures]int) int {
	if scaledScore(values) >= int(SuccessThreshold)*ruleScale {
		return 1
	}
	return 0
}

func scaledScore(values [NumFeatures]int) int {
	total := 0
	for i, v := range values {
		total += scaledWeights[i] * v
	}
	return total
}
