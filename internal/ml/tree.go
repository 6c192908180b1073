package ml

import (
	"fmt"
	"math"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

const leafFeature = -1

// TreeNode is one node of a flattened decision tree. Leaves carry
// Feature == -1 and the fraction of successful training rows that reached
// them. Internal nodes send x to Left when x[Feature] <= Threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node terminates a path.
func (n TreeNode) IsLeaf() bool {
	return n.Feature == leafFeature
}

// Tree is a binary classification tree stored in pre-order. Children always
// follow their parent, so every walk from the root terminates.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict returns the success fraction of the leaf x falls into.
func (t *Tree) Predict(x schema.FeatureVector) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Validate checks that the tree is structurally sound: every child index
// points forward and inside the slice, features are in range and leaf
// values are probabilities.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			if math.IsNaN(n.Value) || n.Value < 0 || n.Value > 1 {
				return fmt.Errorf("node %d: leaf value %v outside [0,1]", i, n.Value)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= schema.NumFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if math.IsNaN(n.Threshold) || math.IsInf(n.Threshold, 0) {
			return fmt.Errorf("node %d: threshold is not finite", i)
		}
		for _, c := range []int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d: child %d out of order", i, c)
			}
		}
	}
	return nil
}

// Forest is a bagged ensemble of trees.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// Probability is the mean leaf fraction over all trees.
func (f *Forest) Probability(x schema.FeatureVector) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Validate checks every tree.
func (f *Forest) Validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].Validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
