package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

func TestTree_Predict(t *testing.T) {
	// study_hours <= 30 -> 0.2, otherwise attendance <= 70 -> 0.6 else 1.0
	tree := Tree{Nodes: []TreeNode{
		{Feature: int(schema.StudyHours), Threshold: 30, Left: 1, Right: 2},
		{Feature: leafFeature, Value: 0.2},
		{Feature: int(schema.Attendance), Threshold: 70, Left: 3, Right: 4},
		{Feature: leafFeature, Value: 0.6},
		{Feature: leafFeature, Value: 1},
	}}
	require.NoError(t, tree.Validate())

	assert.Equal(t, 0.2, tree.Predict(schema.FeatureVector{100, 30}))
	assert.Equal(t, 0.6, tree.Predict(schema.FeatureVector{70, 31}))
	assert.Equal(t, 1.0, tree.Predict(schema.FeatureVector{71, 31}))
	assert.Equal(t, 2, tree.Depth())
}

func TestTree_Validate(t *testing.T) {
	tests := []struct {
		name  string
		nodes []TreeNode
	}{
		{"empty", nil},
		{"self loop", []TreeNode{{Feature: 0, Left: 0, Right: 1}, {Feature: leafFeature}}},
		{"child out of range", []TreeNode{{Feature: 0, Left: 1, Right: 5}, {Feature: leafFeature}}},
		{"feature out of range", []TreeNode{{Feature: 7, Left: 1, Right: 2}, {Feature: leafFeature}, {Feature: leafFeature}}},
		{"leaf above one", []TreeNode{{Feature: leafFeature, Value: 1.5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := Tree{Nodes: tc.nodes}
			assert.Error(t, tree.Validate())
		})
	}

	assert.Error(t, (&Forest{}).Validate())
}

func TestTreeBuilder_SeparableData(t *testing.T) {
	var x []schema.FeatureVector
	var y []int
	for i := 0; i < 40; i++ {
		x = append(x, schema.FeatureVector{0, float64(i)})
		if i >= 20 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	b := &treeBuilder{
		x:               x,
		y:               y,
		rng:             rand.New(rand.NewSource(1)),
		minSamplesSplit: 2,
		maxFeatures:     1,
	}
	rows := make([]int, len(x))
	for i := range rows {
		rows[i] = i
	}
	tree := b.build(rows)
	require.NoError(t, tree.Validate())

	// Only study_hours varies, so it is the only usable split even with a
	// single candidate feature per node.
	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, int(schema.StudyHours), tree.Nodes[0].Feature)
	assert.Equal(t, 19.5, tree.Nodes[0].Threshold)
	assert.Equal(t, 0.0, tree.Predict(schema.FeatureVector{0, 10}))
	assert.Equal(t, 1.0, tree.Predict(schema.FeatureVector{0, 25}))
	assert.Greater(t, b.importance[schema.StudyHours], 0.0)
}

func TestTreeBuilder_ConstantFeaturesMakeLeaf(t *testing.T) {
	x := []schema.FeatureVector{{1, 1}, {1, 1}, {1, 1}}
	y := []int{0, 1, 1}
	b := &treeBuilder{x: x, y: y, rng: rand.New(rand.NewSource(1)), minSamplesSplit: 2, maxFeatures: 2}

	tree := b.build([]int{0, 1, 2})
	require.Len(t, tree.Nodes, 1)
	assert.InDelta(t, 2.0/3.0, tree.Nodes[0].Value, 1e-12)
}

func TestGiniMass(t *testing.T) {
	assert.Equal(t, 0.0, giniMass(0, 0))
	assert.Equal(t, 0.0, giniMass(0, 10))
	assert.Equal(t, 0.0, giniMass(10, 10))
	assert.InDelta(t, 5.0, giniMass(5, 10), 1e-12)
}
