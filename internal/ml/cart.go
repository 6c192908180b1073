package ml

import (
	"math/rand"
	"sort"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// treeBuilder grows one CART tree on gini impurity. At each node it visits
// features in random order and evaluates at most maxFeatures of those that
// are not constant on the node, as a random forest does.
type treeBuilder struct {
	x               []schema.FeatureVector
	y               []int
	rng             *rand.Rand
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int

	nodes      []TreeNode
	importance [schema.NumFeatures]float64
}

type split struct {
	feature   int
	threshold float64
	impurity  float64 // weighted child impurity, n_left*gini_left + n_right*gini_right
	found     bool
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	nodes := make([]TreeNode, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: leafFeature})

	n := len(rows)
	pos := 0
	for _, r := range rows {
		pos += b.y[r]
	}
	b.nodes[idx].Value = float64(pos) / float64(n)

	if pos == 0 || pos == n || n < b.minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return idx
	}

	best := b.bestSplit(rows, pos)
	if !best.found {
		return idx
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, r := range rows {
		if b.x[r][best.feature] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	b.importance[best.feature] += giniMass(pos, n) - best.impurity

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     r,
	}
	return idx
}

func (b *treeBuilder) bestSplit(rows []int, pos int) split {
	best := split{}
	sorted := make([]int, len(rows))
	visited := 0

	for _, f := range b.rng.Perm(schema.NumFeatures) {
		if visited >= b.maxFeatures {
			break
		}

		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		n := len(sorted)
		leftPos := 0
		for i := 1; i < n; i++ {
			leftPos += b.y[sorted[i-1]]
			lo, hi := b.x[sorted[i-1]][f], b.x[sorted[i]][f]
			if lo == hi {
				continue
			}
			impurity := giniMass(leftPos, i) + giniMass(pos-leftPos, n-i)
			if !best.found || impurity < best.impurity {
				best = split{
					feature:   f,
					threshold: lo + (hi-lo)/2,
					impurity:  impurity,
					found:     true,
				}
			}
		}
	}
	return best
}

// giniMass is n times the gini impurity of a node with pos positives out of n.
func giniMass(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * float64(n) * p * (1 - p)
}
