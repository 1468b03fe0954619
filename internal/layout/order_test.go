package layout

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitOrder(t *testing.T) {
	chain := NewMatrix(4)
	chain.Connect(0, 1)
	chain.Connect(1, 2)
	chain.Connect(2, 3)

	components := NewMatrix(5)
	components.Connect(3, 4)
	components.Connect(0, 1)
	components.Connect(0, 2)

	star := NewMatrix(4)
	star.Connect(3, 0)
	star.Connect(3, 1)
	star.Connect(3, 2)

	tests := []struct {
		name string
		m    Matrix
		want []int
	}{
		{name: "empty", m: NewMatrix(0), want: []int{}},
		{name: "isolated vertices keep index order", m: NewMatrix(3), want: []int{0, 1, 2}},
		{name: "chain seeds at first max degree", m: chain, want: []int{1, 2, 0, 3}},
		{name: "components visited whole", m: components, want: []int{0, 1, 2, 3, 4}},
		{name: "star starts at hub", m: star, want: []int{3, 0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VisitOrder(tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVisitOrderNeighboursByDegree(t *testing.T) {
	// 0 is the hub; 2 has a second edge so it is enqueued before 1.
	m := NewMatrix(5)
	m.Connect(0, 1)
	m.Connect(0, 2)
	m.Connect(0, 3)
	m.Connect(2, 4)

	got, err := VisitOrder(m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 3, 4}, got)
}

func TestVisitOrderIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 40; n++ {
		m := NewMatrix(n)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				if rng.Intn(5) == 0 {
					m.Connect(i, j)
				}
			}
		}

		order, err := VisitOrder(m)
		require.NoError(t, err)
		require.NoError(t, checkPermutation(order, n))

		sorted := slices.Clone(order)
		slices.Sort(sorted)
		for i, v := range sorted {
			assert.Equal(t, i, v)
		}

		again, err := VisitOrder(m)
		require.NoError(t, err)
		assert.Equal(t, order, again)
	}
}

func TestVisitOrderRejectsRaggedMatrix(t *testing.T) {
	_, err := VisitOrder(Matrix{{false}, {false, false}})
	assert.ErrorIs(t, err, ErrMatrixShape)
}
