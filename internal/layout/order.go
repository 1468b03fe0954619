package layout

import (
	"slices"

	"github.com/pkg/errors"
)

// VisitOrder returns the deterministic visiting order of the graph. The
// unvisited vertex of highest degree (lowest index on ties) seeds a
// breadth-first traversal that appends its whole component; neighbours are
// enqueued by descending degree, ties by index. The result is a permutation
// of 0..n-1.
func VisitOrder(m Matrix) ([]int, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	n := len(m)
	degrees := m.Degrees()
	visited := make([]bool, n)
	order := make([]int, 0, n)

	for len(order) < n {
		seed := -1
		for i := 0; i < n; i++ {
			if !visited[i] && (seed < 0 || degrees[i] > degrees[seed]) {
				seed = i
			}
		}
		visited[seed] = true
		order = append(order, seed)

		queue := []int{seed}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]

			var neighbours []int
			for u, connected := range m[v] {
				if connected && !visited[u] {
					neighbours = append(neighbours, u)
				}
			}
			slices.SortStableFunc(neighbours, func(a, b int) int { return degrees[b] - degrees[a] })
			for _, u := range neighbours {
				visited[u] = true
				order = append(order, u)
				queue = append(queue, u)
			}
		}
	}
	return order, nil
}

// checkPermutation verifies order names every vertex of an n-vertex graph
// exactly once.
func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return errors.Wrapf(ErrIndexOutOfRange, "visiting order has %d entries for %d tables", len(order), n)
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return errors.Wrapf(ErrIndexOutOfRange, "visiting order entry %d is invalid for %d tables", v, n)
		}
		seen[v] = true
	}
	return nil
}
