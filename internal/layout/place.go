package layout

import (
	"math"

	"github.com/pkg/errors"
)

// Cell is a grid coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) distance(row, col int) int {
	return abs(c.Row-row) + abs(c.Col-col)
}

// GridSize returns the side of the square placement grid for n vertices:
// ceil(sqrt(n)) + 1, which always leaves free cells.
func GridSize(n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(n)))) + 1
}

// Place assigns a grid cell to every vertex, indexed by vertex. The first
// vertex of order goes to the centre; each later one goes to the free cell
// nearest (Manhattan distance, row-major on ties) to the rounded centroid of
// its already placed neighbours, or to the centre when none is placed yet.
func Place(order []int, m Matrix) ([]Cell, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	n := len(m)
	if err := checkPermutation(order, n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []Cell{}, nil
	}

	g := newGrid(GridSize(n))
	centre := g.size / 2
	cells := make([]Cell, n)

	for _, v := range order {
		row, col := centre, centre
		var sumRow, sumCol, count int
		for _, placed := range g.occupied() {
			if m[v][placed.vertex] {
				sumRow += placed.cell.Row
				sumCol += placed.cell.Col
				count++
			}
		}
		if count > 0 {
			row = int(math.Round(float64(sumRow) / float64(count)))
			col = int(math.Round(float64(sumCol) / float64(count)))
		}

		cell, ok := g.nearestFree(row, col)
		if !ok {
			return nil, errors.Wrapf(ErrGridExhausted, "no free cell for table %d in a %dx%d grid", v, g.size, g.size)
		}
		g.put(cell, v)
		cells[v] = cell
	}
	return cells, nil
}

type placement struct {
	cell   Cell
	vertex int
}

type grid struct {
	size  int
	cells [][]int
}

func newGrid(size int) *grid {
	g := &grid{size: size, cells: make([][]int, size)}
	for r := range g.cells {
		g.cells[r] = make([]int, size)
		for c := range g.cells[r] {
			g.cells[r][c] = -1
		}
	}
	return g
}

// occupied lists placed vertices in row-major order.
func (g *grid) occupied() []placement {
	var out []placement
	for r, row := range g.cells {
		for c, v := range row {
			if v >= 0 {
				out = append(out, placement{cell: Cell{Row: r, Col: c}, vertex: v})
			}
		}
	}
	return out
}

func (g *grid) nearestFree(row, col int) (Cell, bool) {
	best, found := Cell{}, false
	bestDist := 0
	for r, cells := range g.cells {
		for c, v := range cells {
			if v >= 0 {
				continue
			}
			cell := Cell{Row: r, Col: c}
			if d := cell.distance(row, col); !found || d < bestDist {
				best, bestDist, found = cell, d, true
			}
		}
	}
	return best, found
}

func (g *grid) put(c Cell, v int) {
	g.cells[c.Row][c.Col] = v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
