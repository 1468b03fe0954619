package layout

import (
	"strings"

	"github.com/pkg/errors"

	"sqlerd/internal/core"
)

var (
	// ErrIndexOutOfRange reports adjacency data naming a table index outside
	// the table list.
	ErrIndexOutOfRange = errors.New("table index out of range")
	// ErrGridExhausted reports a vertex for which the placement grid had no
	// free cell left.
	ErrGridExhausted = errors.New("placement grid exhausted")
	// ErrMatrixShape reports an adjacency matrix that is not square.
	ErrMatrixShape = errors.New("adjacency matrix is not square")
)

// Matrix is a symmetric boolean adjacency matrix over table indices.
type Matrix [][]bool

// NewMatrix returns an n×n matrix with no edges.
func NewMatrix(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]bool, n)
	}
	return m
}

// Adjacency derives the undirected relationship graph of a schema: for every
// foreign key both (referrer, referenced) and (referenced, referrer) are set.
// A self reference sets the diagonal.
func Adjacency(s *core.Schema) (Matrix, error) {
	index := make(map[string]int, s.Len())
	for i, t := range s.Tables {
		index[strings.ToLower(t.Name)] = i
	}
	m := NewMatrix(s.Len())
	for i, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			j, ok := index[strings.ToLower(fk.References.Table)]
			if !ok {
				return nil, errors.Wrapf(ErrIndexOutOfRange, "foreign key %s.%s references unknown table %q",
					t.Name, fk.ConstraintName, fk.References.Table)
			}
			m.Connect(i, j)
		}
	}
	return m, nil
}

// Connect marks i and j adjacent in both directions.
func (m Matrix) Connect(i, j int) {
	m[i][j] = true
	m[j][i] = true
}

// Validate checks the matrix is square.
func (m Matrix) Validate() error {
	for i, row := range m {
		if len(row) != len(m) {
			return errors.Wrapf(ErrMatrixShape, "row %d has %d entries, want %d", i, len(row), len(m))
		}
	}
	return nil
}

// Degrees returns the row sums of the matrix.
func (m Matrix) Degrees() []int {
	degrees := make([]int, len(m))
	for i, row := range m {
		for _, connected := range row {
			if connected {
				degrees[i]++
			}
		}
	}
	return degrees
}
