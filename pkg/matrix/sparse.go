package matrix

import (
	"fmt"
	"sort"
)

// SparseMatrix stores the non-zero entries of each row as parallel slices of
// ascending column indices and values.
type SparseMatrix struct {
	numRows int
	numCols int
	cols    [][]int
	values  [][]float64
}

// NewSparseMatrix creates an empty rows x cols matrix.
// initialCapacity is the expected number of non-zero entries per row.
func NewSparseMatrix(rows, cols, initialCapacity int) *SparseMatrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: invalid dimensions %dx%d", rows, cols))
	}
	if initialCapacity < 0 {
		initialCapacity = 0
	}

	m := &SparseMatrix{
		numRows: rows,
		numCols: cols,
		cols:    make([][]int, rows),
		values:  make([][]float64, rows),
	}
	for i := 0; i < rows; i++ {
		m.cols[i] = make([]int, 0, initialCapacity)
		m.values[i] = make([]float64, 0, initialCapacity)
	}
	return m
}

// Rows returns the number of rows
func (m *SparseMatrix) Rows() int { return m.numRows }

// Cols returns the number of columns
func (m *SparseMatrix) Cols() int { return m.numCols }

// IsSquare reports whether the matrix has as many rows as columns
func (m *SparseMatrix) IsSquare() bool { return m.numRows == m.numCols }

func (m *SparseMatrix) checkBounds(row, col int) {
	if row < 0 || row >= m.numRows || col < 0 || col >= m.numCols {
		panic(fmt.Sprintf("matrix: index (%d, %d) out of range for %dx%d matrix", row, col, m.numRows, m.numCols))
	}
}

// find returns the position of col within the row and whether it is present
func (m *SparseMatrix) find(row, col int) (int, bool) {
	cols := m.cols[row]
	pos := sort.SearchInts(cols, col)
	return pos, pos < len(cols) && cols[pos] == col
}

// At returns the entry at (row, col)
func (m *SparseMatrix) At(row, col int) float64 {
	m.checkBounds(row, col)
	pos, ok := m.find(row, col)
	if !ok {
		return 0
	}
	return m.values[row][pos]
}

// Set sets the entry at (row, col). Setting zero removes the entry.
func (m *SparseMatrix) Set(row, col int, value float64) {
	m.checkBounds(row, col)
	pos, ok := m.find(row, col)
	switch {
	case ok && value == 0:
		m.cols[row] = append(m.cols[row][:pos], m.cols[row][pos+1:]...)
		m.values[row] = append(m.values[row][:pos], m.values[row][pos+1:]...)
	case ok:
		m.values[row][pos] = value
	case value != 0:
		m.cols[row] = append(m.cols[row], 0)
		m.values[row] = append(m.values[row], 0)
		copy(m.cols[row][pos+1:], m.cols[row][pos:])
		copy(m.values[row][pos+1:], m.values[row][pos:])
		m.cols[row][pos] = col
		m.values[row][pos] = value
	}
}

// Inc adds delta to the entry at (row, col)
func (m *SparseMatrix) Inc(row, col int, delta float64) {
	m.Set(row, col, m.At(row, col)+delta)
}

// RowSize returns the number of non-zero entries in a row
func (m *SparseMatrix) RowSize(row int) int {
	return len(m.cols[row])
}

// NonZeroCount returns the number of stored entries
func (m *SparseMatrix) NonZeroCount() int {
	count := 0
	for _, cols := range m.cols {
		count += len(cols)
	}
	return count
}

// ForEachInRow calls fn for every non-zero entry of the row in ascending column order
func (m *SparseMatrix) ForEachInRow(row int, fn func(col int, value float64)) {
	cols := m.cols[row]
	values := m.values[row]
	for i, col := range cols {
		fn(col, values[i])
	}
}

// ForEachNonZero calls fn for every non-zero entry in row-major order
func (m *SparseMatrix) ForEachNonZero(fn func(row, col int, value float64)) {
	for row := 0; row < m.numRows; row++ {
		cols := m.cols[row]
		values := m.values[row]
		for i, col := range cols {
			fn(row, col, values[i])
		}
	}
}

// RowSums returns a vector holding the sum of every row
func (m *SparseMatrix) RowSums() *Vector {
	sums := NewVector(m.numRows)
	for row := 0; row < m.numRows; row++ {
		sum := 0.0
		for _, value := range m.values[row] {
			sum += value
		}
		sums.Set(row, sum)
	}
	return sums
}

// NormalizeRows scales each row so it sums to one. Empty rows stay empty.
func (m *SparseMatrix) NormalizeRows() {
	sums := m.RowSums()
	for row := 0; row < m.numRows; row++ {
		sum := sums.At(row)
		if sum == 0 {
			continue
		}
		for i := range m.values[row] {
			m.values[row][i] /= sum
		}
	}
}

// Clone returns a deep copy of the matrix
func (m *SparseMatrix) Clone() *SparseMatrix {
	c := NewSparseMatrix(m.numRows, m.numCols, 0)
	for row := 0; row < m.numRows; row++ {
		c.cols[row] = append(c.cols[row], m.cols[row]...)
		c.values[row] = append(c.values[row], m.values[row]...)
	}
	return c
}

// Transpose returns a new matrix with rows and columns swapped
func (m *SparseMatrix) Transpose() *SparseMatrix {
	t := NewSparseMatrix(m.numCols, m.numRows, 0)
	// row-major traversal appends ascending row indices to every target row
	m.ForEachNonZero(func(row, col int, value float64) {
		t.cols[col] = append(t.cols[col], row)
		t.values[col] = append(t.values[col], value)
	})
	return t
}

// RemoveNegatives drops every negative entry
func (m *SparseMatrix) RemoveNegatives() {
	for row := 0; row < m.numRows; row++ {
		cols := m.cols[row][:0]
		values := m.values[row][:0]
		for i, value := range m.values[row] {
			if value > 0 {
				cols = append(cols, m.cols[row][i])
				values = append(values, value)
			}
		}
		m.cols[row] = cols
		m.values[row] = values
	}
}

// MultiplyVector computes m * v
func (m *SparseMatrix) MultiplyVector(v *Vector) (*Vector, error) {
	if v.Size() != m.numCols {
		return nil, fmt.Errorf("dimension mismatch: %dx%d matrix times vector of size %d", m.numRows, m.numCols, v.Size())
	}
	result := NewVector(m.numRows)
	for row := 0; row < m.numRows; row++ {
		sum := 0.0
		for i, col := range m.cols[row] {
			sum += m.values[row][i] * v.At(col)
		}
		result.Set(row, sum)
	}
	return result, nil
}

// ToDense converts the matrix into a dense representation
func (m *SparseMatrix) ToDense() *DenseMatrix {
	d := NewDenseMatrix(m.numRows, m.numCols)
	m.ForEachNonZero(func(row, col int, value float64) {
		d.Set(row, col, value)
	})
	return d
}

// String renders the non-zero entries, mostly for debugging
func (m *SparseMatrix) String() string {
	s := fmt.Sprintf("SparseMatrix(%dx%d)", m.numRows, m.numCols)
	m.ForEachNonZero(func(row, col int, value float64) {
		s += fmt.Sprintf(" [%d,%d]=%g", row, col, value)
	})
	return s
}
