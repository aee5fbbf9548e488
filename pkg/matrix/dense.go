package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DenseMatrix is a row-major dense matrix backed by gonum's mat.Dense.
// Zero-sized matrices are allowed; gonum itself rejects them, so they are
// tracked without a backing store.
type DenseMatrix struct {
	rows  int
	cols  int
	dense *mat.Dense
}

// NewDenseMatrix creates a zero rows x cols matrix
func NewDenseMatrix(rows, cols int) *DenseMatrix {
	d := &DenseMatrix{rows: rows, cols: cols}
	if rows > 0 && cols > 0 {
		d.dense = mat.NewDense(rows, cols, nil)
	}
	return d
}

// Rows returns the number of rows
func (d *DenseMatrix) Rows() int { return d.rows }

// Cols returns the number of columns
func (d *DenseMatrix) Cols() int { return d.cols }

// At returns the entry at (row, col)
func (d *DenseMatrix) At(row, col int) float64 { return d.dense.At(row, col) }

// Set sets the entry at (row, col)
func (d *DenseMatrix) Set(row, col int, value float64) { d.dense.Set(row, col, value) }

// String formats the matrix with gonum's formatter, one row per line
func (d *DenseMatrix) String() string {
	if d.dense == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", mat.Formatted(d.dense, mat.Squeeze()))
}
