package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vector is a dense column vector of float64 values.
//
// Reductions (Sum, L1 norms, normalization) are plain sequential loops over
// ascending indices so the same input always produces the same bits on every
// platform.
type Vector struct {
	values []float64
}

// NewVector creates a zero vector with the given size
func NewVector(size int) *Vector {
	if size < 0 {
		panic(fmt.Sprintf("matrix: negative vector size %d", size))
	}
	return &Vector{values: make([]float64, size)}
}

// NewVectorFrom creates a vector holding a copy of values
func NewVectorFrom(values []float64) *Vector {
	v := NewVector(len(values))
	copy(v.values, values)
	return v
}

// Size returns the number of elements
func (v *Vector) Size() int { return len(v.values) }

// At returns the element at index i
func (v *Vector) At(i int) float64 { return v.values[i] }

// Set sets the element at index i
func (v *Vector) Set(i int, value float64) { v.values[i] = value }

// Inc adds delta to the element at index i
func (v *Vector) Inc(i int, delta float64) { v.values[i] += delta }

// Raw returns a copy of the underlying values
func (v *Vector) Raw() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Clone creates a deep copy of the vector
func (v *Vector) Clone() *Vector {
	return NewVectorFrom(v.values)
}

// Sum returns the sum of all elements, accumulated in index order
func (v *Vector) Sum() float64 {
	sum := 0.0
	for _, value := range v.values {
		sum += value
	}
	return sum
}

// AbsSum returns the L1 norm of the vector
func (v *Vector) AbsSum() float64 {
	sum := 0.0
	for _, value := range v.values {
		sum += math.Abs(value)
	}
	return sum
}

// Max returns the largest element; zero for an empty vector
func (v *Vector) Max() float64 {
	if len(v.values) == 0 {
		return 0
	}
	return floats.Max(v.values)
}

// Scale multiplies every element by factor
func (v *Vector) Scale(factor float64) {
	floats.Scale(factor, v.values)
}

// Add adds other to v elementwise
func (v *Vector) Add(other *Vector) error {
	if other.Size() != v.Size() {
		return fmt.Errorf("vector size mismatch: %d vs %d", v.Size(), other.Size())
	}
	floats.Add(v.values, other.values)
	return nil
}

// Normalize scales the vector so its L1 norm is one.
// Vectors with a zero norm are left untouched and reported as an error.
func (v *Vector) Normalize() error {
	sum := v.AbsSum()
	if sum == 0 {
		return fmt.Errorf("cannot normalize zero vector of size %d", v.Size())
	}
	for i := range v.values {
		v.values[i] /= sum
	}
	return nil
}

// NormalizeByMax divides every element by the largest element.
// A vector whose maximum is not positive becomes all zeros.
func (v *Vector) NormalizeByMax() {
	max := v.Max()
	if max <= 0 {
		for i := range v.values {
			v.values[i] = 0
		}
		return
	}
	for i := range v.values {
		v.values[i] /= max
	}
}

// L1Distance returns sum(|v[i] - other[i]|)
func (v *Vector) L1Distance(other *Vector) (float64, error) {
	if other.Size() != v.Size() {
		return 0, fmt.Errorf("vector size mismatch: %d vs %d", v.Size(), other.Size())
	}
	distance := 0.0
	for i, value := range v.values {
		distance += math.Abs(value - other.values[i])
	}
	return distance, nil
}

// IsFinite reports whether every element is neither NaN nor infinite
func (v *Vector) IsFinite() bool {
	for _, value := range v.values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return true
}
