package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a thin row-major wrapper over mat.Dense that can be frozen once
// computed and shared read-only between workers.
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// NewIdentity returns the N x N identity.
func NewIdentity(N int) (R Matrix) {
	R = NewMatrix(N, N)
	data := R.Data()
	for i := 0; i < N; i++ {
		data[i+N*i] = 1
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }
func (m Matrix) IsReadOnly() bool          { return m.readOnly }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, m.Data())
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	R = NewMatrix(nc, nr)
	dataR := R.Data()
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			dataR[i+nr*j] = data[j+nc*i]
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return R
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	floats.Scale(a, m.Data())
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	floats.Add(m.Data(), A.Data())
	return m
}

// FrobeniusDot is sum_ij m_ij * A_ij.
func (m Matrix) FrobeniusDot(A Matrix) float64 {
	return floats.Dot(m.Data(), A.Data())
}

func (m Matrix) Trace() (tr float64) {
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	for i := 0; i < nr && i < nc; i++ {
		tr += data[i+nc*i]
	}
	return
}

func (m Matrix) MaxAbs() (max float64) {
	for _, val := range m.Data() {
		if a := math.Abs(val); a > max {
			max = a
		}
	}
	return
}

// IsOrthogonal reports whether m^T m is within tol of the identity.
func (m Matrix) IsOrthogonal(tol float64) bool {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		return false
	}
	P := m.Transpose().Mul(m)
	P.Add(NewIdentity(nr).Scale(-1))
	return P.MaxAbs() <= tol
}

func (m Matrix) String() string {
	return fmt.Sprintf("%s =\n%v\n", m.name, mat.Formatted(m.M, mat.Squeeze()))
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
