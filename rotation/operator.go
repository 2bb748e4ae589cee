// Package rotation builds the real spherical harmonic rotation matrices G^l
// of a rotation given as a unit quaternion. With R the rotation of q,
//
//	Y_lm(R u) = sum_m' G^l_{m m'} Y_lm'(u)
//
// and the coefficients of the rotated function f(R^-1 u) are G^l f_l.
package rotation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/types"
)

// NormTol is how far from unit norm a quaternion may be and still be
// accepted; accepted inputs are normalized.
const NormTol = 1.e-6

// Normalize applies the unit norm policy.
func Normalize(q quat.Number) (quat.Number, error) {
	nrm := quat.Abs(q)
	if math.IsNaN(nrm) || math.Abs(nrm-1) > NormTol {
		return quat.Number{}, types.NewConfigurationError(
			"rotation quaternion %v has norm %g, want 1 within %g", q, nrm, NormTol)
	}
	return quat.Scale(1/nrm, q), nil
}

// Operator holds G^0 ... G^LMax for one rotation.
type Operator struct {
	Q      quat.Number // normalized
	LMax   int
	blocks []*mat.Dense
}

func NewOperator(q quat.Number, lMax int) (op *Operator, err error) {
	if lMax < 0 {
		err = types.NewIndexError("lMax", lMax, 0, math.MaxInt32)
		return
	}
	if q, err = Normalize(q); err != nil {
		return
	}
	op = &Operator{
		Q:      q,
		LMax:   lMax,
		blocks: make([]*mat.Dense, lMax+1),
	}
	alpha, beta, gamma := EulerZYZ(q)
	for l := 0; l <= lMax; l++ {
		op.blocks[l] = realBlock(l, alpha, beta, gamma)
	}
	return
}

// Identity is the operator of the identity rotation.
func Identity(lMax int) *Operator {
	op, err := NewOperator(quat.Number{Real: 1}, lMax)
	if err != nil {
		panic(err)
	}
	return op
}

// realBlock is Re(C W C^H); the imaginary part vanishes for a real basis.
func realBlock(l int, alpha, beta, gamma float64) (G *mat.Dense) {
	var (
		w  = 2*l + 1
		W  = make([]complex128, w*w)
		C  = make([]complex128, w*w)
		CW = make([]complex128, w*w)
	)
	wignerD(l, alpha, beta, gamma, W)
	realBasis(l, C)
	for i := 0; i < w; i++ {
		for j := 0; j < w; j++ {
			var sum complex128
			for k := 0; k < w; k++ {
				if C[i*w+k] != 0 {
					sum += C[i*w+k] * W[k*w+j]
				}
			}
			CW[i*w+j] = sum
		}
	}
	G = mat.NewDense(w, w, nil)
	for i := 0; i < w; i++ {
		for j := 0; j < w; j++ {
			var sum complex128
			for k := 0; k < w; k++ {
				if c := C[j*w+k]; c != 0 {
					sum += CW[i*w+k] * complex(real(c), -imag(c))
				}
			}
			G.Set(i, j, real(sum))
		}
	}
	return
}

// G returns the (2l+1)x(2l+1) block for degree l, rows and columns indexed
// by m+l. The block is shared and must not be modified.
func (op *Operator) G(l int) (*mat.Dense, error) {
	if l < 0 || l > op.LMax {
		return nil, types.NewIndexError("l", l, 0, op.LMax)
	}
	return op.blocks[l], nil
}

// Apply writes G^l in into out; both have length 2l+1.
func (op *Operator) Apply(l int, in, out []float64) error {
	G, err := op.G(l)
	if err != nil {
		return err
	}
	if len(in) != 2*l+1 || len(out) != 2*l+1 {
		return types.NewConfigurationError("degree %d rotation needs vectors of length %d, have %d and %d",
			l, 2*l+1, len(in), len(out))
	}
	dst := mat.NewVecDense(len(out), out)
	dst.MulVec(G, mat.NewVecDense(len(in), in))
	return nil
}

// RotateF returns the coefficients of u -> f(R^-1 u).
func (op *Operator) RotateF(pf *projection.ProjectedF) (*projection.ProjectedF, error) {
	if pf.LMax > op.LMax {
		return nil, types.NewConfigurationError("rotation built to lMax %d cannot rotate lMax %d coefficients",
			op.LMax, pf.LMax)
	}
	var (
		src = pf.Coefficients()
		dst = make([]float64, len(src))
	)
	for n := 0; n < pf.NMax(); n++ {
		for l := 0; l <= pf.LMax; l++ {
			off := types.NLMOffset(n, l, -l, pf.LMax)
			if err := op.Apply(l, src[off:off+2*l+1], dst[off:off+2*l+1]); err != nil {
				return nil, err
			}
		}
	}
	return projection.NewProjectedF(pf.Basis, pf.LMax, dst, pf.Converged)
}

func (op *Operator) String() string {
	return fmt.Sprintf("Operator{q=%v, lMax=%d}", op.Q, op.LMax)
}

// Matrix returns the 3x3 Cartesian rotation of a unit quaternion.
func Matrix(q quat.Number) *mat.Dense {
	var (
		w, x, y, z = q.Real, q.Imag, q.Jmag, q.Kmag
	)
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// Rotate applies q to the vector v.
func Rotate(q quat.Number, v [3]float64) (r [3]float64) {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}), quat.Conj(q))
	r = [3]float64{p.Imag, p.Jmag, p.Kmag}
	return
}

// FromAxisAngle is the rotation by angle (radians, right handed) about axis.
func FromAxisAngle(axis [3]float64, angle float64) (quat.Number, error) {
	nrm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if !(nrm > 0) {
		return quat.Number{}, types.NewConfigurationError("rotation axis %v has zero length", axis)
	}
	s := math.Sin(0.5*angle) / nrm
	return quat.Number{
		Real: math.Cos(0.5 * angle),
		Imag: s * axis[0],
		Jmag: s * axis[1],
		Kmag: s * axis[2],
	}, nil
}

// FromEulerZYZ is Rz(alpha) Ry(beta) Rz(gamma).
func FromEulerZYZ(alpha, beta, gamma float64) quat.Number {
	var (
		qa = quat.Number{Real: math.Cos(0.5 * alpha), Kmag: math.Sin(0.5 * alpha)}
		qb = quat.Number{Real: math.Cos(0.5 * beta), Jmag: math.Sin(0.5 * beta)}
		qg = quat.Number{Real: math.Cos(0.5 * gamma), Kmag: math.Sin(0.5 * gamma)}
	)
	return quat.Mul(quat.Mul(qa, qb), qg)
}

// Compose is the rotation that applies b first and then a.
func Compose(a, b quat.Number) quat.Number {
	return quat.Mul(a, b)
}
