// Package projection expands scalar fields on the ball of radius uMax in a
// radial basis times real spherical harmonics,
//
//	f_nlm = uMax^-3 int f(u) r_n(|u|/uMax) Y_lm(u/|u|) d^3u,
//
// and stores, reads and writes the resulting coefficient sets.
package projection

import (
	"fmt"
	"math"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
	"github.com/govsdm/govsdm/ylm"
)

// ProjectedF is an immutable set of coefficients f_nlm for n < NMax and
// l <= LMax, stored densely at types.NLMOffset(n, l, m, LMax).
type ProjectedF struct {
	Basis     basis.Basis
	LMax      int
	Converged bool
	coeffs    []float64
}

// NewProjectedF copies coeffs, which must be laid out by types.NLMOffset.
func NewProjectedF(b basis.Basis, lMax int, coeffs []float64, converged bool) (pf *ProjectedF, err error) {
	if b == nil {
		err = types.NewConfigurationError("projected coefficients need a basis")
		return
	}
	if lMax < 0 {
		err = types.NewIndexError("lMax", lMax, 0, math.MaxInt32)
		return
	}
	size := b.NMax() * types.LMCount(lMax)
	if coeffs == nil {
		coeffs = make([]float64, size)
	}
	if len(coeffs) != size {
		err = types.NewConfigurationError("coefficient array has length %d, want %d for nMax=%d lMax=%d",
			len(coeffs), size, b.NMax(), lMax)
		return
	}
	pf = &ProjectedF{
		Basis:     b,
		LMax:      lMax,
		Converged: converged,
		coeffs:    make([]float64, size),
	}
	copy(pf.coeffs, coeffs)
	return
}

func (pf *ProjectedF) NMax() int     { return pf.Basis.NMax() }
func (pf *ProjectedF) UMax() float64 { return pf.Basis.UMax() }

func (pf *ProjectedF) String() string {
	return fmt.Sprintf("ProjectedF{%s, lMax=%d, converged=%v}", pf.Basis, pf.LMax, pf.Converged)
}

// At returns f_nlm.
func (pf *ProjectedF) At(n, l, m int) (float64, error) {
	if err := types.CheckNLM(n, l, m, pf.NMax(), pf.LMax); err != nil {
		return 0, err
	}
	return pf.coeffs[types.NLMOffset(n, l, m, pf.LMax)], nil
}

// Coefficients returns a copy of the dense coefficient array.
func (pf *ProjectedF) Coefficients() []float64 {
	c := make([]float64, len(pf.coeffs))
	copy(c, pf.coeffs)
	return c
}

// Degree returns the NMax x (2l+1) block of degree l; column m+l holds order m.
func (pf *ProjectedF) Degree(l int) (D utils.Matrix, err error) {
	if l < 0 || l > pf.LMax {
		err = types.NewIndexError("l", l, 0, pf.LMax)
		return
	}
	var (
		nMax = pf.NMax()
		w    = 2*l + 1
	)
	D = utils.NewMatrix(nMax, w)
	data := D.Data()
	for n := 0; n < nMax; n++ {
		off := types.NLMOffset(n, l, -l, pf.LMax)
		copy(data[n*w:(n+1)*w], pf.coeffs[off:off+w])
	}
	return
}

// NonZero counts the stored non-zero coefficients.
func (pf *ProjectedF) NonZero() (nnz int) {
	for _, v := range pf.coeffs {
		if v != 0 {
			nnz++
		}
	}
	return
}

// Norm2 is sum f_nlm^2, which by Parseval is the <f|f> of the truncated
// expansion.
func (pf *ProjectedF) Norm2() (sum float64) {
	for _, v := range pf.coeffs {
		sum += v * v
	}
	return
}

// Compatible returns a ConfigurationError unless both sets are expressed in
// the same basis family, size and uMax.
func (pf *ProjectedF) Compatible(o *ProjectedF) error {
	if !pf.Basis.SameDomain(o.Basis) {
		return types.NewConfigurationError("incompatible projections: %s vs %s", pf.Basis, o.Basis)
	}
	return nil
}

// Evaluate reconstructs the truncated expansion at the physical point u.
func (pf *ProjectedF) Evaluate(ux, uy, uz float64) (val float64, err error) {
	var (
		u   = math.Sqrt(ux*ux + uy*uy + uz*uz)
		nlm = types.LMCount(pf.LMax)
		Y   = make([]float64, nlm)
		e   *ylm.Evaluator
	)
	if e, err = ylm.NewEvaluator(pf.LMax); err != nil {
		return
	}
	e.EvalXYZ(ux, uy, uz, Y)
	for n := 0; n < pf.NMax(); n++ {
		var rn float64
		if rn, err = pf.Basis.EvaluateU(n, u); err != nil {
			return
		}
		if rn == 0 {
			continue
		}
		off := n * nlm
		for i := 0; i < nlm; i++ {
			val += rn * pf.coeffs[off+i] * Y[i]
		}
	}
	return
}

// Combine returns a*f + b*g for compatible f and g with the same lMax.
func Combine(a float64, f *ProjectedF, b float64, g *ProjectedF) (*ProjectedF, error) {
	if err := f.Compatible(g); err != nil {
		return nil, err
	}
	if f.LMax != g.LMax {
		return nil, types.NewConfigurationError("cannot combine lMax %d with lMax %d", f.LMax, g.LMax)
	}
	c := make([]float64, len(f.coeffs))
	for i := range c {
		c[i] = a*f.coeffs[i] + b*g.coeffs[i]
	}
	return NewProjectedF(f.Basis, f.LMax, c, f.Converged && g.Converged)
}
