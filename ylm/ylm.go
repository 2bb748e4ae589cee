// Package ylm evaluates real spherical harmonics.
//
// The real harmonics carry no Condon-Shortley phase:
//
//	Y_l0  = N_l0 P_l(cos t)
//	Y_lm  = sqrt(2) N_lm P_l^m(cos t) cos(m p)    m > 0
//	Y_l-m = sqrt(2) N_lm P_l^m(cos t) sin(m p)    m > 0
//
// so that (Y_1-1, Y_10, Y_11) is proportional to (y, z, x).
package ylm

import (
	"math"

	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
)

// Y00 is the constant value of the l = 0 harmonic.
var Y00 = 1. / math.Sqrt(4*math.Pi)

// Evaluator fills all harmonics up to LMax for one direction at a time. It
// keeps a scratch buffer and must not be shared between goroutines.
type Evaluator struct {
	LMax int
	plm  []float64   // normalized associated Legendre values, m >= 0
	a, b [][]float64 // recurrence coefficients
}

func NewEvaluator(lMax int) (e *Evaluator, err error) {
	if lMax < 0 {
		err = types.NewIndexError("lMax", lMax, 0, math.MaxInt32)
		return
	}
	e = &Evaluator{
		LMax: lMax,
		plm:  make([]float64, (lMax+1)*(lMax+2)/2),
		a:    make([][]float64, lMax+1),
		b:    make([][]float64, lMax+1),
	}
	for m := 0; m <= lMax; m++ {
		e.a[m] = make([]float64, lMax+1)
		e.b[m] = make([]float64, lMax+1)
		fm := float64(m)
		for l := m + 2; l <= lMax; l++ {
			fl := float64(l)
			e.a[m][l] = math.Sqrt((4*fl*fl - 1) / (fl*fl - fm*fm))
			e.b[m][l] = math.Sqrt(((fl-1)*(fl-1) - fm*fm) / (4*(fl-1)*(fl-1) - 1))
		}
	}
	return
}

func pIndex(l, m int) int { return l*(l+1)/2 + m }

// legendre fills the fully normalized N_lm P_l^m(x) for 0 <= m <= l <= LMax.
func (e *Evaluator) legendre(x float64) {
	var (
		L = e.LMax
		s = math.Sqrt(math.Max(0, 1-x*x))
		p = e.plm
	)
	p[0] = Y00
	for m := 1; m <= L; m++ {
		fm := float64(m)
		p[pIndex(m, m)] = p[pIndex(m-1, m-1)] * math.Sqrt((2*fm+1)/(2*fm)) * s
	}
	for m := 0; m < L; m++ {
		p[pIndex(m+1, m)] = x * math.Sqrt(2*float64(m)+3) * p[pIndex(m, m)]
		for l := m + 2; l <= L; l++ {
			p[pIndex(l, m)] = e.a[m][l] * (x*p[pIndex(l-1, m)] - e.b[m][l]*p[pIndex(l-2, m)])
		}
	}
}

// Eval fills out[types.LMOffset(l,m)] = Y_lm for every l <= LMax.
func (e *Evaluator) Eval(cosTheta, phi float64, out []float64) {
	e.legendre(cosTheta)
	for l := 0; l <= e.LMax; l++ {
		out[types.LMOffset(l, 0)] = e.plm[pIndex(l, 0)]
	}
	for m := 1; m <= e.LMax; m++ {
		sm, cm := math.Sincos(float64(m) * phi)
		sm, cm = math.Sqrt2*sm, math.Sqrt2*cm
		for l := m; l <= e.LMax; l++ {
			p := e.plm[pIndex(l, m)]
			out[types.LMOffset(l, m)] = cm * p
			out[types.LMOffset(l, -m)] = sm * p
		}
	}
}

// EvalXYZ is Eval for a direction given as a (not necessarily unit) vector.
func (e *Evaluator) EvalXYZ(x, y, z float64, out []float64) {
	ct, phi := Angles(x, y, z)
	e.Eval(ct, phi, out)
}

// EvalBatch evaluates every harmonic at every point. Row i of the result holds
// the harmonics of point i in LMOffset order.
func (e *Evaluator) EvalBatch(cosTheta, phi []float64) (Y utils.Matrix) {
	var (
		nlm = types.LMCount(e.LMax)
	)
	Y = utils.NewMatrix(len(cosTheta), nlm)
	data := Y.Data()
	for i := range cosTheta {
		e.Eval(cosTheta[i], phi[i], data[i*nlm:(i+1)*nlm])
	}
	return
}

// Angles converts a vector into (cos theta, phi). The zero vector maps onto
// the north pole.
func Angles(x, y, z float64) (cosTheta, phi float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return 1, 0
	}
	cosTheta = math.Max(-1, math.Min(1, z/r))
	phi = math.Atan2(y, x)
	return
}

// Real evaluates a single Y_lm(theta, phi).
func Real(l, m int, theta, phi float64) (val float64, err error) {
	if err = checkLM(l, m); err != nil {
		return
	}
	var (
		e, _ = NewEvaluator(l)
		out  = make([]float64, types.LMCount(l))
	)
	e.Eval(math.Cos(theta), phi, out)
	val = out[types.LMOffset(l, m)]
	return
}

// RealXYZ evaluates a single Y_lm along the direction of (x,y,z).
func RealXYZ(l, m int, x, y, z float64) (val float64, err error) {
	ct, phi := Angles(x, y, z)
	return Real(l, m, math.Acos(ct), phi)
}

func checkLM(l, m int) error {
	if l < 0 {
		return types.NewIndexError("l", l, 0, math.MaxInt32)
	}
	if m < -l || m > l {
		return types.NewIndexError("m", m, -l, l)
	}
	return nil
}
