package basis

import (
	"math"

	"github.com/govsdm/govsdm/utils"
)

// MaxLegendreDegree bounds the kernel integrals.
const MaxLegendreDegree = 32

// monomialDegree is the largest l integrated through the monomial sum. Its
// alternating coefficients grow like (1+sqrt2)^l; at l = 12 the sum is still
// within 1e-13 of b^2, beyond that the quadrature form is used.
const monomialDegree = 12

// legendreCoef[l][k] is the coefficient of x^k in P_l(x).
var legendreCoef = legendreCoefficients(MaxLegendreDegree)

func legendreCoefficients(lMax int) (c [][]float64) {
	c = make([][]float64, lMax+1)
	c[0] = []float64{1}
	if lMax == 0 {
		return
	}
	c[1] = []float64{0, 1}
	for l := 1; l < lMax; l++ {
		next := make([]float64, l+2)
		fl := float64(l)
		for k := 0; k <= l+1; k++ {
			var v float64
			if k >= 1 && k-1 <= l {
				v += (2*fl + 1) * c[l][k-1]
			}
			if k <= l-1 {
				v -= fl * c[l-1][k]
			}
			next[k] = v / (fl + 1)
		}
		c[l+1] = next
	}
	return
}

// LegendreP evaluates P_l(x) by the three term recurrence.
func LegendreP(l int, x float64) float64 {
	if l == 0 {
		return 1
	}
	p0, p1 := 1., x
	for k := 1; k < l; k++ {
		fk := float64(k)
		p0, p1 = p1, ((2*fk+1)*x*p1-fk*p0)/(fk+1)
	}
	return p1
}

// kernelRules[l] holds the Gauss-Legendre rule used by kernelQuadrature.
var kernelRules = func() (r [MaxLegendreDegree + 1][2][]float64) {
	for l := monomialDegree + 1; l <= MaxLegendreDegree; l++ {
		r[l][0], r[l][1] = utils.GaussLegendre(l/2 + 12)
	}
	return
}()

// LegendreKernelIntegral returns int_a^b x P_l(t/x) dx for 0 < a <= b, or
// for t == 0 with 0 <= a <= b. Using P_l(y) = sum_k c_k y^k,
//
//	int x (t/x)^k dx = x^2 (t/x)^k / (2-k)   for k != 2
//	int x (t/x)^2 dx = t^2 ln x
//
// for l <= 12, and kernelQuadrature above.
func LegendreKernelIntegral(l int, t, a, b float64) (val float64) {
	if b <= a {
		return 0
	}
	c := legendreCoef[l]
	if t == 0 {
		return c[0] * 0.5 * (b*b - a*a)
	}
	if l > monomialDegree {
		return kernelQuadrature(l, t, a, b)
	}
	var (
		ta, tb = t / a, t / b
		a2, b2 = a * a, b * b
	)
	for k := l % 2; k <= l; k += 2 {
		if c[k] == 0 {
			continue
		}
		if k == 2 {
			val += c[k] * t * t * math.Log(b/a)
			continue
		}
		val += c[k] / float64(2-k) * (b2*utils.POW(tb, k) - a2*utils.POW(ta, k))
	}
	return
}

// kernelQuadrature evaluates the same integral after y = t/x,
//
//	t^2 int_{t/b}^{t/a} P_l(y) y^-3 dy
//
// on panels [y, 2y], where a rule of l/2 + 12 points resolves the polynomial
// and the y^-3 factor to rounding. Every term is bounded by |x|, so nothing
// cancels.
func kernelQuadrature(l int, t, a, b float64) (val float64) {
	var (
		X, W   = kernelRules[l][0], kernelRules[l][1]
		y0, y1 = t / b, t / a
	)
	for lo := y0; lo < y1; lo *= 2 {
		var (
			hi   = math.Min(2*lo, y1)
			half = 0.5 * (hi - lo)
			mid  = 0.5 * (hi + lo)
		)
		for i, xi := range X {
			y := mid + half*xi
			val += half * W[i] * LegendreP(l, y) / (y * y * y)
		}
	}
	return t * t * val
}
