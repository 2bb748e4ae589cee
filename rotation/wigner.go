package rotation

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/utils"
)

// EulerZYZ returns the angles with R(q) = Rz(alpha) Ry(beta) Rz(gamma) for a
// unit quaternion. Writing Ra = w + i z and Rb = y - i x,
//
//	|Ra| = cos(beta/2), arg Ra = (alpha+gamma)/2
//	|Rb| = sin(beta/2), arg Rb = (alpha-gamma)/2
//
// At the poles (|Ra| or |Rb| zero) only one of the two sums is defined and
// the undefined phase is taken as zero.
func EulerZYZ(q quat.Number) (alpha, beta, gamma float64) {
	var (
		ra     = complex(q.Real, q.Kmag)
		rb     = complex(q.Jmag, -q.Imag)
		absA   = cmplx.Abs(ra)
		absB   = cmplx.Abs(rb)
		phA    float64
		phB    float64
		poleEp = 1.e-14
	)
	if absA > poleEp {
		phA = cmplx.Phase(ra)
	}
	if absB > poleEp {
		phB = cmplx.Phase(rb)
	}
	beta = 2. * math.Atan2(absB, absA)
	alpha = phA + phB
	gamma = phA - phB
	return
}

// WignerSmallD is d^l_{m m'}(beta) in the convention
// D^l_{m m'}(alpha, beta, gamma) = exp(-i m alpha) d^l_{m m'}(beta) exp(-i m' gamma).
func WignerSmallD(l, m, mp int, beta float64) (d float64) {
	var (
		c    = math.Cos(0.5 * beta)
		s    = math.Sin(0.5 * beta)
		pref = 0.5 * (utils.LogFactorial(l+m) + utils.LogFactorial(l-m) +
			utils.LogFactorial(l+mp) + utils.LogFactorial(l-mp))
		sMin = max(0, mp-m)
		sMax = min(l+mp, l-m)
	)
	for k := sMin; k <= sMax; k++ {
		lg := pref - utils.LogFactorial(l+mp-k) - utils.LogFactorial(k) -
			utils.LogFactorial(m-mp+k) - utils.LogFactorial(l-m-k)
		term := math.Exp(lg) * utils.POW(c, 2*l+mp-m-2*k) * utils.POW(s, m-mp+2*k)
		if (m-mp+k)%2 != 0 {
			term = -term
		}
		d += term
	}
	return
}

// wignerD fills the (2l+1)^2 complex matrix
//
//	W_{m m'} = exp(i m alpha) d^l_{m m'}(beta) exp(i m' gamma)
//
// row-major with index m+l, for which Y^m_l(R u) = sum_m' W_{m m'} Y^m'_l(u)
// holds for the complex harmonics.
func wignerD(l int, alpha, beta, gamma float64, W []complex128) {
	w := 2*l + 1
	for m := -l; m <= l; m++ {
		for mp := -l; mp <= l; mp++ {
			d := WignerSmallD(l, m, mp, beta)
			W[(m+l)*w+mp+l] = complex(d, 0) * cmplx.Exp(complex(0, float64(m)*alpha+float64(mp)*gamma))
		}
	}
}

// realBasis fills the unitary C with Y^real_lm = sum_k C_{mk} Y^k_l, where
// the complex harmonics carry the Condon-Shortley phase and the real ones do
// not.
func realBasis(l int, C []complex128) {
	var (
		w  = 2*l + 1
		r2 = 1. / math.Sqrt2
	)
	for i := range C {
		C[i] = 0
	}
	C[l*w+l] = 1
	for mu := 1; mu <= l; mu++ {
		sgn := 1.
		if mu%2 != 0 {
			sgn = -1.
		}
		// m = +mu, cos(mu phi)
		C[(l+mu)*w+l+mu] = complex(sgn*r2, 0)
		C[(l+mu)*w+l-mu] = complex(r2, 0)
		// m = -mu, sin(mu phi)
		C[(l-mu)*w+l+mu] = complex(0, -sgn*r2)
		C[(l-mu)*w+l-mu] = complex(0, r2)
	}
}
