package utils

import (
	"math"
)

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// LogFactorial returns ln(n!).
func LogFactorial(n int) float64 {
	if n < 2 {
		return 0
	}
	lg, _ := math.Lgamma(float64(n + 1))
	return lg
}

// MergeBreakpoints returns the sorted, de-duplicated union of the points in
// pts that lie inside [lo, hi], always including lo and hi.
func MergeBreakpoints(lo, hi float64, pts ...float64) (bp []float64) {
	bp = append(bp, lo)
	for _, p := range pts {
		if p > lo && p < hi {
			bp = append(bp, p)
		}
	}
	bp = append(bp, hi)
	// insertion sort, the lists are short
	for i := 1; i < len(bp); i++ {
		for j := i; j > 0 && bp[j] < bp[j-1]; j-- {
			bp[j], bp[j-1] = bp[j-1], bp[j]
		}
	}
	var (
		tol = NODETOL * math.Max(1, math.Abs(hi-lo))
		out = bp[:1]
	)
	for _, p := range bp[1:] {
		if p-out[len(out)-1] > tol {
			out = append(out, p)
		}
	}
	out[len(out)-1] = hi
	return out
}
