// Package basis defines the orthonormal radial basis families used to expand
// velocity distributions and momentum form factors: bin-wise constant tophat
// functions and spherical Haar wavelets.
//
// All functions are defined on the dimensionless radius x = u/uMax in [0,1]
// and are orthonormal under
//
//	int_0^1 r_n(x) r_n'(x) x^2 dx = delta_nn'
//
// which is the radial part of <f|g> = uMax^-3 int f g d^3u.
package basis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/govsdm/govsdm/types"
)

type Type uint8

const (
	Tophat Type = iota
	Wavelet
)

var TypeNameMap = map[string]Type{
	"tophat":  Tophat,
	"bin":     Tophat,
	"wavelet": Wavelet,
	"haar":    Wavelet,
}

func (bt Type) String() string {
	switch bt {
	case Tophat:
		return "tophat"
	case Wavelet:
		return "wavelet"
	}
	return fmt.Sprintf("Type(%d)", uint8(bt))
}

// ParseType maps a family name onto a Type. Unknown names return a
// ConfigurationError that names the closest known family.
func ParseType(name string) (bt Type, err error) {
	var (
		ok  bool
		key = strings.ToLower(strings.TrimSpace(name))
	)
	if bt, ok = TypeNameMap[key]; ok {
		return
	}
	names := make([]string, 0, len(TypeNameMap))
	for k := range TypeNameMap {
		names = append(names, k)
	}
	sort.Strings(names)
	best, bestDist := "", math.MaxInt
	for _, k := range names {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	err = types.NewConfigurationError("unknown basis type %q, did you mean %q?", name, best)
	return
}

// Basis is the closed set of radial basis families. Only *TophatBasis and
// *WaveletBasis implement it.
type Basis interface {
	Type() Type
	NMax() int
	UMax() float64
	// Evaluate returns r_n(x) at the dimensionless radius x, zero outside
	// the support.
	Evaluate(n int, x float64) (float64, error)
	// EvaluateU returns r_n(u/uMax).
	EvaluateU(n int, u float64) (float64, error)
	// Support returns the dimensionless support [lo, hi] of r_n.
	Support(n int) (lo, hi float64, err error)
	// Breakpoints returns every discontinuity of r_n in ascending order,
	// including both ends of the support.
	Breakpoints(n int) ([]float64, error)
	// Edges returns the finest grid on which every r_n is constant.
	Edges() []float64
	// CellValue is the constant value of r_n on cell [Edges[c], Edges[c+1]).
	CellValue(n, cell int) float64
	// LegendreTransform returns int x r_n(x) P_l(t/x) dx over x >= t,
	// evaluated in closed form.
	LegendreTransform(n, l int, t float64) (float64, error)
	// SameDomain reports whether two bases share family, size and uMax, so
	// that coefficients expressed in them can be combined.
	SameDomain(o Basis) bool
	String() string

	segments(n int) []segment
}

// segment is an interval on which a basis function is constant.
type segment struct {
	lo, hi, height float64
}

// UMaxRelTol is the relative tolerance used when comparing uMax values.
const UMaxRelTol = 1.e-12

// New constructs a basis of the given family.
func New(bt Type, nMax int, uMax float64) (Basis, error) {
	switch bt {
	case Tophat:
		return NewTophat(nMax, uMax)
	case Wavelet:
		return NewWavelet(nMax, uMax)
	}
	return nil, types.NewConfigurationError("unknown basis type %v", bt)
}

func checkParams(nMax int, uMax float64) error {
	if nMax < 1 {
		return types.NewConfigurationError("basis size nMax = %d must be >= 1", nMax)
	}
	if !(uMax > 0) || math.IsInf(uMax, 0) {
		return types.NewConfigurationError("basis cutoff uMax = %v must be finite and > 0", uMax)
	}
	return nil
}

func checkN(n, nMax int) error {
	if n < 0 || n >= nMax {
		return types.NewIndexError("n", n, 0, nMax-1)
	}
	return nil
}

func sameDomain(a, b Basis) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Type() != b.Type() || a.NMax() != b.NMax() {
		return false
	}
	ua, ub := a.UMax(), b.UMax()
	return math.Abs(ua-ub) <= UMaxRelTol*math.Max(math.Abs(ua), math.Abs(ub))
}

func evaluate(b Basis, n int, x float64) (float64, error) {
	if err := checkN(n, b.NMax()); err != nil {
		return 0, err
	}
	if x < 0 || x > 1 {
		return 0, nil
	}
	for _, s := range b.segments(n) {
		if x >= s.lo && (x < s.hi || (s.hi == 1 && x == 1)) {
			return s.height, nil
		}
	}
	return 0, nil
}

func support(b Basis, n int) (lo, hi float64, err error) {
	if err = checkN(n, b.NMax()); err != nil {
		return
	}
	segs := b.segments(n)
	lo, hi = segs[0].lo, segs[len(segs)-1].hi
	return
}

func breakpoints(b Basis, n int) (bp []float64, err error) {
	if err = checkN(n, b.NMax()); err != nil {
		return
	}
	segs := b.segments(n)
	bp = make([]float64, 0, len(segs)+1)
	bp = append(bp, segs[0].lo)
	for _, s := range segs {
		bp = append(bp, s.hi)
	}
	return
}

func cellValue(b Basis, n, cell int) float64 {
	edges := b.Edges()
	mid := 0.5 * (edges[cell] + edges[cell+1])
	for _, s := range b.segments(n) {
		if mid >= s.lo && mid < s.hi {
			return s.height
		}
	}
	return 0
}

// legendreTransform sums the exact Legendre kernel integral over the constant
// pieces of r_n. Pieces entirely below t are kinematically closed and
// contribute nothing.
func legendreTransform(b Basis, n, l int, t float64) (val float64, err error) {
	if err = checkN(n, b.NMax()); err != nil {
		return
	}
	if l < 0 || l > MaxLegendreDegree {
		err = types.NewIndexError("l", l, 0, MaxLegendreDegree)
		return
	}
	if t < 0 || math.IsNaN(t) {
		err = types.NewConfigurationError("legendre transform threshold t = %v must be >= 0", t)
		return
	}
	for _, s := range b.segments(n) {
		if t >= s.hi {
			continue
		}
		val += s.height * LegendreKernelIntegral(l, t, math.Max(s.lo, t), s.hi)
	}
	return
}
