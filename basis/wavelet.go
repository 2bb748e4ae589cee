package basis

import (
	"fmt"
	"math"
)

// WaveletBasis is the spherical Haar basis. n = 0 is the constant sqrt(3);
// n = 2^lambda + mu has support [mu, mu+1]/2^lambda and takes the value +A on
// the inner half and -B on the outer half, with A and B fixed by
//
//	A V1 = B V2          (zero mean against x^2)
//	A^2 V1 + B^2 V2 = 1  (unit norm)
//
// where V1, V2 are int x^2 dx over the two halves.
type WaveletBasis struct {
	nMax  int
	uMax  float64
	edges []float64
	segs  [][]segment
}

func NewWavelet(nMax int, uMax float64) (*WaveletBasis, error) {
	if err := checkParams(nMax, uMax); err != nil {
		return nil, err
	}
	wb := &WaveletBasis{
		nMax: nMax,
		uMax: uMax,
		segs: make([][]segment, nMax),
	}
	// finest dyadic level touched by n = nMax-1
	nCells := 1
	if nMax > 1 {
		lambda, _ := WaveletLevel(nMax - 1)
		nCells = 1 << (lambda + 1)
	}
	wb.edges = make([]float64, nCells+1)
	for i := 0; i <= nCells; i++ {
		wb.edges[i] = float64(i) / float64(nCells)
	}
	wb.edges[nCells] = 1
	wb.segs[0] = []segment{{0, 1, math.Sqrt(3)}}
	for n := 1; n < nMax; n++ {
		x1, x2, x3 := WaveletEdges(n)
		A, B := haarHeights(x1, x2, x3)
		wb.segs[n] = []segment{{x1, x2, A}, {x2, x3, -B}}
	}
	return wb, nil
}

// WaveletLevel splits n >= 1 into n = 2^lambda + mu, 0 <= mu < 2^lambda.
func WaveletLevel(n int) (lambda, mu int) {
	for (1 << (lambda + 1)) <= n {
		lambda++
	}
	mu = n - 1<<lambda
	return
}

// WaveletEdges returns the inner edge, midpoint and outer edge of wavelet n >= 1.
func WaveletEdges(n int) (x1, x2, x3 float64) {
	lambda, mu := WaveletLevel(n)
	scale := 1. / float64(int(1)<<lambda)
	x1 = float64(mu) * scale
	x2 = (float64(mu) + 0.5) * scale
	x3 = float64(mu+1) * scale
	return
}

func haarHeights(x1, x2, x3 float64) (A, B float64) {
	var (
		V1 = (x2*x2*x2 - x1*x1*x1) / 3
		V2 = (x3*x3*x3 - x2*x2*x2) / 3
	)
	A = math.Sqrt(V2 / (V1 * (V1 + V2)))
	B = math.Sqrt(V1 / (V2 * (V1 + V2)))
	return
}

func (wb *WaveletBasis) Type() Type       { return Wavelet }
func (wb *WaveletBasis) NMax() int        { return wb.nMax }
func (wb *WaveletBasis) UMax() float64    { return wb.uMax }
func (wb *WaveletBasis) Edges() []float64 { return wb.edges }

func (wb *WaveletBasis) String() string {
	return fmt.Sprintf("wavelet(nMax=%d, uMax=%g)", wb.nMax, wb.uMax)
}

func (wb *WaveletBasis) segments(n int) []segment { return wb.segs[n] }

func (wb *WaveletBasis) Evaluate(n int, x float64) (float64, error) {
	return evaluate(wb, n, x)
}

func (wb *WaveletBasis) EvaluateU(n int, u float64) (float64, error) {
	return evaluate(wb, n, u/wb.uMax)
}

func (wb *WaveletBasis) Support(n int) (lo, hi float64, err error) {
	return support(wb, n)
}

func (wb *WaveletBasis) Breakpoints(n int) ([]float64, error) {
	return breakpoints(wb, n)
}

func (wb *WaveletBasis) CellValue(n, cell int) float64 {
	return cellValue(wb, n, cell)
}

// LegendreTransform combines the two half-bin integrals with opposite signs,
// so for small t most of the l = 0 contribution cancels.
func (wb *WaveletBasis) LegendreTransform(n, l int, t float64) (float64, error) {
	return legendreTransform(wb, n, l, t)
}

func (wb *WaveletBasis) SameDomain(o Basis) bool { return sameDomain(wb, o) }
