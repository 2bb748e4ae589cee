package basis

import (
	"fmt"
	"math"
)

// TophatBasis has nMax uniform bins on [0,1], each normalized so that
// int r_n^2 x^2 dx = 1 over its bin.
type TophatBasis struct {
	nMax  int
	uMax  float64
	edges []float64
}

func NewTophat(nMax int, uMax float64) (*TophatBasis, error) {
	if err := checkParams(nMax, uMax); err != nil {
		return nil, err
	}
	tb := &TophatBasis{
		nMax:  nMax,
		uMax:  uMax,
		edges: make([]float64, nMax+1),
	}
	for i := 0; i <= nMax; i++ {
		tb.edges[i] = float64(i) / float64(nMax)
	}
	tb.edges[nMax] = 1
	return tb, nil
}

func (tb *TophatBasis) Type() Type       { return Tophat }
func (tb *TophatBasis) NMax() int        { return tb.nMax }
func (tb *TophatBasis) UMax() float64    { return tb.uMax }
func (tb *TophatBasis) Edges() []float64 { return tb.edges }

func (tb *TophatBasis) String() string {
	return fmt.Sprintf("tophat(nMax=%d, uMax=%g)", tb.nMax, tb.uMax)
}

// Height is the value of r_n on its bin: sqrt(3 / (x_{n+1}^3 - x_n^3)).
func (tb *TophatBasis) Height(n int) float64 {
	x1, x2 := tb.edges[n], tb.edges[n+1]
	return math.Sqrt(3. / (x2*x2*x2 - x1*x1*x1))
}

func (tb *TophatBasis) segments(n int) []segment {
	return []segment{{tb.edges[n], tb.edges[n+1], tb.Height(n)}}
}

func (tb *TophatBasis) Evaluate(n int, x float64) (float64, error) {
	return evaluate(tb, n, x)
}

func (tb *TophatBasis) EvaluateU(n int, u float64) (float64, error) {
	return evaluate(tb, n, u/tb.uMax)
}

func (tb *TophatBasis) Support(n int) (lo, hi float64, err error) {
	return support(tb, n)
}

func (tb *TophatBasis) Breakpoints(n int) ([]float64, error) {
	return breakpoints(tb, n)
}

func (tb *TophatBasis) CellValue(n, cell int) float64 {
	if cell == n {
		return tb.Height(n)
	}
	return 0
}

func (tb *TophatBasis) LegendreTransform(n, l int, t float64) (float64, error) {
	return legendreTransform(tb, n, l, t)
}

func (tb *TophatBasis) SameDomain(o Basis) bool { return sameDomain(tb, o) }
