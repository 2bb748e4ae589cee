package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussLegendre(t *testing.T) {
	for _, N := range []int{2, 5, 16} {
		X, W := GaussLegendre(N)
		require.Equal(t, N, len(X))
		var sum float64
		for i := range W {
			sum += W[i]
			assert.True(t, X[i] > -1 && X[i] < 1)
		}
		assert.InDelta(t, 2., sum, 1.e-13)
		// exact for polynomials of degree 2N-1
		var p float64
		deg := 2*N - 2
		for i := range X {
			p += W[i] * POW(X[i], deg)
		}
		assert.InDelta(t, 2./float64(deg+1), p, 1.e-13)
	}
}

func TestAdaptiveIntegrator(t *testing.T) {
	{ // Polynomial: accepted on the first split
		ai := NewAdaptiveIntegrator(8, 1.e-12, 1.e-15, 10, 0)
		res, st := ai.IntegrateScalar(func(x float64) float64 { return 3 * x * x }, 0, 2)
		assert.InDelta(t, 8., res, 1.e-12)
		assert.True(t, st.Converged())
		assert.Equal(t, 2, st.Panels)
	}
	{ // Vector valued, smooth
		ai := NewAdaptiveIntegrator(8, 1.e-12, 1.e-15, 10, 0)
		res, st := ai.Integrate(func(x float64, out []float64) {
			out[0] = math.Sin(x)
			out[1] = math.Exp(x)
		}, 0, math.Pi, 2)
		assert.InDelta(t, 2., res[0], 1.e-11)
		assert.InDelta(t, math.Exp(math.Pi)-1, res[1], 1.e-9)
		assert.True(t, st.Converged())
	}
	{ // Budget exhaustion on a kink is reported, not hidden
		ai := NewAdaptiveIntegrator(4, 1.e-15, 0, 2, 0)
		res, st := ai.IntegrateScalar(func(x float64) float64 { return math.Sqrt(math.Abs(x - 0.3)) }, 0, 1)
		assert.False(t, st.Converged())
		assert.True(t, st.MaxError > 0)
		exact := (2. / 3.) * (math.Pow(0.3, 1.5) + math.Pow(0.7, 1.5))
		assert.InDelta(t, exact, res, 5.e-3)
	}
	{ // Empty interval
		ai := NewAdaptiveIntegrator(4, 1.e-12, 0, 4, 0)
		res, st := ai.IntegrateScalar(func(x float64) float64 { return 1 }, 1, 1)
		assert.Equal(t, 0., res)
		assert.True(t, st.Converged())
	}
}

func TestMergeBreakpoints(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, MergeBreakpoints(0, 1, 0.5, 0.25, 2, -1, 0.5))
	assert.Equal(t, []float64{0.2, 0.4}, MergeBreakpoints(0.2, 0.4))
}
