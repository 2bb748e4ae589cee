package projection

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/ylm"
)

func basisElement(t *testing.T, b basis.Basis, n, l, m int) Field {
	return func(ux, uy, uz float64) float64 {
		u := math.Sqrt(ux*ux + uy*uy + uz*uz)
		rn, err := b.EvaluateU(n, u)
		require.NoError(t, err)
		y, err := ylm.RealXYZ(l, m, ux, uy, uz)
		require.NoError(t, err)
		return rn * y
	}
}

func TestProjectF(t *testing.T) {
	ctx := context.Background()
	{ // Constant field has only the 000 component in a single bin
		b, err := basis.NewTophat(1, 2.)
		require.NoError(t, err)
		pf, err := ProjectF(ctx, func(ux, uy, uz float64) float64 { return 3. }, b, 2, nil)
		require.NoError(t, err)
		assert.True(t, pf.Converged)
		f000, err := pf.At(0, 0, 0)
		require.NoError(t, err)
		assert.InDelta(t, 3.*math.Sqrt(4.*math.Pi/3.), f000, 1.e-12)
		for l := 1; l <= 2; l++ {
			for m := -l; m <= l; m++ {
				v, _ := pf.At(0, l, m)
				assert.InDelta(t, 0., v, 1.e-12)
			}
		}
	}
	{ // A single basis element projects onto one unit coefficient
		for _, bt := range []basis.Type{basis.Tophat, basis.Wavelet} {
			b, err := basis.New(bt, 8, 1.5)
			require.NoError(t, err)
			opts := DefaultOptions()
			opts.ZeroTol = 1.e-11
			p, err := NewProjector(b, 3, opts)
			require.NoError(t, err)
			for _, nlm := range [][3]int{{0, 0, 0}, {3, 1, -1}, {5, 2, 1}, {7, 3, -3}} {
				pf, err := p.ProjectF(ctx, basisElement(t, b, nlm[0], nlm[1], nlm[2]))
				require.NoError(t, err)
				v, err := pf.At(nlm[0], nlm[1], nlm[2])
				require.NoError(t, err)
				assert.InDelta(t, 1., v, 1.e-10, "%s %v", bt, nlm)
				assert.Equal(t, 1, pf.NonZero(), "%s %v", bt, nlm)
				assert.InDelta(t, 1., pf.Norm2(), 1.e-10)
			}
		}
	}
	{ // Reconstruction of a basis element is exact
		b, _ := basis.NewWavelet(4, 1.)
		pf, err := ProjectF(ctx, basisElement(t, b, 2, 1, 1), b, 1, nil)
		require.NoError(t, err)
		rn, _ := b.EvaluateU(2, 0.3)
		y, _ := ylm.RealXYZ(1, 1, 0.3, 0., 0.)
		val, err := pf.Evaluate(0.3, 0., 0.)
		require.NoError(t, err)
		assert.InDelta(t, rn*y, val, 1.e-9)
	}
}

func TestLinearity(t *testing.T) {
	var (
		ctx = context.Background()
		f   = func(ux, uy, uz float64) float64 { return math.Exp(-(ux*ux + 2*uy*uy + uz*uz)) }
		g   = func(ux, uy, uz float64) float64 { return 1. + ux*uz - 0.5*uy }
		a   = 2.5
		c   = -0.75
	)
	b, err := basis.NewTophat(6, 2.)
	require.NoError(t, err)
	p, err := NewProjector(b, 4, nil)
	require.NoError(t, err)
	pf, err := p.ProjectF(ctx, f)
	require.NoError(t, err)
	pg, err := p.ProjectF(ctx, g)
	require.NoError(t, err)
	pfg, err := p.ProjectF(ctx, func(ux, uy, uz float64) float64 {
		return a*f(ux, uy, uz) + c*g(ux, uy, uz)
	})
	require.NoError(t, err)
	comb, err := Combine(a, pf, c, pg)
	require.NoError(t, err)
	assert.InDeltaSlice(t, comb.Coefficients(), pfg.Coefficients(), 1.e-9)
}

func TestProjectFBreaks(t *testing.T) {
	var (
		ctx  = context.Background()
		R    = 0.37
		ball = func(ux, uy, uz float64) float64 {
			if ux*ux+uy*uy+uz*uz < R*R {
				return 1
			}
			return 0
		}
		breaks = func(dx, dy, dz float64) []float64 { return []float64{-1, R, 2} }
	)
	b, _ := basis.NewTophat(4, 1.)
	p, err := NewProjector(b, 2, nil)
	require.NoError(t, err)
	pf, err := p.ProjectFBreaks(ctx, ball, breaks)
	require.NoError(t, err)
	assert.True(t, pf.Converged)
	var (
		sqrt4pi = math.Sqrt(4 * math.Pi)
		x1      = 0.25
		expect  = []float64{
			sqrt4pi * b.Height(0) * x1 * x1 * x1 / 3,
			sqrt4pi * b.Height(1) * (R*R*R - x1*x1*x1) / 3,
			0, 0,
		}
	)
	for n, want := range expect {
		v, _ := pf.At(n, 0, 0)
		assert.InDelta(t, want, v, 1.e-12, "n=%d", n)
		v, _ = pf.At(n, 2, 1)
		assert.InDelta(t, 0., v, 1.e-12, "n=%d", n)
	}
	// the same jump without its break cannot meet the tolerance
	_, err = p.ProjectF(ctx, ball)
	var cw *types.ConvergenceWarning
	assert.True(t, errors.As(err, &cw))
}

func TestProjectFErrors(t *testing.T) {
	ctx := context.Background()
	b, _ := basis.NewTophat(4, 1.)
	{ // Non-finite field
		_, err := ProjectF(ctx, func(ux, uy, uz float64) float64 {
			if ux*ux+uy*uy+uz*uz > 0.5 {
				return math.NaN()
			}
			return 1.
		}, b, 1, nil)
		var ce *types.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	}
	{ // Cancelled context
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ProjectF(cctx, func(ux, uy, uz float64) float64 { return 1. }, b, 1, nil)
		assert.ErrorIs(t, err, context.Canceled)
	}
	{ // Budget exhaustion returns a best-effort value with a warning
		opts := DefaultOptions()
		opts.QuadOrder = 2
		opts.MaxDepth = 0
		opts.RelTol = 1.e-15
		opts.AbsTol = 0
		pf, err := ProjectF(ctx, func(ux, uy, uz float64) float64 {
			return math.Exp(5 * math.Sqrt(ux*ux+uy*uy+uz*uz))
		}, b, 0, opts)
		var cw *types.ConvergenceWarning
		require.True(t, errors.As(err, &cw))
		assert.Equal(t, "projection", cw.Stage)
		require.NotNil(t, pf)
		assert.False(t, pf.Converged)
		v, _ := pf.At(0, 0, 0)
		assert.True(t, v > 0)
	}
	{ // lMax out of range
		_, err := NewProjector(b, -1, nil)
		var ie *types.IndexError
		assert.True(t, errors.As(err, &ie))
	}
}

func TestProjectedF(t *testing.T) {
	b, _ := basis.NewTophat(2, 1.)
	{ // Indexing
		c := make([]float64, 2*types.LMCount(1))
		c[types.NLMOffset(1, 1, -1, 1)] = 4.
		pf, err := NewProjectedF(b, 1, c, true)
		require.NoError(t, err)
		v, err := pf.At(1, 1, -1)
		require.NoError(t, err)
		assert.Equal(t, 4., v)
		_, err = pf.At(2, 0, 0)
		var ie *types.IndexError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "n", ie.What)
		_, err = pf.At(0, 1, 2)
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "m", ie.What)
		D, err := pf.Degree(1)
		require.NoError(t, err)
		assert.Equal(t, 4., D.At(1, 0))
		// Mutating the source does not reach the stored copy
		c[types.NLMOffset(1, 1, -1, 1)] = 0
		v, _ = pf.At(1, 1, -1)
		assert.Equal(t, 4., v)
	}
	{ // Wrong length
		_, err := NewProjectedF(b, 1, make([]float64, 3), true)
		var ce *types.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	}
	{ // Incompatible domains
		b2, _ := basis.NewTophat(2, 2.)
		w2, _ := basis.NewWavelet(2, 1.)
		f, _ := NewProjectedF(b, 0, nil, true)
		g, _ := NewProjectedF(b2, 0, nil, true)
		h, _ := NewProjectedF(w2, 0, nil, true)
		k, _ := NewProjectedF(b, 1, nil, true)
		var ce *types.ConfigurationError
		_, err := Combine(1, f, 1, g)
		assert.True(t, errors.As(err, &ce))
		_, err = Combine(1, f, 1, h)
		assert.True(t, errors.As(err, &ce))
		_, err = Combine(1, f, 1, k)
		assert.True(t, errors.As(err, &ce))
	}
}

func TestPersistence(t *testing.T) {
	{ // Round trip
		b, _ := basis.NewWavelet(4, 3.25)
		c := make([]float64, 4*types.LMCount(2))
		for i := range c {
			if i%3 == 0 {
				c[i] = 1. / float64(i+7)
			}
		}
		c[5] = -math.Pi * 1.e-17
		pf, err := NewProjectedF(b, 2, c, false)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, pf))
		assert.True(t, strings.HasPrefix(buf.String(),
			"# govsdm basis=wavelet nMax=4 lMax=2 uMax=3.25 converged=false\n"))
		back, err := Read(&buf)
		require.NoError(t, err)
		assert.True(t, back.Basis.SameDomain(b))
		assert.Equal(t, 2, back.LMax)
		assert.False(t, back.Converged)
		assert.Equal(t, pf.Coefficients(), back.Coefficients())
	}
	{ // Malformed rows report their line
		in := "# govsdm basis=tophat nMax=2 lMax=1 uMax=1\n" +
			"0 0 0 1.5\n" +
			"\n" +
			"1 1 x 2\n"
		_, err := Read(strings.NewReader(in))
		var se *types.SerializationError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 4, se.Line)
	}
	{ // Out of range and duplicate rows
		head := "# govsdm basis=tophat nMax=2 lMax=1 uMax=1\n"
		var se *types.SerializationError
		_, err := Read(strings.NewReader(head + "0 2 0 1\n"))
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 2, se.Line)
		_, err = Read(strings.NewReader(head + "0 1 0 1\n1 0 0 2\n0 1 0 3\n"))
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 4, se.Line)
		_, err = Read(strings.NewReader(head + "0 1 0\n"))
		require.True(t, errors.As(err, &se))
	}
	{ // Bad header
		var se *types.SerializationError
		_, err := Read(strings.NewReader("0 0 0 1\n"))
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 1, se.Line)
		_, err = Read(strings.NewReader("# govsdm basis=tophat nMax=2 uMax=1\n"))
		require.True(t, errors.As(err, &se))
		_, err = Read(strings.NewReader("# govsdm basis=bins nMax=2 lMax=0 uMax=1\n"))
		require.True(t, errors.As(err, &se))
		_, err = Read(strings.NewReader(""))
		require.True(t, errors.As(err, &se))
	}
	{ // Header sizes are bounded before allocating
		for _, head := range []string{
			"# govsdm basis=tophat nMax=1000000 lMax=100000 uMax=1",
			"# govsdm basis=tophat nMax=2 lMax=4000000000 uMax=1",
			"# govsdm basis=tophat nMax=9223372036854775807 lMax=32 uMax=1",
			"# govsdm basis=tophat nMax=20000000 lMax=0 uMax=1",
			"# govsdm basis=tophat nMax=0 lMax=0 uMax=1",
			"# govsdm basis=tophat nMax=-3 lMax=0 uMax=1",
		} {
			var se *types.SerializationError
			_, err := Read(strings.NewReader(head + "\n0 0 0 1\n"))
			require.True(t, errors.As(err, &se), head)
			assert.Equal(t, 1, se.Line, head)
		}
		pf, err := Read(strings.NewReader("# govsdm basis=tophat nMax=1000 lMax=32 uMax=1\n"))
		require.NoError(t, err)
		assert.Equal(t, 1000*33*33, len(pf.Coefficients()))
	}
}
