package rate

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/rotation"
	"github.com/govsdm/govsdm/types"
)

func randomProjection(t *testing.T, rng *rand.Rand, b basis.Basis, lMax int) *projection.ProjectedF {
	c := make([]float64, b.NMax()*types.LMCount(lMax))
	for i := range c {
		c[i] = rng.NormFloat64()
	}
	pf, err := projection.NewProjectedF(b, lMax, c, true)
	require.NoError(t, err)
	return pf
}

func randomQuat(rng *rand.Rand) quat.Number {
	q := quat.Number{Real: rng.NormFloat64(), Imag: rng.NormFloat64(), Jmag: rng.NormFloat64(), Kmag: rng.NormFloat64()}
	return quat.Scale(1/quat.Abs(q), q)
}

type setup struct {
	model   kinematics.Model
	vB, qB  basis.Basis
	mi      *kinematics.McalI
	gX, fs2 *projection.ProjectedF
}

func newSetup(t *testing.T, lMax int) *setup {
	var (
		rng = rand.New(rand.NewSource(11))
		s   = &setup{}
		err error
	)
	s.vB, _ = basis.NewWavelet(4, 2.e-3)
	s.qB, _ = basis.NewTophat(3, 3.e3)
	s.model, err = kinematics.NewModel(0, 1.e6, 1.e9, 0.5)
	require.NoError(t, err)
	s.mi, err = kinematics.NewMcalI(context.Background(), s.vB, s.qB, lMax, s.model, nil)
	require.NoError(t, err)
	s.gX = randomProjection(t, rng, s.vB, lMax)
	s.fs2 = randomProjection(t, rng, s.qB, lMax)
	return s
}

// direct evaluates the defining sum term by term.
func direct(t *testing.T, s *setup, op *rotation.Operator) (r float64) {
	lMax := s.gX.LMax
	for l := 0; l <= lMax; l++ {
		G, err := op.G(l)
		require.NoError(t, err)
		for n := 0; n < s.vB.NMax(); n++ {
			for np := 0; np < s.qB.NMax(); np++ {
				I, _ := s.mi.At(l, n, np)
				for m := -l; m <= l; m++ {
					g, _ := s.gX.At(n, l, m)
					for mp := -l; mp <= l; mp++ {
						f, _ := s.fs2.At(np, l, mp)
						r += g * I * G.At(m+l, mp+l) * f
					}
				}
			}
		}
	}
	return r * s.model.K0()
}

func TestRate(t *testing.T) {
	var (
		lMax = 3
		s    = newSetup(t, lMax)
		rng  = rand.New(rand.NewSource(3))
	)
	a, err := NewAssembler(s.model, s.gX, s.fs2, s.mi, nil)
	require.NoError(t, err)
	{ // Identity rotation equals skipping the rotation
		r, err := a.Rate(quat.Number{Real: 1})
		require.NoError(t, err)
		norot := a.RateNoRotation()
		assert.InDelta(t, norot, r, 1.e-12*math.Abs(norot))
		assert.InDelta(t, direct(t, s, rotation.Identity(lMax)), norot, 1.e-12*math.Abs(norot))
	}
	{ // Matches the defining sum for generic rotations
		for i := 0; i < 4; i++ {
			op, _ := rotation.NewOperator(randomQuat(rng), lMax)
			r, err := a.RateOperator(op)
			require.NoError(t, err)
			want := direct(t, s, op)
			assert.InDelta(t, want, r, 1.e-10*math.Abs(want))
		}
	}
	{ // Rotating the detector is rotating fs2
		q := randomQuat(rng)
		op, _ := rotation.NewOperator(q, lMax)
		rotated, err := op.RotateF(s.fs2)
		require.NoError(t, err)
		b, err := NewAssembler(s.model, s.gX, rotated, s.mi, nil)
		require.NoError(t, err)
		r, _ := a.Rate(q)
		want := b.RateNoRotation()
		assert.InDelta(t, want, r, 1.e-10*math.Abs(want))
	}
	{ // Exposure scales the rate
		b, err := NewAssembler(s.model, s.gX, s.fs2, s.mi, &Options{Texp: 4})
		require.NoError(t, err)
		assert.InDelta(t, a.RateNoRotation()/4, b.RateNoRotation(), 1.e-12*math.Abs(a.RateNoRotation()))
	}
	{
		K, err := a.PartialRateMatrix(2)
		require.NoError(t, err)
		r, c := K.Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, 5, c)
		_, err = a.PartialRateMatrix(4)
		var ie *types.IndexError
		assert.True(t, errors.As(err, &ie))
	}
}

func TestRates(t *testing.T) {
	var (
		lMax = 2
		s    = newSetup(t, lMax)
		rng  = rand.New(rand.NewSource(5))
		qs   = make([]quat.Number, 17)
	)
	for i := range qs {
		qs[i] = randomQuat(rng)
	}
	a, err := NewAssembler(s.model, s.gX, s.fs2, s.mi, &Options{ProcLimit: 3})
	require.NoError(t, err)
	{ // Results follow input order
		rates, done, err := a.Rates(context.Background(), qs)
		require.NoError(t, err)
		for i, q := range qs {
			r, _ := a.Rate(q)
			assert.Equal(t, r, rates[i])
			assert.True(t, done[i])
		}
	}
	{ // A bad rotation fails the sweep and names its index
		bad := append([]quat.Number{}, qs...)
		bad[9] = quat.Number{Real: 3}
		_, done, err := a.Rates(context.Background(), bad)
		var ce *types.ConfigurationError
		require.True(t, errors.As(err, &ce))
		assert.Contains(t, err.Error(), "rotation 9")
		assert.False(t, done[9])
	}
	{ // Cancelled sweeps compute nothing further
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rates, done, err := a.Rates(ctx, qs)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, rates, len(qs))
		for i := range done {
			assert.False(t, done[i])
		}
	}
	{ // Cancelling mid sweep keeps the rotations already stored
		const k = 5
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var calls []int
		seq, err := NewAssembler(s.model, s.gX, s.fs2, s.mi, &Options{
			ProcLimit: 1,
			Progress: func(i int) {
				calls = append(calls, i)
				if len(calls) == k {
					cancel()
				}
			},
		})
		require.NoError(t, err)
		rates, done, err := seq.Rates(ctx, qs)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, calls)
		for i, q := range qs {
			if i < k {
				r, _ := a.Rate(q)
				assert.True(t, done[i], "rotation %d", i)
				assert.Equal(t, r, rates[i])
			} else {
				assert.False(t, done[i], "rotation %d", i)
				assert.Equal(t, 0., rates[i])
			}
		}
	}
	{ // Progress sees every rotation once
		var count atomic.Int32
		par, err := NewAssembler(s.model, s.gX, s.fs2, s.mi, &Options{
			ProcLimit: 4,
			Progress:  func(int) { count.Add(1) },
		})
		require.NoError(t, err)
		_, _, err = par.Rates(context.Background(), qs)
		require.NoError(t, err)
		assert.Equal(t, int32(len(qs)), count.Load())
	}
}

func TestEndToEnd(t *testing.T) {
	var (
		ctx = context.Background()
		V   = 1.e-3
		Q   = 1.e3
		mX  = 1.e6
		k   = Q / (2. * mX * V)
		c1  = 2.
		c2  = 0.5
	)
	vB, _ := basis.NewTophat(1, V)
	qB, _ := basis.NewTophat(1, Q)
	model, err := kinematics.NewModel(0, mX, 1.e9, 0)
	require.NoError(t, err)
	gX, err := projection.ProjectF(ctx, func(ux, uy, uz float64) float64 { return c1 }, vB, 0, nil)
	require.NoError(t, err)
	fs2, err := projection.ProjectF(ctx, func(ux, uy, uz float64) float64 { return c2 }, qB, 0, nil)
	require.NoError(t, err)

	var (
		g000 = c1 * math.Sqrt(4*math.Pi/3)
		f000 = c2 * math.Sqrt(4*math.Pi/3)
		I000 = 2 * math.Pi * 3 * V * V * Q * Q * (0.25 - k*k/8)
		want = model.K0() * g000 * I000 * f000
	)
	rates, err := Evaluate(ctx, model, gX, fs2, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.InDelta(t, 1., rates[0]/want, 1.e-10)

	rates, err = Evaluate(ctx, model, gX, fs2, []quat.Number{{Real: 1}, rotation.FromEulerZYZ(0.3, 1.2, -2)}, nil, nil)
	require.NoError(t, err)
	// an isotropic problem is rotation invariant
	assert.InDelta(t, 1., rates[0]/want, 1.e-10)
	assert.InDelta(t, 1., rates[1]/want, 1.e-10)
}

func TestCompatibility(t *testing.T) {
	var (
		s   = newSetup(t, 2)
		rng = rand.New(rand.NewSource(1))
		ce  *types.ConfigurationError
	)
	{ // wrong uMax for the velocity projection
		vB, _ := basis.NewWavelet(4, 3.e-3)
		_, err := NewAssembler(s.model, randomProjection(t, rng, vB, 2), s.fs2, s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
	{ // wrong family for the momentum projection
		qB, _ := basis.NewWavelet(3, 3.e3)
		_, err := NewAssembler(s.model, s.gX, randomProjection(t, rng, qB, 2), s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
	{ // swapped projections
		_, err := NewAssembler(s.model, s.fs2, s.gX, s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
	{ // beyond the kinematic lMax
		_, err := NewAssembler(s.model, randomProjection(t, rng, s.vB, 3), randomProjection(t, rng, s.qB, 3), s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
	{ // differing lMax
		_, err := NewAssembler(s.model, randomProjection(t, rng, s.vB, 1), s.fs2, s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
	{ // another model
		m2 := s.model
		m2.MX *= 2
		_, err := NewAssembler(m2, s.gX, s.fs2, s.mi, nil)
		assert.True(t, errors.As(err, &ce))
	}
}
