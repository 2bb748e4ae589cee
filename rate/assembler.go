// Package rate contracts a velocity distribution and a momentum form factor,
// both given as projected coefficients, with the kinematic scattering matrix
// and an optional detector rotation:
//
//	R = (k0/Texp) sum_{l,n,n',m,m'} gX_{nlm} I^l_{nn'} G^l_{mm'} fs2_{n'lm'}
package rate

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/rotation"
	"github.com/govsdm/govsdm/types"
)

type Options struct {
	Texp      float64 // exposure; zero means 1
	ProcLimit int     // rotations evaluated at once by Rates, zero uses every CPU
	// Progress, when set, is called by Rates after rotation i is stored. It
	// may run on several goroutines at once.
	Progress func(i int)
}

func DefaultOptions() *Options {
	return &Options{Texp: 1}
}

// Assembler holds the partial rate matrices K^l = gX_l^T I^l fs2_l, so that
// each rotation costs sum_l (2l+1)^2 multiply-adds on top of building G.
type Assembler struct {
	Model kinematics.Model
	GX    *projection.ProjectedF
	FS2   *projection.ProjectedF
	McalI *kinematics.McalI
	LMax  int
	Opts  Options
	K     []*mat.Dense
	scale float64
}

// NewAssembler checks that gX lives on the velocity basis of mi, fs2 on its
// momentum basis, that neither reaches past mi.LMax and that mi was computed
// for model. Any mismatch is a ConfigurationError and no contraction is done.
func NewAssembler(model kinematics.Model, gX, fs2 *projection.ProjectedF, mi *kinematics.McalI, opts *Options) (a *Assembler, err error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err = checkCompatible(model, gX, fs2, mi); err != nil {
		return
	}
	if opts.Texp < 0 {
		err = types.NewConfigurationError("exposure %g must be positive", opts.Texp)
		return
	}
	a = &Assembler{
		Model: model,
		GX:    gX,
		FS2:   fs2,
		McalI: mi,
		LMax:  gX.LMax,
		Opts:  *opts,
		K:     make([]*mat.Dense, gX.LMax+1),
	}
	if a.Opts.Texp == 0 {
		a.Opts.Texp = 1
	}
	a.scale = model.K0() / a.Opts.Texp
	for l := 0; l <= a.LMax; l++ {
		if a.K[l], err = a.partial(l); err != nil {
			return nil, err
		}
	}
	return
}

func checkCompatible(model kinematics.Model, gX, fs2 *projection.ProjectedF, mi *kinematics.McalI) error {
	switch {
	case gX == nil || fs2 == nil || mi == nil:
		return types.NewConfigurationError("rate needs gX, fs2 and the kinematic matrix")
	case !gX.Basis.SameDomain(mi.VBasis):
		return types.NewConfigurationError("gX basis %s does not match the kinematic velocity basis %s",
			gX.Basis, mi.VBasis)
	case !fs2.Basis.SameDomain(mi.QBasis):
		return types.NewConfigurationError("fs2 basis %s does not match the kinematic momentum basis %s",
			fs2.Basis, mi.QBasis)
	case gX.LMax > mi.LMax || fs2.LMax > mi.LMax:
		return types.NewConfigurationError("projections with lMax %d and %d exceed the kinematic lMax %d",
			gX.LMax, fs2.LMax, mi.LMax)
	case gX.LMax != fs2.LMax:
		return types.NewConfigurationError("gX lMax %d differs from fs2 lMax %d", gX.LMax, fs2.LMax)
	case model != mi.Model:
		return types.NewConfigurationError("kinematic matrix was computed for %s, not %s", mi.Model, model)
	}
	return nil
}

func (a *Assembler) partial(l int) (K *mat.Dense, err error) {
	I, err := a.McalI.Block(l)
	if err != nil {
		return
	}
	gl, err := a.GX.Degree(l)
	if err != nil {
		return
	}
	fl, err := a.FS2.Degree(l)
	if err != nil {
		return
	}
	var W mat.Dense
	W.Mul(I.T(), gl.M)
	K = new(mat.Dense)
	K.Mul(W.T(), fl.M)
	return
}

// PartialRateMatrix returns K^l, rows indexed by the gX order m+l and
// columns by the fs2 order m'+l. The matrix is shared and must not be
// modified.
func (a *Assembler) PartialRateMatrix(l int) (*mat.Dense, error) {
	if l < 0 || l > a.LMax {
		return nil, types.NewIndexError("l", l, 0, a.LMax)
	}
	return a.K[l], nil
}

// Rate is the rate for the detector rotation q.
func (a *Assembler) Rate(q quat.Number) (float64, error) {
	op, err := rotation.NewOperator(q, a.LMax)
	if err != nil {
		return 0, err
	}
	return a.RateOperator(op)
}

// RateOperator is Rate for an already built rotation operator.
func (a *Assembler) RateOperator(op *rotation.Operator) (r float64, err error) {
	if op.LMax < a.LMax {
		err = types.NewConfigurationError("rotation built to lMax %d, rate needs %d", op.LMax, a.LMax)
		return
	}
	for l := 0; l <= a.LMax; l++ {
		G, _ := op.G(l)
		r += floats.Dot(G.RawMatrix().Data, a.K[l].RawMatrix().Data)
	}
	r *= a.scale
	return
}

// RateNoRotation skips the rotation contraction, G^l = 1.
func (a *Assembler) RateNoRotation() (r float64) {
	for l := 0; l <= a.LMax; l++ {
		r += mat.Trace(a.K[l])
	}
	return a.scale * r
}

// Rates evaluates one rate per rotation, in input order. On cancellation or
// the first failing rotation it stops scheduling; done marks the entries of
// rates that were computed and remain valid.
func (a *Assembler) Rates(ctx context.Context, qs []quat.Number) (rates []float64, done []bool, err error) {
	rates = make([]float64, len(qs))
	done = make([]bool, len(qs))
	limit := a.Opts.ProcLimit
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range qs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := a.Rate(qs[i])
			if err != nil {
				return fmt.Errorf("rotation %d: %w", i, err)
			}
			rates[i], done[i] = r, true
			if a.Opts.Progress != nil {
				a.Opts.Progress(i)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return
}

// Evaluate is the one-call entry point: it obtains the kinematic matrix for
// the two projections and the model from cache (or computes it when cache is
// nil) and returns one rate per rotation. An empty qs gives the unrotated
// rate.
func Evaluate(ctx context.Context, model kinematics.Model, gX, fs2 *projection.ProjectedF,
	qs []quat.Number, cache *kinematics.Cache, opts *Options) (rates []float64, err error) {
	if gX == nil || fs2 == nil {
		return nil, types.NewConfigurationError("rate needs gX and fs2")
	}
	if gX.LMax != fs2.LMax {
		return nil, types.NewConfigurationError("gX lMax %d differs from fs2 lMax %d", gX.LMax, fs2.LMax)
	}
	if cache == nil {
		cache = kinematics.NewCache(nil, nil)
	}
	var (
		mi   *kinematics.McalI
		a    *Assembler
		cw   *types.ConvergenceWarning
		warn error
	)
	if mi, err = cache.Get(ctx, gX.Basis, fs2.Basis, gX.LMax, model); err != nil {
		if !errors.As(err, &cw) {
			return
		}
		warn = err
	}
	if a, err = NewAssembler(model, gX, fs2, mi, opts); err != nil {
		return
	}
	if len(qs) == 0 {
		rates = []float64{a.RateNoRotation()}
	} else if rates, _, err = a.Rates(ctx, qs); err != nil {
		return
	}
	// a kinematic matrix short of its tolerance still gives usable rates
	err = warn
	return
}
