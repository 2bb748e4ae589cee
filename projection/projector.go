package projection

import (
	"context"
	"math"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
	"github.com/govsdm/govsdm/ylm"
)

// Field is a scalar function of the physical vector u = (ux, uy, uz).
type Field func(ux, uy, uz float64) float64

// RadialBreaks returns the physical radii at which a field jumps along the
// ray through the unit vector (dx, dy, dz).
type RadialBreaks func(dx, dy, dz float64) []float64

type Options struct {
	// AngularDegree is the polynomial degree integrated exactly by the
	// sphere rule; zero selects 2*LMax + 2.
	AngularDegree int
	QuadOrder     int     // Gauss-Legendre points per radial panel
	RelTol        float64 // panel acceptance, relative to the panel result
	AbsTol        float64
	MaxDepth      int // bisection depth per radial integral
	MaxPanels     int // panel budget per radial integral
	// ZeroTol stores coefficients with |f_nlm| < ZeroTol as exact zero.
	ZeroTol   float64
	ProcLimit int // worker count, zero uses every CPU
}

func DefaultOptions() *Options {
	return &Options{
		QuadOrder: utils.DefaultQuadOrder,
		RelTol:    utils.DefaultRelTol,
		AbsTol:    utils.DefaultAbsTol,
		MaxDepth:  utils.DefaultMaxDepth,
		MaxPanels: utils.DefaultMaxPanels,
	}
}

// Projector holds the angular rule and harmonic table for one (basis, lMax)
// and can be reused across fields. It is safe for concurrent use.
type Projector struct {
	Basis basis.Basis
	LMax  int
	Opts  Options
	rule  *ylm.SphereRule
	wY    utils.Matrix // weight * Y_lm at each angular node
	ux    [][3]float64 // angular node unit vectors
}

func NewProjector(b basis.Basis, lMax int, opts *Options) (p *Projector, err error) {
	if b == nil {
		err = types.NewConfigurationError("projector needs a basis")
		return
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	var (
		e *ylm.Evaluator
	)
	if e, err = ylm.NewEvaluator(lMax); err != nil {
		return
	}
	p = &Projector{
		Basis: b,
		LMax:  lMax,
		Opts:  *opts,
	}
	if p.Opts.AngularDegree <= 0 {
		p.Opts.AngularDegree = 2*lMax + 2
	}
	if p.Opts.AngularDegree < lMax {
		err = types.NewConfigurationError("angular degree %d cannot resolve lMax = %d",
			p.Opts.AngularDegree, lMax)
		return
	}
	p.rule = ylm.NewSphereRule(p.Opts.AngularDegree)
	p.wY = e.EvalBatch(p.rule.CosTheta, p.rule.Phi)
	var (
		nlm  = types.LMCount(lMax)
		data = p.wY.Data()
	)
	p.ux = make([][3]float64, p.rule.Len())
	for k := 0; k < p.rule.Len(); k++ {
		for i := 0; i < nlm; i++ {
			data[k*nlm+i] *= p.rule.Weight[k]
		}
		x, y, z := p.rule.Unit(k)
		p.ux[k] = [3]float64{x, y, z}
	}
	p.wY.SetReadOnly("weighted harmonics")
	return
}

// AngularNodes is the number of field evaluations per radial node.
func (p *Projector) AngularNodes() int { return p.rule.Len() }

// ProjectF computes the coefficients of f. Each cell of the basis grid (one
// tophat bin, or one finest dyadic interval) is integrated on its own, so no
// radial panel spans a basis discontinuity. When a cell exhausts its budget
// the best-effort result is returned together with a
// *types.ConvergenceWarning.
func (p *Projector) ProjectF(ctx context.Context, f Field) (pf *ProjectedF, err error) {
	return p.ProjectFBreaks(ctx, f, nil)
}

// ProjectFBreaks is ProjectF for a field that jumps along rays from the
// origin. Every ray is split at its breaks as well as at the cell edges, so
// each radial panel sees a smooth integrand.
func (p *Projector) ProjectFBreaks(ctx context.Context, f Field, breaks RadialBreaks) (pf *ProjectedF, err error) {
	var (
		edges     = p.Basis.Edges()
		nCells    = len(edges) - 1
		nlm       = types.LMCount(p.LMax)
		uMax      = p.Basis.UMax()
		cellM     = make([][]float64, nCells)
		stats     = make([]utils.QuadStats, nCells)
		bad       = make([]bool, nCells)
		rayBreaks = make([][]float64, len(p.ux)) // dimensionless, per angular node
	)
	if breaks != nil {
		for k, d := range p.ux {
			for _, r := range breaks(d[0], d[1], d[2]) {
				if x := r / uMax; x > 0 && x < 1 {
					rayBreaks[k] = append(rayBreaks[k], x)
				}
			}
		}
	}
	ai := utils.NewAdaptiveIntegrator(p.Opts.QuadOrder, p.Opts.RelTol, p.Opts.AbsTol,
		p.Opts.MaxDepth, p.Opts.MaxPanels)
	utils.ParallelFor(p.Opts.ProcLimit, nCells, func(bucket, kMin, kMax int) {
		wY := p.wY.Data()
		for c := kMin; c < kMax; c++ {
			if ctx.Err() != nil {
				return
			}
			M := make([]float64, nlm)
			for k, d := range p.ux {
				ray := func(x float64) float64 {
					u := uMax * x
					return f(u*d[0], u*d[1], u*d[2]) * x * x
				}
				var (
					bp  = utils.MergeBreakpoints(edges[c], edges[c+1], rayBreaks[k]...)
					sum float64
				)
				for j := 0; j+1 < len(bp); j++ {
					v, st := ai.IntegrateScalar(ray, bp[j], bp[j+1])
					sum += v
					stats[c].Merge(st)
				}
				if sum == 0 {
					continue
				}
				for i, w := range wY[k*nlm : (k+1)*nlm] {
					M[i] += sum * w
				}
			}
			cellM[c] = M
			bad[c] = !utils.IsFinite(M)
		}
	})
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	var st utils.QuadStats
	for c := 0; c < nCells; c++ {
		if bad[c] {
			return nil, types.NewConfigurationError("field is not finite on [%g, %g] of the radial grid",
				edges[c]*uMax, edges[c+1]*uMax)
		}
		st.Merge(stats[c])
	}

	coeffs := make([]float64, p.Basis.NMax()*nlm)
	for n := 0; n < p.Basis.NMax(); n++ {
		out := coeffs[n*nlm : (n+1)*nlm]
		for c := 0; c < nCells; c++ {
			rn := p.Basis.CellValue(n, c)
			if rn == 0 {
				continue
			}
			for i, v := range cellM[c] {
				out[i] += rn * v
			}
		}
	}
	if p.Opts.ZeroTol > 0 {
		for i, v := range coeffs {
			if math.Abs(v) < p.Opts.ZeroTol {
				coeffs[i] = 0
			}
		}
	}
	if pf, err = NewProjectedF(p.Basis, p.LMax, coeffs, st.Converged()); err != nil {
		return
	}
	if !st.Converged() {
		err = &types.ConvergenceWarning{
			Stage:    "projection",
			Panels:   st.Failed,
			Budget:   p.Opts.MaxPanels,
			MaxError: st.MaxError,
		}
	}
	return
}

// ProjectF is a one-shot NewProjector + Projector.ProjectF.
func ProjectF(ctx context.Context, f Field, b basis.Basis, lMax int, opts *Options) (*ProjectedF, error) {
	p, err := NewProjector(b, lMax, opts)
	if err != nil {
		return nil, err
	}
	return p.ProjectF(ctx, f)
}
