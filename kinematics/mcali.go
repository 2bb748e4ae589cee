package kinematics

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/zeebo/xxh3"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
)

type Options struct {
	QuadOrder int
	RelTol    float64
	AbsTol    float64
	MaxDepth  int
	MaxPanels int // per (n, n') pair
	ProcLimit int
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

// McalI is the kinematic scattering matrix
//
//	I^l_{nn'} = 2 pi vMax^2 qMax^2 int_0^1 dx x r_n'(x) F_DM^2(qMax x) T_n^l(vMin(qMax x)/vMax)
//
// where T_n^l(t) = int x r_n(x) P_l(t/x) dx over x > t is the exact
// Legendre transform of the velocity basis. It is read-only once built and
// may be shared between goroutines.
type McalI struct {
	VBasis    basis.Basis
	QBasis    basis.Basis
	LMax      int
	Model     Model
	Converged bool
	data      []float64 // [l][n][n']
	key       uint64
}

// NewMcalI computes every (l, n, n') entry. The q integral for each (n, n')
// runs over the closed-form window VMin(q) < vMax*hi(n) only, split at the
// q basis breakpoints and at the momenta where VMin crosses a velocity basis
// breakpoint, so every panel sees an analytic integrand. Pairs with an empty
// window are exactly zero for every l.
func NewMcalI(ctx context.Context, vB, qB basis.Basis, lMax int, model Model, opts *Options) (mi *McalI, err error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err = checkInputs(vB, qB, lMax, model); err != nil {
		return
	}
	var (
		nV    = vB.NMax()
		nQ    = qB.NMax()
		nL    = lMax + 1
		stats = make([]utils.QuadStats, nV*nQ)
		errs  = make([]error, nV*nQ)
	)
	mi = &McalI{
		VBasis: vB,
		QBasis: qB,
		LMax:   lMax,
		Model:  model,
		data:   make([]float64, nL*nV*nQ),
		key:    Fingerprint(vB, qB, lMax, model, opts),
	}
	ai := utils.NewAdaptiveIntegrator(opts.QuadOrder, opts.RelTol, opts.AbsTol, opts.MaxDepth, opts.MaxPanels)
	utils.ParallelFor(opts.ProcLimit, nV*nQ, func(bucket, kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			if ctx.Err() != nil {
				return
			}
			var (
				n, np = k / nQ, k % nQ
				vals  []float64
			)
			if vals, stats[k], errs[k] = mi.entry(ai, n, np); errs[k] != nil {
				return
			}
			for l, v := range vals {
				mi.data[(l*nV+n)*nQ+np] = v
			}
		}
	})
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	var st utils.QuadStats
	for k := range errs {
		if errs[k] != nil {
			return nil, errs[k]
		}
		st.Merge(stats[k])
	}
	mi.Converged = st.Converged()
	if !mi.Converged {
		err = &types.ConvergenceWarning{
			Stage:    "kinematic matrix",
			Panels:   st.Failed,
			Budget:   opts.MaxPanels,
			MaxError: st.MaxError,
		}
	}
	return
}

func checkInputs(vB, qB basis.Basis, lMax int, model Model) error {
	if vB == nil || qB == nil {
		return types.NewConfigurationError("kinematic matrix needs a velocity and a momentum basis")
	}
	if lMax < 0 || lMax > basis.MaxLegendreDegree {
		return types.NewIndexError("lMax", lMax, 0, basis.MaxLegendreDegree)
	}
	if !(model.MX > 0) || !(model.MSM > 0) || !(model.DeltaE >= 0) {
		return types.NewConfigurationError("invalid %s", model)
	}
	if model.FDMn >= 1 && model.DeltaE == 0 {
		return types.NewConfigurationError("%s: form factor diverges at q = 0 with no energy threshold", model)
	}
	return nil
}

// Window returns the dimensionless momentum interval of basis function n'
// that can be reached by velocity basis function n. ok is false when the
// pair is kinematically forbidden.
func (mi *McalI) Window(n, np int) (x1, x2 float64, ok bool) {
	return window(mi.VBasis, mi.QBasis, mi.Model, n, np)
}

func window(vB, qB basis.Basis, model Model, n, np int) (x1, x2 float64, ok bool) {
	_, vHi, err := vB.Support(n)
	if err != nil {
		return
	}
	qLo, qHi, err := qB.Support(np)
	if err != nil {
		return
	}
	var (
		qMax   = qB.UMax()
		q1, q2 float64
	)
	if q1, q2, ok = model.QRange(vB.UMax() * vHi); !ok {
		return
	}
	x1, x2 = math.Max(qLo, q1/qMax), math.Min(qHi, q2/qMax)
	ok = x2 > x1
	return
}

func (mi *McalI) entry(ai *utils.AdaptiveIntegrator, n, np int) (vals []float64, st utils.QuadStats, err error) {
	var (
		nL     = mi.LMax + 1
		vMax   = mi.VBasis.UMax()
		qMax   = mi.QBasis.UMax()
		x1, x2 float64
		ok     bool
	)
	vals = make([]float64, nL)
	if x1, x2, ok = mi.Window(n, np); !ok {
		return
	}
	var (
		qBP, vBP []float64
		pts      []float64
		vHi      float64
	)
	if qBP, err = mi.QBasis.Breakpoints(np); err != nil {
		return
	}
	if vBP, err = mi.VBasis.Breakpoints(n); err != nil {
		return
	}
	vHi = vBP[len(vBP)-1]
	pts = append(pts, qBP...)
	for _, b := range vBP {
		if q1, q2, ok := mi.Model.QRange(vMax * b); ok {
			pts = append(pts, q1/qMax, q2/qMax)
		}
	}
	var (
		integrand = func(x float64, out []float64) {
			q := qMax * x
			t := mi.Model.VMin(q) / vMax
			if t >= vHi {
				return
			}
			rq, _ := mi.QBasis.Evaluate(np, x)
			w := x * rq * mi.Model.FDM2(q)
			if w == 0 {
				return
			}
			for l := 0; l < nL; l++ {
				lt, _ := mi.VBasis.LegendreTransform(n, l, t)
				out[l] = w * lt
			}
		}
		bp = utils.MergeBreakpoints(x1, x2, pts...)
	)
	for i := 0; i < len(bp)-1; i++ {
		res, pst := ai.Integrate(integrand, bp[i], bp[i+1], nL)
		st.Merge(pst)
		for l := range vals {
			vals[l] += res[l]
		}
	}
	scale := 2. * math.Pi * vMax * vMax * qMax * qMax
	for l := range vals {
		vals[l] *= scale
	}
	if !utils.IsFinite(vals) {
		err = types.NewConfigurationError("kinematic matrix entry (n=%d, n'=%d) is not finite for %s", n, np, mi.Model)
	}
	return
}

func (mi *McalI) NV() int { return mi.VBasis.NMax() }
func (mi *McalI) NQ() int { return mi.QBasis.NMax() }

func (mi *McalI) String() string {
	return fmt.Sprintf("McalI{v: %s, q: %s, lMax=%d, %s}", mi.VBasis, mi.QBasis, mi.LMax, mi.Model)
}

// At returns I^l_{nn'}.
func (mi *McalI) At(l, n, np int) (float64, error) {
	switch {
	case l < 0 || l > mi.LMax:
		return 0, types.NewIndexError("l", l, 0, mi.LMax)
	case n < 0 || n >= mi.NV():
		return 0, types.NewIndexError("n", n, 0, mi.NV()-1)
	case np < 0 || np >= mi.NQ():
		return 0, types.NewIndexError("n'", np, 0, mi.NQ()-1)
	}
	return mi.data[(l*mi.NV()+n)*mi.NQ()+np], nil
}

// Block returns the NV x NQ matrix I^l as CSR. Forbidden pairs are
// structural zeros.
func (mi *McalI) Block(l int) (B *sparse.CSR, err error) {
	if l < 0 || l > mi.LMax {
		err = types.NewIndexError("l", l, 0, mi.LMax)
		return
	}
	var (
		nV, nQ = mi.NV(), mi.NQ()
		dok    = sparse.NewDOK(nV, nQ)
		off    = l * nV * nQ
	)
	for n := 0; n < nV; n++ {
		for np := 0; np < nQ; np++ {
			if v := mi.data[off+n*nQ+np]; v != 0 {
				dok.Set(n, np, v)
			}
		}
	}
	B = dok.ToCSR()
	return
}

// NonZero counts the non-zero entries over all l.
func (mi *McalI) NonZero() (nnz int) {
	for _, v := range mi.data {
		if v != 0 {
			nnz++
		}
	}
	return
}

// Fingerprint identifies the inputs this matrix was computed from.
func (mi *McalI) Fingerprint() uint64 { return mi.key }

// Fingerprint hashes everything NewMcalI depends on.
func Fingerprint(vB, qB basis.Basis, lMax int, model Model, opts *Options) uint64 {
	if opts == nil {
		opts = DefaultOptions()
	}
	buf := make([]byte, 0, 128)
	putBasis := func(b basis.Basis) {
		buf = append(buf, byte(b.Type()))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.NMax()))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(b.UMax()))
	}
	putF := func(vals ...float64) {
		for _, v := range vals {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	putBasis(vB)
	putBasis(qB)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(lMax))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(model.FDMn)))
	putF(model.MX, model.MSM, model.DeltaE)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(opts.QuadOrder))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(opts.MaxDepth))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(opts.MaxPanels))
	putF(opts.RelTol, opts.AbsTol)
	return xxh3.Hash(buf)
}
