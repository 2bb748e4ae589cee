package utils

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// GaussLegendre returns the N point Gauss-Legendre nodes and weights on [-1,1].
func GaussLegendre(N int) (X, W []float64) {
	X, W = make([]float64, N), make([]float64, N)
	quad.Legendre{}.FixedLocations(X, W, -1, 1)
	return
}

// QuadStats summarizes one adaptive integration.
type QuadStats struct {
	Panels   int     // panels accepted
	Failed   int     // panels accepted without meeting tolerance
	MaxError float64 // largest error estimate among failed panels
}

func (qs *QuadStats) Merge(o QuadStats) {
	qs.Panels += o.Panels
	qs.Failed += o.Failed
	if o.MaxError > qs.MaxError {
		qs.MaxError = o.MaxError
	}
}

func (qs QuadStats) Converged() bool { return qs.Failed == 0 }

// AdaptiveIntegrator integrates vector valued functions over an interval by
// bisection of Gauss-Legendre panels. A panel is accepted when the sum over
// its two halves agrees with the whole panel estimate; refinement stops at
// MaxDepth or once MaxPanels panels have been spent, and the remaining
// panels are accepted and counted as failed.
type AdaptiveIntegrator struct {
	Order     int
	RelTol    float64
	AbsTol    float64
	MaxDepth  int
	MaxPanels int
	x, w      []float64
}

func NewAdaptiveIntegrator(order int, relTol, absTol float64, maxDepth, maxPanels int) (ai *AdaptiveIntegrator) {
	if order < 1 {
		order = DefaultQuadOrder
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	if maxPanels < 1 {
		maxPanels = DefaultMaxPanels
	}
	ai = &AdaptiveIntegrator{
		Order:     order,
		RelTol:    relTol,
		AbsTol:    absTol,
		MaxDepth:  maxDepth,
		MaxPanels: maxPanels,
	}
	ai.x, ai.w = GaussLegendre(order)
	return
}

// Fixed applies the panel rule once on [a,b], adding into res.
func (ai *AdaptiveIntegrator) Fixed(f func(x float64, out []float64), a, b float64, res []float64) {
	var (
		half = 0.5 * (b - a)
		mid  = 0.5 * (b + a)
		fx   = make([]float64, len(res))
	)
	for i, xi := range ai.x {
		for j := range fx {
			fx[j] = 0
		}
		f(mid+half*xi, fx)
		wt := half * ai.w[i]
		for j, v := range fx {
			res[j] += wt * v
		}
	}
}

// Integrate integrates f over [a,b] where f writes dim values into out.
func (ai *AdaptiveIntegrator) Integrate(f func(x float64, out []float64), a, b float64, dim int) (res []float64, st QuadStats) {
	res = make([]float64, dim)
	if b <= a {
		return
	}
	whole := make([]float64, dim)
	ai.Fixed(f, a, b, whole)
	budget := ai.MaxPanels
	ai.refine(f, a, b, whole, 0, &budget, res, &st)
	return
}

// IntegrateScalar is Integrate for a scalar integrand.
func (ai *AdaptiveIntegrator) IntegrateScalar(f func(x float64) float64, a, b float64) (res float64, st QuadStats) {
	var r []float64
	r, st = ai.Integrate(func(x float64, out []float64) { out[0] = f(x) }, a, b, 1)
	return r[0], st
}

func (ai *AdaptiveIntegrator) refine(f func(x float64, out []float64), a, b float64,
	whole []float64, depth int, budget *int, res []float64, st *QuadStats) {
	var (
		dim   = len(whole)
		m     = 0.5 * (a + b)
		left  = make([]float64, dim)
		right = make([]float64, dim)
	)
	ai.Fixed(f, a, m, left)
	ai.Fixed(f, m, b, right)
	*budget -= 2
	var errEst, scale float64
	for j := 0; j < dim; j++ {
		sum := left[j] + right[j]
		if e := math.Abs(sum - whole[j]); e > errEst {
			errEst = e
		}
		if s := math.Abs(sum); s > scale {
			scale = s
		}
	}
	tol := math.Max(ai.AbsTol, ai.RelTol*scale)
	if errEst <= tol || math.IsNaN(errEst) || depth >= ai.MaxDepth || *budget <= 0 {
		for j := 0; j < dim; j++ {
			res[j] += left[j] + right[j]
		}
		st.Panels += 2
		if !(errEst <= tol) {
			st.Failed++
			if errEst > st.MaxError || math.IsNaN(errEst) {
				st.MaxError = errEst
			}
		}
		return
	}
	ai.refine(f, a, m, left, depth+1, budget, res, st)
	ai.refine(f, m, b, right, depth+1, budget, res, st)
}
