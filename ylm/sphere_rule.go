package ylm

import (
	"math"

	"github.com/govsdm/govsdm/utils"
)

// SphereRule is a product quadrature on the unit sphere: Gauss-Legendre in
// cos(theta) times the uniform rule in phi. It integrates every spherical
// polynomial of degree <= Degree exactly.
type SphereRule struct {
	Degree   int
	NTheta   int
	NPhi     int
	CosTheta []float64 // per node
	Phi      []float64 // per node
	Weight   []float64 // per node, sums to 4 pi
}

func NewSphereRule(degree int) (sr *SphereRule) {
	if degree < 0 {
		degree = 0
	}
	var (
		nTheta = degree/2 + 1
		nPhi   = degree + 1
	)
	if nTheta < 2 {
		nTheta = 2
	}
	X, W := utils.GaussLegendre(nTheta)
	sr = &SphereRule{
		Degree:   degree,
		NTheta:   nTheta,
		NPhi:     nPhi,
		CosTheta: make([]float64, 0, nTheta*nPhi),
		Phi:      make([]float64, 0, nTheta*nPhi),
		Weight:   make([]float64, 0, nTheta*nPhi),
	}
	dphi := 2 * math.Pi / float64(nPhi)
	for i := 0; i < nTheta; i++ {
		for j := 0; j < nPhi; j++ {
			sr.CosTheta = append(sr.CosTheta, X[i])
			sr.Phi = append(sr.Phi, float64(j)*dphi)
			sr.Weight = append(sr.Weight, W[i]*dphi)
		}
	}
	return
}

func (sr *SphereRule) Len() int { return len(sr.Weight) }

// Unit returns the Cartesian unit vector of node i.
func (sr *SphereRule) Unit(i int) (x, y, z float64) {
	ct := sr.CosTheta[i]
	st := math.Sqrt(math.Max(0, 1-ct*ct))
	sp, cp := math.Sincos(sr.Phi[i])
	return st * cp, st * sp, ct
}
