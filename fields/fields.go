// Package fields provides the analytic velocity distributions and form
// factors used as projection inputs.
package fields

import (
	"fmt"
	"math"

	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/types"
)

// Standard halo model defaults, km/s.
const (
	DefaultV0     = 238.
	DefaultVEsc   = 544.
	DefaultVEarth = 250.5
)

// DefaultFSSigma is the form factor width, eV: a few times alpha*m_e, where
// atomic electron form factors fall off.
const DefaultFSSigma = 4000.

// SHM is the standard halo model in the lab frame,
//
//	g(v) = N exp(-|v + vE|^2 / v0^2)   for |v + vE| < vEsc
//
// normalized to one over the escape ball. Speeds are in units of c.
type SHM struct {
	V0, VEsc float64
	VEarth   [3]float64
	norm     float64
}

func NewSHM(v0, vEsc float64, vEarth [3]float64) (s *SHM, err error) {
	if !(v0 > 0) || !(vEsc > 0) {
		err = types.NewConfigurationError("halo model needs v0 > 0 and vEsc > 0, have %g and %g", v0, vEsc)
		return
	}
	z := vEsc / v0
	s = &SHM{
		V0:     v0,
		VEsc:   vEsc,
		VEarth: vEarth,
		norm: 1. / (math.Pow(math.Pi, 1.5) * v0 * v0 * v0 *
			(math.Erf(z) - 2*z/math.Sqrt(math.Pi)*math.Exp(-z*z))),
	}
	return
}

// DefaultSHM uses v0 = 238 km/s, vEsc = 544 km/s and the Earth moving at
// 250.5 km/s along +z.
func DefaultSHM() *SHM {
	s, _ := NewSHM(DefaultV0*kinematics.KmPerS, DefaultVEsc*kinematics.KmPerS,
		[3]float64{0, 0, DefaultVEarth * kinematics.KmPerS})
	return s
}

// MaxSpeed is the largest lab frame speed with g > 0.
func (s *SHM) MaxSpeed() float64 {
	ve := s.VEarth
	return s.VEsc + math.Sqrt(ve[0]*ve[0]+ve[1]*ve[1]+ve[2]*ve[2])
}

func (s *SHM) Eval(vx, vy, vz float64) float64 {
	var (
		wx, wy, wz = vx + s.VEarth[0], vy + s.VEarth[1], vz + s.VEarth[2]
		w2         = wx*wx + wy*wy + wz*wz
	)
	if w2 >= s.VEsc*s.VEsc {
		return 0
	}
	return s.norm * math.Exp(-w2/(s.V0*s.V0))
}

func (s *SHM) Field() projection.Field { return s.Eval }

// RadialBreaks returns the radii where the ray through the unit vector d
// leaves the escape ball, the positive roots of |u d + vE| = vEsc.
func (s *SHM) RadialBreaks(dx, dy, dz float64) (r []float64) {
	var (
		ve   = s.VEarth
		b    = dx*ve[0] + dy*ve[1] + dz*ve[2]
		c    = ve[0]*ve[0] + ve[1]*ve[1] + ve[2]*ve[2] - s.VEsc*s.VEsc
		disc = b*b - c
	)
	if disc <= 0 {
		return
	}
	sq := math.Sqrt(disc)
	// u^2 + 2 b u + c = 0, the far root first to avoid cancellation
	far := -b + sq
	if b > 0 {
		far = -b - sq
	}
	if far == 0 {
		return
	}
	for _, u := range []float64{far, c / far} {
		if u > 0 {
			r = append(r, u)
		}
	}
	return
}

func (s *SHM) String() string {
	return fmt.Sprintf("SHM{v0=%g, vEsc=%g, vE=%v}", s.V0, s.VEsc, s.VEarth)
}

// Gaussian is an anisotropic Gaussian, used as a momentum form factor:
//
//	A exp(-sum_i (q_i - c_i)^2 / (2 sigma_i^2))
type Gaussian struct {
	Amplitude float64
	Center    [3]float64
	Sigma     [3]float64
}

func NewGaussian(amplitude float64, center, sigma [3]float64) (g *Gaussian, err error) {
	for i, s := range sigma {
		if !(s > 0) {
			err = types.NewConfigurationError("gaussian width sigma[%d] = %g must be positive", i, s)
			return
		}
	}
	g = &Gaussian{Amplitude: amplitude, Center: center, Sigma: sigma}
	return
}

func (g *Gaussian) Eval(qx, qy, qz float64) float64 {
	var sum float64
	for i, q := range [3]float64{qx, qy, qz} {
		d := (q - g.Center[i]) / g.Sigma[i]
		sum += d * d
	}
	return g.Amplitude * math.Exp(-0.5*sum)
}

func (g *Gaussian) Field() projection.Field { return g.Eval }

func Constant(c float64) projection.Field {
	return func(ux, uy, uz float64) float64 { return c }
}
