// Package kinematics holds the scattering Model and the kinematic scattering
// matrix McalI that couples a velocity basis to a momentum basis.
//
// Units are natural: masses, energies and momenta in eV, velocities in units
// of c.
package kinematics

import (
	"fmt"
	"math"

	"github.com/govsdm/govsdm/types"
)

const (
	SpeedOfLight = 299792.458 // km/s
	KmPerS       = 1. / SpeedOfLight
	AlphaEM      = 1. / 137.035999084
	MElectron    = 510998.95 // eV
	// QRef is the reference momentum of the dark matter form factor.
	QRef = AlphaEM * MElectron
)

// Model is the fixed scattering record. Build it with NewModel.
type Model struct {
	FDMn   int     // F_DM(q) = (QRef/q)^FDMn
	MX     float64 // dark matter mass
	MSM    float64 // target (Standard Model) mass
	DeltaE float64 // transition energy
}

func NewModel(fdmn int, mX, mSM, deltaE float64) (m Model, err error) {
	switch {
	case !(mX > 0) || math.IsInf(mX, 0):
		err = types.NewConfigurationError("dark matter mass must be positive and finite, have %g", mX)
	case !(mSM > 0) || math.IsInf(mSM, 0):
		err = types.NewConfigurationError("target mass must be positive and finite, have %g", mSM)
	case !(deltaE >= 0) || math.IsInf(deltaE, 0):
		err = types.NewConfigurationError("transition energy must be non-negative and finite, have %g", deltaE)
	}
	if err != nil {
		return
	}
	m = Model{FDMn: fdmn, MX: mX, MSM: mSM, DeltaE: deltaE}
	return
}

func (m Model) String() string {
	return fmt.Sprintf("Model{fdmn=%d, mX=%g eV, mSM=%g eV, deltaE=%g eV}", m.FDMn, m.MX, m.MSM, m.DeltaE)
}

func (m Model) ReducedMass() float64 {
	return m.MX * m.MSM / (m.MX + m.MSM)
}

// K0 is the rate prefactor 1/(2 mX mu^2); the density, reference cross
// section and target count are set to one.
func (m Model) K0() float64 {
	mu := m.ReducedMass()
	return 1. / (2. * m.MX * mu * mu)
}

// VMin is the smallest speed able to transfer momentum q while depositing
// DeltaE. It is +Inf at q = 0 unless DeltaE is zero.
func (m Model) VMin(q float64) float64 {
	if q <= 0 {
		if m.DeltaE == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return q/(2.*m.MX) + m.DeltaE/q
}

// FDM2 is the squared form factor (QRef/q)^(2 FDMn).
func (m Model) FDM2(q float64) float64 {
	if m.FDMn == 0 {
		return 1
	}
	return math.Pow(QRef/q, float64(2*m.FDMn))
}

// QRange returns the open momentum window in which VMin(q) < v. ok is false
// when no momentum can be transferred at speed v.
func (m Model) QRange(v float64) (qLo, qHi float64, ok bool) {
	if !(v > 0) {
		return
	}
	var (
		a    = m.MX * v
		disc = a*a - 2.*m.MX*m.DeltaE
	)
	if disc <= 0 {
		return
	}
	s := math.Sqrt(disc)
	qLo, qHi, ok = a-s, a+s, true
	if m.DeltaE == 0 {
		qLo = 0
	} else {
		// product of the roots is 2 mX DeltaE, avoid cancellation in a - s
		qLo = 2. * m.MX * m.DeltaE / qHi
	}
	return
}
