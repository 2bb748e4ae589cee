package InputParameters

import (
	"fmt"
	"math"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/fields"
	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/rate"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
)

// RunParameters is the YAML run file. Speeds are in km/s; masses, energies
// and momenta in eV.
type RunParameters struct {
	Title string `yaml:"Title"`
	// Velocity basis
	VBasis string  `yaml:"VBasis"`
	VNMax  int     `yaml:"VNMax"`
	VMax   float64 `yaml:"VMax"`
	// Momentum basis
	QBasis string  `yaml:"QBasis"`
	QNMax  int     `yaml:"QNMax"`
	QMax   float64 `yaml:"QMax"`
	LMax   int     `yaml:"LMax"`
	// Model, in NewModel order
	FDMn   int     `yaml:"FDMn"`
	MX     float64 `yaml:"MX"`
	MSM    float64 `yaml:"MSM"`
	DeltaE float64 `yaml:"DeltaE"`
	Texp   float64 `yaml:"Texp"`
	// Standard halo model
	V0     float64    `yaml:"V0"`
	VEsc   float64    `yaml:"VEsc"`
	VEarth [3]float64 `yaml:"VEarth"`
	// Gaussian momentum form factor
	FSAmplitude float64    `yaml:"FSAmplitude"`
	FSCenter    [3]float64 `yaml:"FSCenter"`
	FSSigma     [3]float64 `yaml:"FSSigma"`
	// Numerics
	QuadOrder     int     `yaml:"QuadOrder"`
	RelTol        float64 `yaml:"RelTol"`
	AbsTol        float64 `yaml:"AbsTol"`
	MaxDepth      int     `yaml:"MaxDepth"`
	MaxPanels     int     `yaml:"MaxPanels"`
	ZeroTol       float64 `yaml:"ZeroTol"`
	AngularDegree int     `yaml:"AngularDegree"`
	ProcLimit     int     `yaml:"ProcLimit"`
	// Detector orientations as (w, x, y, z)
	Rotations [][4]float64 `yaml:"Rotations"`
}

const ExampleFile = `
########################################
Title: "SHM electron scattering"
VBasis: wavelet
VNMax: 64
VMax: 960       # km/s
QBasis: tophat
QNMax: 32
QMax: 20000     # eV
LMax: 6
FDMn: 2
MX: 100000000   # eV
MSM: 511000     # eV
DeltaE: 4.03    # eV
Texp: 1
V0: 238
VEsc: 544
VEarth: [0, 0, 250.5]
FSAmplitude: 1.
FSCenter: [0, 0, 0]
FSSigma: [4000, 4000, 6000]
Rotations:
  - [1, 0, 0, 0]
  - [0.7071067811865476, 0.7071067811865476, 0, 0]
########################################
`

// NewRunParameters returns the numerical defaults, used for every field a
// run file leaves out.
func NewRunParameters() *RunParameters {
	return &RunParameters{
		Title:       "govsdm run",
		VBasis:      "wavelet",
		QBasis:      "wavelet",
		Texp:        1,
		V0:          fields.DefaultV0,
		VEsc:        fields.DefaultVEsc,
		VEarth:      [3]float64{0, 0, fields.DefaultVEarth},
		FSAmplitude: 1,
		FSSigma:     [3]float64{fields.DefaultFSSigma, fields.DefaultFSSigma, fields.DefaultFSSigma},
		QuadOrder:   utils.DefaultQuadOrder,
		RelTol:      utils.DefaultRelTol,
		AbsTol:      utils.DefaultAbsTol,
		MaxDepth:    utils.DefaultMaxDepth,
		MaxPanels:   utils.DefaultMaxPanels,
	}
}

func (rp *RunParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, rp)
}

func (rp *RunParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("[%s] nMax=%d vMax=%g km/s\t= Velocity Basis\n", rp.VBasis, rp.VNMax, rp.VMax)
	fmt.Printf("[%s] nMax=%d qMax=%g eV\t= Momentum Basis\n", rp.QBasis, rp.QNMax, rp.QMax)
	fmt.Printf("[%d]\t\t\t\t= LMax\n", rp.LMax)
	fmt.Printf("fdmn=%d mX=%g mSM=%g deltaE=%g\t= Model\n", rp.FDMn, rp.MX, rp.MSM, rp.DeltaE)
	fmt.Printf("%8.5f\t\t= Texp\n", rp.Texp)
	fmt.Printf("v0=%g vEsc=%g vE=%v\t= Halo\n", rp.V0, rp.VEsc, rp.VEarth)
	fmt.Printf("A=%g c=%v sigma=%v\t= Form Factor\n", rp.FSAmplitude, rp.FSCenter, rp.FSSigma)
	fmt.Printf("order=%d relTol=%g absTol=%g depth=%d panels=%d\t= Quadrature\n",
		rp.QuadOrder, rp.RelTol, rp.AbsTol, rp.MaxDepth, rp.MaxPanels)
	fmt.Printf("[%d]\t\t\t\t= Rotations\n", len(rp.Rotations))
}

// Validate checks everything the computation would otherwise reject later.
func (rp *RunParameters) Validate() (err error) {
	if _, _, err = rp.Bases(); err != nil {
		return
	}
	if rp.LMax < 0 || rp.LMax > basis.MaxLegendreDegree {
		return types.NewIndexError("LMax", rp.LMax, 0, basis.MaxLegendreDegree)
	}
	if _, err = rp.Model(); err != nil {
		return
	}
	if rp.Texp <= 0 {
		return types.NewConfigurationError("Texp = %g must be positive", rp.Texp)
	}
	if _, err = rp.VelocityField(); err != nil {
		return
	}
	if _, err = rp.MomentumField(); err != nil {
		return
	}
	_, err = rp.Quaternions()
	return
}

func (rp *RunParameters) Bases() (vB, qB basis.Basis, err error) {
	var bt basis.Type
	if bt, err = basis.ParseType(rp.VBasis); err != nil {
		return
	}
	if vB, err = basis.New(bt, rp.VNMax, rp.VMax*kinematics.KmPerS); err != nil {
		return
	}
	if bt, err = basis.ParseType(rp.QBasis); err != nil {
		return
	}
	qB, err = basis.New(bt, rp.QNMax, rp.QMax)
	return
}

func (rp *RunParameters) Model() (kinematics.Model, error) {
	return kinematics.NewModel(rp.FDMn, rp.MX, rp.MSM, rp.DeltaE)
}

func (rp *RunParameters) VelocityField() (*fields.SHM, error) {
	vE := rp.VEarth
	for i := range vE {
		vE[i] *= kinematics.KmPerS
	}
	return fields.NewSHM(rp.V0*kinematics.KmPerS, rp.VEsc*kinematics.KmPerS, vE)
}

func (rp *RunParameters) MomentumField() (*fields.Gaussian, error) {
	return fields.NewGaussian(rp.FSAmplitude, rp.FSCenter, rp.FSSigma)
}

// Quaternions converts Rotations; the norm policy is applied by the rotation
// package.
func (rp *RunParameters) Quaternions() (qs []quat.Number, err error) {
	return ToQuaternions(rp.Rotations)
}

// ToQuaternions rejects rows that are not finite.
func ToQuaternions(rows [][4]float64) (qs []quat.Number, err error) {
	qs = make([]quat.Number, len(rows))
	for i, r := range rows {
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, types.NewConfigurationError("rotation %d = %v is not finite", i, r)
			}
		}
		qs[i] = quat.Number{Real: r[0], Imag: r[1], Jmag: r[2], Kmag: r[3]}
	}
	return
}

func (rp *RunParameters) ProjectionOptions() *projection.Options {
	return &projection.Options{
		AngularDegree: rp.AngularDegree,
		QuadOrder:     rp.QuadOrder,
		RelTol:        rp.RelTol,
		AbsTol:        rp.AbsTol,
		MaxDepth:      rp.MaxDepth,
		MaxPanels:     rp.MaxPanels,
		ZeroTol:       rp.ZeroTol,
		ProcLimit:     rp.ProcLimit,
	}
}

func (rp *RunParameters) KinematicsOptions() *kinematics.Options {
	return &kinematics.Options{
		QuadOrder: rp.QuadOrder,
		RelTol:    rp.RelTol,
		AbsTol:    rp.AbsTol,
		MaxDepth:  rp.MaxDepth,
		MaxPanels: rp.MaxPanels,
		ProcLimit: rp.ProcLimit,
	}
}

func (rp *RunParameters) RateOptions() *rate.Options {
	return &rate.Options{Texp: rp.Texp, ProcLimit: rp.ProcLimit}
}

// RotationFile is a standalone list of detector orientations.
type RotationFile struct {
	Rotations [][4]float64 `yaml:"Rotations"`
}

func (rf *RotationFile) Parse(data []byte) error {
	return yaml.Unmarshal(data, rf)
}
