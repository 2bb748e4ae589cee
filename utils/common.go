package utils

const (
	NODETOL = 1.e-12
)

// Default adaptive quadrature settings shared by the projector and the
// kinematic matrix.
const (
	DefaultQuadOrder = 16
	DefaultRelTol    = 1.e-10
	DefaultAbsTol    = 1.e-14
	DefaultMaxDepth  = 12
	DefaultMaxPanels = 1 << 16
)
