package types

import (
	"fmt"
)

// IndexError reports a basis or angular index outside its declared range.
type IndexError struct {
	What   string // "n", "l", "m", ...
	Index  int
	Lo, Hi int // valid range is [Lo, Hi]
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: %s = %d outside [%d, %d]",
		e.What, e.Index, e.Lo, e.Hi)
}

func NewIndexError(what string, index, lo, hi int) *IndexError {
	return &IndexError{What: what, Index: index, Lo: lo, Hi: hi}
}

// ConfigurationError reports objects that cannot be combined, or parameters
// that are out of range for the requested computation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ConvergenceWarning is returned together with a best-effort value when an
// adaptive quadrature runs out of budget. The value is usable, but the caller
// decides whether to accept it.
type ConvergenceWarning struct {
	Stage    string
	Panels   int     // number of panels that did not meet tolerance
	Budget   int     // panel budget that was exhausted
	MaxError float64 // largest error estimate among those panels
}

func (e *ConvergenceWarning) Error() string {
	return fmt.Sprintf("convergence warning: %s: %d panel(s) above tolerance "+
		"after budget %d, max error estimate %.3e",
		e.Stage, e.Panels, e.Budget, e.MaxError)
}

// SerializationError reports malformed persisted coefficient data. Line is
// 1-based.
type SerializationError struct {
	Line   int
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: line %d: %s", e.Line, e.Reason)
}
