package bruteforce

import "errors"

// Configuration errors. Every call that returns one of these leaves the
// driver unchanged.
var (
	ErrInvalidDepth      = errors.New("bruteforce: depth out of range")
	ErrInvalidRange      = errors.New("bruteforce: axis range out of bounds")
	ErrTooManyConditions = errors.New("bruteforce: condition table full")
	ErrUnknownAttribute  = errors.New("bruteforce: unknown attribute")
	ErrUnknownOperator   = errors.New("bruteforce: unknown operator")
	ErrUnknownMisc       = errors.New("bruteforce: unknown misc condition")
	ErrUnknownLimit      = errors.New("bruteforce: unknown target limit")
	ErrUnknownLine       = errors.New("bruteforce: unknown line")
	ErrVolumeOverflow    = errors.New("bruteforce: search space too large")
	ErrSessionActive     = errors.New("bruteforce: a search is already running")
	ErrNotActive         = errors.New("bruteforce: no search is running")
)

// ErrOutOfStep means the simulation tic no longer matches the search frame,
// usually because something other than the driver moved the simulation.
var ErrOutOfStep = errors.New("bruteforce: simulation out of step with search")
