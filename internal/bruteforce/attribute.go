package bruteforce

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/fixed"
)

// Subject exposes the live readouts of the simulated player that conditions
// and targets are evaluated against.
type Subject interface {
	X() fixed.Fixed
	Y() fixed.Fixed
	Z() fixed.Fixed
	MomX() fixed.Fixed
	MomY() fixed.Fixed
	Speed() fixed.Fixed
	DamageLastTic() fixed.Fixed
	RNGIndex() int
	// LineActivations returns how many times the player has activated the
	// given map line, or false if the line does not exist.
	LineActivations(line int) (int, bool)
}

// Attribute names a numeric readout of the subject.
type Attribute int

const (
	AttrX Attribute = iota
	AttrY
	AttrZ
	AttrMomX
	AttrMomY
	AttrSpeed
	AttrDamage
	AttrRNG
	attributeCount
)

var attributeNames = [attributeCount]string{
	AttrX:      "x",
	AttrY:      "y",
	AttrZ:      "z",
	AttrMomX:   "vx",
	AttrMomY:   "vy",
	AttrSpeed:  "spd",
	AttrDamage: "dmg",
	AttrRNG:    "rng",
}

func (a Attribute) String() string {
	if !a.Valid() {
		return "attribute(" + strconv.Itoa(int(a)) + ")"
	}
	return attributeNames[a]
}

// Valid reports whether a is a known attribute.
func (a Attribute) Valid() bool {
	return a >= 0 && a < attributeCount
}

// FixedPoint reports whether the attribute is held in 16.16 fixed-point.
// Only the RNG index is a plain integer.
func (a Attribute) FixedPoint() bool {
	return a != AttrRNG
}

// ParseAttribute resolves a short attribute name ("x", "spd", "rng", ...).
func ParseAttribute(s string) (Attribute, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range attributeNames {
		if name == s {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
}

// Scale converts a caller-supplied threshold into the attribute's native
// representation.
func (a Attribute) Scale(v int) int64 {
	if a.FixedPoint() {
		return int64(v) << fixed.FracBits
	}
	return int64(v)
}

// Format renders a native attribute value for humans.
func (a Attribute) Format(v int64) string {
	if a.FixedPoint() {
		return fixed.Fixed(v).String()
	}
	return strconv.FormatInt(v, 10)
}

// Value reads the attribute from the subject in its native representation.
func (a Attribute) Value(s Subject) int64 {
	switch a {
	case AttrX:
		return int64(s.X())
	case AttrY:
		return int64(s.Y())
	case AttrZ:
		return int64(s.Z())
	case AttrMomX:
		return int64(s.MomX())
	case AttrMomY:
		return int64(s.MomY())
	case AttrSpeed:
		return int64(s.Speed())
	case AttrDamage:
		return int64(s.DamageLastTic())
	case AttrRNG:
		return int64(s.RNGIndex())
	default:
		return 0
	}
}

// Misc names a predicate keyed to world-geometry counters.
type Misc int

const (
	// MiscLineSkip holds while the line's activation count is unchanged
	// since registration.
	MiscLineSkip Misc = iota
	// MiscLineActivation holds once the line has been activated again.
	MiscLineActivation
	miscCount
)

var miscNames = [miscCount]string{
	MiscLineSkip:       "line skip",
	MiscLineActivation: "line activation",
}

func (m Misc) String() string {
	if m < 0 || m >= miscCount {
		return "misc(" + strconv.Itoa(int(m)) + ")"
	}
	return miscNames[m]
}

// ParseMisc resolves "line skip" / "line activation" (also accepts
// "line_skip" style).
func ParseMisc(s string) (Misc, error) {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	for i, name := range miscNames {
		if name == s {
			return Misc(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMisc, s)
}

// Operator is a numeric comparison, or OpMisc to route to a Misc predicate.
type Operator int

const (
	OpLess Operator = iota
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpMisc
)

var operatorNames = [...]string{
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpMisc:         "misc",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
	return operatorNames[o]
}

// ParseOperator resolves a comparison operator. OpMisc cannot be parsed;
// misc conditions have their own registration path.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for i, name := range operatorNames[:OpMisc] {
		if name == s {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

func (o Operator) compare(value, threshold int64) bool {
	switch o {
	case OpLess:
		return value < threshold
	case OpLessEqual:
		return value <= threshold
	case OpGreater:
		return value > threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// Limit is how a target value is optimized.
type Limit int

const (
	// LimitApproach keeps the value closest to the target value ("acap").
	LimitApproach Limit = iota
	LimitMax
	LimitMin
	limitCount
)

var limitNames = [limitCount]string{
	LimitApproach: "acap",
	LimitMax:      "max",
	LimitMin:      "min",
}

func (l Limit) String() string {
	if l < 0 || l >= limitCount {
		return "limit(" + strconv.Itoa(int(l)) + ")"
	}
	return limitNames[l]
}

// ParseLimit resolves "acap", "max" or "min".
func ParseLimit(s string) (Limit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range limitNames {
		if name == s {
			return Limit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLimit, s)
}
