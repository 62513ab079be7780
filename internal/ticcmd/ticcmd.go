// Package ticcmd defines the per-tic input command consumed by the
// simulation and its text summary form.
package ticcmd

import (
	"fmt"
	"strings"
)

// Button bits.
const (
	ButtonAttack uint8 = 1 << 0
	ButtonUse    uint8 = 1 << 1
	ButtonChange uint8 = 1 << 2

	WeaponShift       = 3
	WeaponMask  uint8 = 0x07 << WeaponShift
)

// AngleTurnShift converts a coarse turn amount into the command's angleturn
// units.
const AngleTurnShift = 8

// Command is one tic of player input.
type Command struct {
	Forward   int8  `json:"forward"`
	Side      int8  `json:"side"`
	AngleTurn int16 `json:"angle_turn"`
	Buttons   uint8 `json:"buttons,omitempty"`
}

// Turn returns the coarse turn amount (AngleTurn >> 8).
func (c Command) Turn() int {
	return int(c.AngleTurn) >> AngleTurnShift
}

// IsZero reports whether the command carries no input.
func (c Command) IsZero() bool {
	return c == Command{}
}

// String renders the movement part of the command in build notation,
// e.g. "MF50 SR40 TL2". An empty command renders as "WT".
func (c Command) String() string {
	if c.IsZero() {
		return "WT"
	}

	var parts []string

	switch {
	case c.Forward > 0:
		parts = append(parts, fmt.Sprintf("MF%d", c.Forward))
	case c.Forward < 0:
		parts = append(parts, fmt.Sprintf("MB%d", -int(c.Forward)))
	}

	switch {
	case c.Side > 0:
		parts = append(parts, fmt.Sprintf("SR%d", c.Side))
	case c.Side < 0:
		parts = append(parts, fmt.Sprintf("SL%d", -int(c.Side)))
	}

	switch turn := c.Turn(); {
	case turn > 0:
		parts = append(parts, fmt.Sprintf("TL%d", turn))
	case turn < 0:
		parts = append(parts, fmt.Sprintf("TR%d", -turn))
	}

	if c.Buttons&ButtonAttack != 0 {
		parts = append(parts, "F")
	}
	if c.Buttons&ButtonUse != 0 {
		parts = append(parts, "U")
	}
	if c.Buttons&ButtonChange != 0 {
		parts = append(parts, fmt.Sprintf("W%d", (c.Buttons&WeaponMask)>>WeaponShift+1))
	}

	if len(parts) == 0 {
		return "WT"
	}
	return strings.Join(parts, " ")
}

// Strings renders a sequence, one entry per tic.
func Strings(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}
