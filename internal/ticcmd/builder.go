package ticcmd

import (
	"errors"
	"fmt"
)

// Default run speeds used by the build toggles.
const (
	Forward50 = 50
	Strafe50  = 50
)

// ErrAmountOutOfRange is returned when a build amount does not fit the
// command field it targets.
var ErrAmountOutOfRange = errors.New("ticcmd: amount out of range")

// ErrUnknownAction is returned by Apply for an unrecognised build action.
var ErrUnknownAction = errors.New("ticcmd: unknown build action")

var actions = map[string]func(*Builder){
	"forward":           (*Builder).Forward,
	"backward":          (*Builder).Backward,
	"strafe_right":      (*Builder).StrafeRight,
	"strafe_left":       (*Builder).StrafeLeft,
	"fine_forward":      (*Builder).FineForward,
	"fine_backward":     (*Builder).FineBackward,
	"fine_strafe_right": (*Builder).FineStrafeRight,
	"fine_strafe_left":  (*Builder).FineStrafeLeft,
	"turn_left":         (*Builder).TurnLeft,
	"turn_right":        (*Builder).TurnRight,
	"turbo":             (*Builder).ToggleTurbo,
	"use":               (*Builder).ToggleUse,
	"fire":              (*Builder).ToggleFire,
	"reset":             (*Builder).Reset,
}

// Apply runs a named build action, e.g. "forward" or "fine_strafe_left".
func (b *Builder) Apply(action string) error {
	fn, ok := actions[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	fn(b)
	return nil
}

// Builder edits the live command used as the host's input source while
// building by hand. Angle, use and weapon change are one-shot: Read clears
// them after handing the command out.
type Builder struct {
	cmd   Command
	turbo bool
}

// Command returns the command under construction.
func (b *Builder) Command() Command {
	return b.cmd
}

// Reset clears the command.
func (b *Builder) Reset() {
	b.cmd = Command{}
}

// Read returns the current command and clears its one-shot fields.
func (b *Builder) Read() Command {
	cmd := b.cmd

	b.cmd.AngleTurn = 0
	b.cmd.Buttons &^= ButtonUse
	if b.cmd.Buttons&ButtonChange != 0 {
		b.cmd.Buttons &^= ButtonChange | WeaponMask
	}

	return cmd
}

// MF sets forward movement.
func (b *Builder) MF(x int) error {
	if x < 0 || x > 127 {
		return ErrAmountOutOfRange
	}
	b.cmd.Forward = int8(x)
	return nil
}

// MB sets backward movement.
func (b *Builder) MB(x int) error {
	if x < 0 || x > 127 {
		return ErrAmountOutOfRange
	}
	b.cmd.Forward = int8(-x)
	return nil
}

// SR sets rightward strafe.
func (b *Builder) SR(x int) error {
	if x < 0 || x > 127 {
		return ErrAmountOutOfRange
	}
	b.cmd.Side = int8(x)
	return nil
}

// SL sets leftward strafe. SL128 is representable.
func (b *Builder) SL(x int) error {
	if x < 0 || x > 128 {
		return ErrAmountOutOfRange
	}
	b.cmd.Side = int8(-x)
	return nil
}

// TR sets a right turn. TR128 is representable.
func (b *Builder) TR(x int) error {
	if x < 0 || x > 128 {
		return ErrAmountOutOfRange
	}
	b.cmd.AngleTurn = int16(-x << AngleTurnShift)
	return nil
}

// TL sets a left turn.
func (b *Builder) TL(x int) error {
	if x < 0 || x > 127 {
		return ErrAmountOutOfRange
	}
	b.cmd.AngleTurn = int16(x << AngleTurnShift)
	return nil
}

// ToggleUse flips the use button.
func (b *Builder) ToggleUse() {
	b.cmd.Buttons ^= ButtonUse
}

// ToggleFire flips the attack button.
func (b *Builder) ToggleFire() {
	b.cmd.Buttons ^= ButtonAttack
}

// Weapon selects weapon slot 0..8, or cancels a pending change of the same
// slot.
func (b *Builder) Weapon(slot int) {
	w := uint8(slot) << WeaponShift

	if b.cmd.Buttons&ButtonChange != 0 && b.cmd.Buttons&WeaponMask == w {
		b.cmd.Buttons &^= ButtonChange
	} else {
		b.cmd.Buttons |= ButtonChange
	}

	b.cmd.Buttons &^= WeaponMask
	if b.cmd.Buttons&ButtonChange != 0 {
		b.cmd.Buttons |= w
	}
}

// Turbo reports whether turbo amounts are allowed.
func (b *Builder) Turbo() bool {
	return b.turbo
}

// ToggleTurbo switches turbo on or off. Turning it off clamps the current
// movement to run speed.
func (b *Builder) ToggleTurbo() {
	b.turbo = !b.turbo
	if b.turbo {
		return
	}

	if int(b.cmd.Forward) > b.maxForward() {
		b.cmd.Forward = int8(b.maxForward())
	} else if int(b.cmd.Forward) < b.minBackward() {
		b.cmd.Forward = int8(b.minBackward())
	}

	if int(b.cmd.Side) > b.maxStrafeRight() {
		b.cmd.Side = int8(b.maxStrafeRight())
	} else if int(b.cmd.Side) < b.minStrafeLeft() {
		b.cmd.Side = int8(b.minStrafeLeft())
	}
}

// Forward cycles forward movement: 0 -> run -> (turbo) 127 -> 0.
func (b *Builder) Forward() {
	b.cmd.Forward = cycle(b.cmd.Forward, Forward50, 127, b.turbo)
}

// Backward cycles backward movement.
func (b *Builder) Backward() {
	b.cmd.Forward = cycle(b.cmd.Forward, -Forward50, -127, b.turbo)
}

// StrafeRight cycles rightward strafe.
func (b *Builder) StrafeRight() {
	b.cmd.Side = cycle(b.cmd.Side, Strafe50, 127, b.turbo)
}

// StrafeLeft cycles leftward strafe.
func (b *Builder) StrafeLeft() {
	b.cmd.Side = cycle(b.cmd.Side, -Strafe50, -128, b.turbo)
}

// FineForward nudges forward movement by one unit.
func (b *Builder) FineForward() {
	if int(b.cmd.Forward) < b.maxForward() {
		b.cmd.Forward++
	}
}

// FineBackward nudges forward movement by minus one unit.
func (b *Builder) FineBackward() {
	if int(b.cmd.Forward) > b.minBackward() {
		b.cmd.Forward--
	}
}

// FineStrafeRight nudges strafe right by one unit.
func (b *Builder) FineStrafeRight() {
	if int(b.cmd.Side) < b.maxStrafeRight() {
		b.cmd.Side++
	}
}

// FineStrafeLeft nudges strafe left by one unit.
func (b *Builder) FineStrafeLeft() {
	if int(b.cmd.Side) > b.minStrafeLeft() {
		b.cmd.Side--
	}
}

// TurnLeft adds one coarse unit of left turn.
func (b *Builder) TurnLeft() {
	b.cmd.AngleTurn += 1 << AngleTurnShift
}

// TurnRight adds one coarse unit of right turn.
func (b *Builder) TurnRight() {
	b.cmd.AngleTurn -= 1 << AngleTurnShift
}

func cycle(cur int8, run, turbo int, allowTurbo bool) int8 {
	if allowTurbo {
		switch int(cur) {
		case turbo:
			return 0
		case run:
			return int8(turbo)
		default:
			return int8(run)
		}
	}

	if int(cur) == run {
		return 0
	}
	return int8(run)
}

func (b *Builder) maxForward() int {
	if b.turbo {
		return 127
	}
	return Forward50
}

func (b *Builder) minBackward() int {
	if b.turbo {
		return -127
	}
	return -Forward50
}

func (b *Builder) maxStrafeRight() int {
	if b.turbo {
		return 127
	}
	return Strafe50
}

func (b *Builder) minStrafeLeft() int {
	if b.turbo {
		return -128
	}
	return -Strafe50
}
