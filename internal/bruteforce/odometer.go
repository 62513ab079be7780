package bruteforce

import (
	"fmt"
	"math/bits"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

// MaxDepth is the deepest search supported.
const MaxDepth = 35

// Axis value bounds; turn is in coarse units before the angleturn shift.
const (
	AxisMin = -128
	AxisMax = 127
)

// Range is one axis of one depth: an inclusive interval and the current
// digit within it.
type Range struct {
	Min     int `json:"min" yaml:"min"`
	Max     int `json:"max" yaml:"max"`
	Current int `json:"current" yaml:"-"`
}

func newRange(lo, hi int) Range {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Min: lo, Max: hi, Current: lo}
}

// advance steps the digit; false means it wrapped back to Min.
func (r *Range) advance() bool {
	r.Current++
	if r.Current > r.Max {
		r.Current = r.Min
		return false
	}
	return true
}

// Cardinality is the number of values in the range.
func (r Range) Cardinality() uint64 {
	return uint64(r.Max - r.Min + 1)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Min, r.Max)
}

func (r Range) valid() bool {
	return r.Min >= AxisMin && r.Max <= AxisMax
}

// Frame is the three axis ranges searched at one depth.
type Frame struct {
	Forward Range `json:"forward" yaml:"forward"`
	Strafe  Range `json:"strafe" yaml:"strafe"`
	Turn    Range `json:"turn" yaml:"turn"`
}

// advance steps turn, carrying into strafe and then forward; false means the
// whole frame wrapped.
func (f *Frame) advance() bool {
	if f.Turn.advance() {
		return true
	}
	if f.Strafe.advance() {
		return true
	}
	return f.Forward.advance()
}

func (f *Frame) rewind() {
	f.Forward.Current = f.Forward.Min
	f.Strafe.Current = f.Strafe.Min
	f.Turn.Current = f.Turn.Min
}

// Cardinality is the number of commands the frame enumerates.
func (f Frame) Cardinality() uint64 {
	return f.Forward.Cardinality() * f.Strafe.Cardinality() * f.Turn.Cardinality()
}

// Command synthesizes the tic command for the frame's current digits.
func (f Frame) Command() ticcmd.Command {
	return ticcmd.Command{
		Forward:   int8(f.Forward.Current),
		Side:      int8(f.Strafe.Current),
		AngleTurn: int16(f.Turn.Current << ticcmd.AngleTurnShift),
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("F %s S %s T %s", f.Forward, f.Strafe, f.Turn)
}

// Odometer is a mixed-radix counter over per-depth frames. Depth 0 is the
// most significant digit, so the deepest depth cycles fastest.
type Odometer struct {
	frames [MaxDepth]Frame
}

// Configure sets the ranges searched at one depth. Inverted pairs are
// reordered; the digits start at each minimum.
func (o *Odometer) Configure(depth, forwardMin, forwardMax, strafeMin, strafeMax, turnMin, turnMax int) error {
	if depth < 0 || depth >= MaxDepth {
		return ErrInvalidDepth
	}

	f := Frame{
		Forward: newRange(forwardMin, forwardMax),
		Strafe:  newRange(strafeMin, strafeMax),
		Turn:    newRange(turnMin, turnMax),
	}
	if !f.Forward.valid() || !f.Strafe.valid() || !f.Turn.valid() {
		return fmt.Errorf("%w: depth %d %s", ErrInvalidRange, depth, f)
	}

	o.frames[depth] = f
	return nil
}

// Frame returns the frame at depth. Unconfigured depths are all zero.
func (o *Odometer) Frame(depth int) Frame {
	return o.frames[depth]
}

// Rewind resets every digit in the first depth frames to its minimum.
func (o *Odometer) Rewind(depth int) {
	for i := 0; i < depth; i++ {
		o.frames[i].rewind()
	}
}

// Advance increments the counter over the first depth frames and returns the
// shallowest depth whose digit changed. ok is false once the carry runs past
// depth 0, at which point every digit is back at its minimum.
func (o *Odometer) Advance(depth int) (pivot int, ok bool) {
	for i := depth - 1; i >= 0; i-- {
		if o.frames[i].advance() {
			return i, true
		}
	}
	return -1, false
}

// Volume is the exact number of leaves in the first depth frames.
func (o *Odometer) Volume(depth int) (uint64, error) {
	if depth <= 0 || depth > MaxDepth {
		return 0, ErrInvalidDepth
	}

	volume := uint64(1)
	for i := 0; i < depth; i++ {
		hi, lo := bits.Mul64(volume, o.frames[i].Cardinality())
		if hi != 0 {
			return 0, ErrVolumeOverflow
		}
		volume = lo
	}
	return volume, nil
}

// Command returns the command for depth's current digits.
func (o *Odometer) Command(depth int) ticcmd.Command {
	return o.frames[depth].Command()
}

// Sequence returns the commands for the first n depths.
func (o *Odometer) Sequence(n int) []ticcmd.Command {
	cmds := make([]ticcmd.Command, n)
	for i := range cmds {
		cmds[i] = o.frames[i].Command()
	}
	return cmds
}
