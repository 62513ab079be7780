// Package engine is a small deterministic reference world: one player moving
// on a flat plane under fixed-point physics, map lines that count crossings,
// damaging floor areas and a seeded random table.
package engine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/fixed"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

const (
	// Friction is applied to momentum every tic.
	Friction fixed.Fixed = 0xE800
	// StopSpeed is the momentum below which an idle player stops.
	StopSpeed fixed.Fixed = 0x1000
	// MaxMove caps momentum on each axis.
	MaxMove = 30 * fixed.Unit

	thrustScale = 2048
	startHealth = 100
)

// Player is the simulated player's physical state.
type Player struct {
	X, Y, Z    fixed.Fixed
	MomX, MomY fixed.Fixed
	Angle      uint32
	Health     int
}

// State is everything that affects future simulation. CaptureState
// serializes exactly this.
type State struct {
	Tic         int
	Player      Player
	RNG         int
	Damage      fixed.Fixed
	Activations []int
}

// World is the reference simulation.
type World struct {
	cfg   Config
	table [rngTableSize]uint8
	st    State
}

// New creates a world at tic 0 with the player at the spawn point.
func New(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		cfg:   cfg,
		table: buildRNGTable(cfg.Seed),
	}
	w.st = State{
		Player: Player{
			X:      fixed.FromInt(cfg.Spawn.X),
			Y:      fixed.FromInt(cfg.Spawn.Y),
			Z:      fixed.FromInt(cfg.Spawn.Z),
			Angle:  degreesToAngle(cfg.Spawn.Angle),
			Health: startHealth,
		},
		Activations: make([]int, len(cfg.Lines)),
	}
	return w, nil
}

// Config returns the map the world was built from.
func (w *World) Config() Config {
	return w.cfg
}

// Random draws the next value from the random table.
func (w *World) Random() int {
	w.st.RNG = (w.st.RNG + 1) & (rngTableSize - 1)
	return int(w.table[w.st.RNG])
}

// Step advances the world by one tic using cmd.
//
// Order within a tic:
//  1. turn (a non-zero turn draws one random number)
//  2. thrust along the facing and the strafe direction
//  3. move, counting every line the move crosses
//  4. friction, or a full stop when idle and slow
//  5. hazard damage (draws one random number per hazard hit)
func (w *World) Step(cmd ticcmd.Command) {
	st := &w.st
	p := &st.Player

	st.Tic++
	st.Damage = 0

	if cmd.AngleTurn != 0 {
		p.Angle += uint32(int32(cmd.AngleTurn) << angleTurnShift)
		w.Random()
	}

	if cmd.Forward != 0 {
		w.thrust(p.Angle, fixed.Fixed(int32(cmd.Forward)*thrustScale))
	}
	if cmd.Side != 0 {
		w.thrust(p.Angle-ang90, fixed.Fixed(int32(cmd.Side)*thrustScale))
	}

	p.MomX = clamp(p.MomX, -MaxMove, MaxMove)
	p.MomY = clamp(p.MomY, -MaxMove, MaxMove)

	oldX, oldY := p.X, p.Y
	p.X += p.MomX
	p.Y += p.MomY
	w.crossLines(oldX, oldY, p.X, p.Y)

	idle := cmd.Forward == 0 && cmd.Side == 0
	if idle && abs(p.MomX) < StopSpeed && abs(p.MomY) < StopSpeed {
		p.MomX, p.MomY = 0, 0
	} else {
		p.MomX = fixed.Mul(p.MomX, Friction)
		p.MomY = fixed.Mul(p.MomY, Friction)
	}

	w.applyHazards()
}

func (w *World) thrust(angle uint32, move fixed.Fixed) {
	w.st.Player.MomX += fixed.Mul(move, cosine(angle))
	w.st.Player.MomY += fixed.Mul(move, sine(angle))
}

func (w *World) crossLines(x0, y0, x1, y1 fixed.Fixed) {
	if x0 == x1 && y0 == y1 {
		return
	}
	for i, l := range w.cfg.Lines {
		if segmentsCross(
			int64(x0)>>8, int64(y0)>>8, int64(x1)>>8, int64(y1)>>8,
			int64(l.X1)<<8, int64(l.Y1)<<8, int64(l.X2)<<8, int64(l.Y2)<<8,
		) {
			w.st.Activations[i]++
		}
	}
}

func (w *World) applyHazards() {
	x, y := w.st.Player.X.Int(), w.st.Player.Y.Int()
	total := 0
	for _, h := range w.cfg.Hazards {
		if x < min(h.X1, h.X2) || x > max(h.X1, h.X2) || y < min(h.Y1, h.Y2) || y > max(h.Y1, h.Y2) {
			continue
		}
		total += h.Damage + w.Random()&3
	}
	if total == 0 {
		return
	}

	w.st.Damage = fixed.FromInt(total)
	w.st.Player.Health -= total
	if w.st.Player.Health < 0 {
		w.st.Player.Health = 0
	}
}

// segmentsCross reports whether segment p0-p1 properly crosses segment
// q0-q1. The movement start lying exactly on the line does not count, so a
// player standing on a line does not re-trigger it.
func segmentsCross(px0, py0, px1, py1, qx0, qy0, qx1, qy1 int64) bool {
	d0 := orient(qx0, qy0, qx1, qy1, px0, py0)
	d1 := orient(qx0, qy0, qx1, qy1, px1, py1)
	if d0 == 0 || (d0 > 0) == (d1 > 0) && d1 != 0 {
		return false
	}
	e0 := orient(px0, py0, px1, py1, qx0, qy0)
	e1 := orient(px0, py0, px1, py1, qx1, qy1)
	return e0 == 0 || e1 == 0 || (e0 > 0) != (e1 > 0)
}

func orient(ax, ay, bx, by, cx, cy int64) int64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// Tic returns the number of tics simulated.
func (w *World) Tic() int { return w.st.Tic }

func (w *World) X() fixed.Fixed             { return w.st.Player.X }
func (w *World) Y() fixed.Fixed             { return w.st.Player.Y }
func (w *World) Z() fixed.Fixed             { return w.st.Player.Z }
func (w *World) MomX() fixed.Fixed          { return w.st.Player.MomX }
func (w *World) MomY() fixed.Fixed          { return w.st.Player.MomY }
func (w *World) DamageLastTic() fixed.Fixed { return w.st.Damage }
func (w *World) RNGIndex() int              { return w.st.RNG }

// Speed is the magnitude of the player's momentum.
func (w *World) Speed() fixed.Fixed {
	return fixed.Hypot(w.st.Player.MomX, w.st.Player.MomY)
}

// LineActivations returns how many times line has been crossed.
func (w *World) LineActivations(line int) (int, bool) {
	if line < 0 || line >= len(w.st.Activations) {
		return 0, false
	}
	return w.st.Activations[line], true
}

// State returns a copy of the world state.
func (w *World) State() State {
	st := w.st
	st.Activations = append([]int(nil), w.st.Activations...)
	return st
}

// CaptureState serializes the world state.
func (w *World) CaptureState() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w.st); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreState replaces the world state with a previously captured one.
func (w *World) RestoreState(data []byte) error {
	var st State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	if len(st.Activations) != len(w.cfg.Lines) {
		return fmt.Errorf("engine: snapshot has %d lines, world has %d", len(st.Activations), len(w.cfg.Lines))
	}
	w.st = st
	return nil
}

func clamp(v, lo, hi fixed.Fixed) fixed.Fixed {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v fixed.Fixed) fixed.Fixed {
	if v < 0 {
		return -v
	}
	return v
}
