package engine

import (
	"errors"
	"fmt"
)

// Config describes a reference world. Coordinates are whole map units.
type Config struct {
	Seed    int64    `json:"seed" yaml:"seed"`
	Spawn   Spawn    `json:"spawn" yaml:"spawn"`
	Lines   []Line   `json:"lines,omitempty" yaml:"lines"`
	Hazards []Hazard `json:"hazards,omitempty" yaml:"hazards"`
}

// Spawn is the player's starting position and facing in degrees.
type Spawn struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Z     int `json:"z" yaml:"z"`
	Angle int `json:"angle" yaml:"angle"`
}

// Line is a segment that counts every time the player crosses it.
type Line struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// Hazard is an axis-aligned damaging floor area.
type Hazard struct {
	X1     int `json:"x1" yaml:"x1"`
	Y1     int `json:"y1" yaml:"y1"`
	X2     int `json:"x2" yaml:"x2"`
	Y2     int `json:"y2" yaml:"y2"`
	Damage int `json:"damage" yaml:"damage"`
}

// mapLimit keeps coordinates inside the fixed-point range with headroom for
// the intersection math.
const mapLimit = 16384

// Validate checks that every coordinate is within the map limits.
func (c Config) Validate() error {
	inside := func(vs ...int) bool {
		for _, v := range vs {
			if v < -mapLimit || v > mapLimit {
				return false
			}
		}
		return true
	}

	if !inside(c.Spawn.X, c.Spawn.Y, c.Spawn.Z) {
		return errors.New("engine: spawn outside map limits")
	}
	for i, l := range c.Lines {
		if !inside(l.X1, l.Y1, l.X2, l.Y2) {
			return fmt.Errorf("engine: line %d outside map limits", i)
		}
		if l.X1 == l.X2 && l.Y1 == l.Y2 {
			return fmt.Errorf("engine: line %d has zero length", i)
		}
	}
	for i, h := range c.Hazards {
		if !inside(h.X1, h.Y1, h.X2, h.Y2) {
			return fmt.Errorf("engine: hazard %d outside map limits", i)
		}
		if h.Damage < 0 {
			return fmt.Errorf("engine: hazard %d has negative damage", i)
		}
	}
	return nil
}

// DefaultConfig is a small test map: a corridor running east from the spawn
// with a trigger line across it, a second line behind the spawn and a
// damaging floor strip to the north.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:  seed,
		Spawn: Spawn{X: 0, Y: 0, Angle: 0},
		Lines: []Line{
			{X1: 64, Y1: -128, X2: 64, Y2: 128},
			{X1: -32, Y1: -128, X2: -32, Y2: 128},
			{X1: 256, Y1: -128, X2: 256, Y2: 128},
		},
		Hazards: []Hazard{
			{X1: -256, Y1: 32, X2: 256, Y2: 128, Damage: 5},
		},
	}
}
