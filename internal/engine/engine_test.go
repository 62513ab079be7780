package engine

import (
	"reflect"
	"testing"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/fixed"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

func newTestWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func script() []ticcmd.Command {
	return []ticcmd.Command{
		{Forward: 50},
		{Forward: 50, Side: 40},
		{Forward: 50, AngleTurn: 2 << 8},
		{Side: -40, AngleTurn: -1 << 8},
		{},
		{Forward: -25},
		{Forward: 127, Side: 127},
		{},
		{},
	}
}

func TestStep_Determinism(t *testing.T) {
	cfg := DefaultConfig(12345)

	run := func() State {
		w := newTestWorld(t, cfg)
		for i := 0; i < 5; i++ {
			for _, cmd := range script() {
				w.Step(cmd)
			}
		}
		return w.State()
	}

	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("Non-deterministic at run %d: first %+v, got %+v", i, first, got)
		}
	}
	if first.Tic != 45 {
		t.Errorf("Expected tic 45, got %d", first.Tic)
	}
}

func TestRestore_Exact(t *testing.T) {
	w := newTestWorld(t, DefaultConfig(777))
	for _, cmd := range script()[:3] {
		w.Step(cmd)
	}

	snap, err := w.CaptureState()
	if err != nil {
		t.Fatalf("CaptureState: %v", err)
	}
	before := w.State()

	for _, cmd := range script() {
		w.Step(cmd)
	}
	after := w.State()

	if err := w.RestoreState(snap); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	if got := w.State(); !reflect.DeepEqual(got, before) {
		t.Fatalf("Restore mismatch: want %+v, got %+v", before, got)
	}

	// replaying from the restored state lands on the same result
	for _, cmd := range script() {
		w.Step(cmd)
	}
	if got := w.State(); !reflect.DeepEqual(got, after) {
		t.Errorf("Replay after restore diverged: want %+v, got %+v", after, got)
	}
}

func TestRestore_RejectsForeignSnapshot(t *testing.T) {
	w := newTestWorld(t, DefaultConfig(1))
	other := newTestWorld(t, Config{Seed: 1})

	snap, err := other.CaptureState()
	if err != nil {
		t.Fatalf("CaptureState: %v", err)
	}
	if err := w.RestoreState(snap); err == nil {
		t.Error("Expected error restoring a snapshot with a different line count")
	}
	if err := w.RestoreState([]byte("garbage")); err == nil {
		t.Error("Expected error restoring garbage")
	}
}

func TestStep_TurnConsumesRandom(t *testing.T) {
	w := newTestWorld(t, Config{Seed: 42})

	tests := []struct {
		name    string
		cmd     ticcmd.Command
		wantRNG int
	}{
		{"no turn", ticcmd.Command{Forward: 50}, 0},
		{"turn left", ticcmd.Command{AngleTurn: 1 << 8}, 1},
		{"turn right", ticcmd.Command{AngleTurn: -1 << 8}, 2},
		{"strafe only", ticcmd.Command{Side: 10}, 2},
	}

	for _, tt := range tests {
		w.Step(tt.cmd)
		if w.RNGIndex() != tt.wantRNG {
			t.Errorf("%s: expected rng index %d, got %d", tt.name, tt.wantRNG, w.RNGIndex())
		}
	}
}

func TestRandom_Wraps(t *testing.T) {
	w := newTestWorld(t, Config{Seed: 9})
	first := make([]int, rngTableSize)
	for i := range first {
		first[i] = w.Random()
	}
	if w.RNGIndex() != 0 {
		t.Fatalf("Expected index to wrap to 0, got %d", w.RNGIndex())
	}
	for i := range first {
		if v := w.Random(); v != first[i] {
			t.Fatalf("Table not periodic at %d: %d vs %d", i, first[i], v)
		}
	}
}

func TestRNGTable_SeedDependent(t *testing.T) {
	if buildRNGTable(1) == buildRNGTable(2) {
		t.Error("Different seeds should produce different tables")
	}
	if buildRNGTable(5) != buildRNGTable(5) {
		t.Error("Same seed should produce the same table")
	}
}

func TestStep_MovementAndFriction(t *testing.T) {
	w := newTestWorld(t, Config{})

	w.Step(ticcmd.Command{Forward: 50})
	// 50*2048 thrust along angle 0, moved then reduced by friction
	wantX := fixed.Fixed(50 * thrustScale)
	if w.X() != wantX {
		t.Errorf("Expected x %v, got %v", wantX, w.X())
	}
	if w.MomX() != fixed.Mul(wantX, Friction) {
		t.Errorf("Expected friction on momentum, got %v", w.MomX())
	}
	if w.Speed() <= 0 {
		t.Error("Expected positive speed")
	}

	for i := 0; i < 200; i++ {
		w.Step(ticcmd.Command{})
	}
	if w.MomX() != 0 || w.MomY() != 0 {
		t.Errorf("Expected idle player to stop, momentum %v,%v", w.MomX(), w.MomY())
	}
}

func TestStep_StrafeRightIsNegativeY(t *testing.T) {
	w := newTestWorld(t, Config{})
	w.Step(ticcmd.Command{Side: 40})
	if w.Y() >= 0 {
		t.Errorf("Expected strafe right at angle 0 to move toward -y, got %v", w.Y())
	}
}

func TestStep_LineActivations(t *testing.T) {
	w := newTestWorld(t, Config{
		Lines: []Line{{X1: 4, Y1: -64, X2: 4, Y2: 64}},
	})

	for i := 0; i < 5; i++ {
		w.Step(ticcmd.Command{Forward: 50})
	}
	n, ok := w.LineActivations(0)
	if !ok || n != 1 {
		t.Fatalf("Expected one activation after crossing, got %d (ok=%v)", n, ok)
	}

	if _, ok := w.LineActivations(1); ok {
		t.Error("Expected unknown line to report false")
	}

	for i := 0; i < 30; i++ {
		w.Step(ticcmd.Command{Forward: -50})
	}
	if n, _ := w.LineActivations(0); n != 2 {
		t.Errorf("Expected crossing back to count again, got %d", n)
	}
}

func TestStep_Hazard(t *testing.T) {
	w := newTestWorld(t, Config{
		Seed:    3,
		Hazards: []Hazard{{X1: -8, Y1: -8, X2: 8, Y2: 8, Damage: 10}},
	})

	w.Step(ticcmd.Command{})
	dmg := w.DamageLastTic().Int()
	if dmg < 10 || dmg > 13 {
		t.Errorf("Expected damage in [10,13], got %d", dmg)
	}
	if w.RNGIndex() != 1 {
		t.Errorf("Expected hazard to draw one random number, got index %d", w.RNGIndex())
	}
	if w.State().Player.Health != startHealth-dmg {
		t.Errorf("Expected health %d, got %d", startHealth-dmg, w.State().Player.Health)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(0), false},
		{"empty", Config{}, false},
		{"spawn too far", Config{Spawn: Spawn{X: mapLimit + 1}}, true},
		{"zero length line", Config{Lines: []Line{{X1: 1, Y1: 1, X2: 1, Y2: 1}}}, true},
		{"negative damage", Config{Hazards: []Hazard{{X2: 1, Y2: 1, Damage: -1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDegreesToAngle(t *testing.T) {
	if degreesToAngle(90) != ang90 {
		t.Errorf("Expected 90 degrees to be ang90, got %#x", degreesToAngle(90))
	}
	if degreesToAngle(-270) != ang90 {
		t.Errorf("Expected -270 degrees to wrap to ang90, got %#x", degreesToAngle(-270))
	}
}

func BenchmarkCaptureRestore(b *testing.B) {
	w, _ := New(DefaultConfig(1))
	for _, cmd := range script() {
		w.Step(cmd)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap, _ := w.CaptureState()
		_ = w.RestoreState(snap)
	}
}
