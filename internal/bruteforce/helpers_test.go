package bruteforce

import (
	"encoding/json"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/fixed"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

// fakeState is a tiny deterministic world: forward moves x, strafe moves y,
// every non-zero turn consumes one RNG call and strafing right activates
// line 0.
type fakeState struct {
	Tic   int
	X     int
	Y     int
	RNG   int
	Lines []int
}

type fakeSim struct {
	st       fakeState
	restores int
}

func newFakeSim() *fakeSim {
	return &fakeSim{st: fakeState{Lines: []int{0, 0}}}
}

func (f *fakeSim) step(cmd ticcmd.Command) {
	f.st.Tic++
	f.st.X += int(cmd.Forward)
	f.st.Y += int(cmd.Side)
	if cmd.Turn() != 0 {
		f.st.RNG++
	}
	if cmd.Side > 0 {
		f.st.Lines[0]++
	}
}

func (f *fakeSim) X() fixed.Fixed             { return fixed.FromInt(f.st.X) }
func (f *fakeSim) Y() fixed.Fixed             { return fixed.FromInt(f.st.Y) }
func (f *fakeSim) Z() fixed.Fixed             { return 0 }
func (f *fakeSim) MomX() fixed.Fixed          { return 0 }
func (f *fakeSim) MomY() fixed.Fixed          { return 0 }
func (f *fakeSim) Speed() fixed.Fixed         { return 0 }
func (f *fakeSim) DamageLastTic() fixed.Fixed { return 0 }
func (f *fakeSim) RNGIndex() int              { return f.st.RNG }
func (f *fakeSim) Tic() int                   { return f.st.Tic }

func (f *fakeSim) LineActivations(line int) (int, bool) {
	if line < 0 || line >= len(f.st.Lines) {
		return 0, false
	}
	return f.st.Lines[line], true
}

func (f *fakeSim) CaptureState() ([]byte, error) {
	return json.Marshal(f.st)
}

func (f *fakeSim) RestoreState(data []byte) error {
	f.restores++
	var st fakeState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	f.st = st
	return nil
}

type fakeHost struct {
	skip     bool
	enters   int
	exits    int
	enqueued [][]ticcmd.Command
}

func (h *fakeHost) EnterSkipMode() { h.skip = true; h.enters++ }
func (h *fakeHost) ExitSkipMode()  { h.skip = false; h.exits++ }

func (h *fakeHost) Enqueue(cmds []ticcmd.Command) {
	h.enqueued = append(h.enqueued, cmds)
}

// run drives the driver the way the host loop does until the session ends
// or maxTics is reached, returning the commands fed to the simulation.
func run(d *Driver, sim *fakeSim, maxTics int) ([]ticcmd.Command, error) {
	var fed []ticcmd.Command
	for i := 0; i < maxTics && d.Active(); i++ {
		cmd, ok, err := d.NextCommand()
		if err != nil {
			return fed, err
		}
		if !ok {
			break
		}
		fed = append(fed, cmd)
		sim.step(cmd)
		d.Evaluate()
	}
	return fed, nil
}
