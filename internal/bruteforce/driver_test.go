package bruteforce

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

type harness struct {
	sim     *fakeSim
	host    *fakeHost
	driver  *Driver
	reports []Report
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		sim:  newFakeSim(),
		host: &fakeHost{},
		logs: &bytes.Buffer{},
	}
	cfg.OnEnd = func(r Report) { h.reports = append(h.reports, r) }

	d, err := New(h.sim, h.host, h.host, logger.NewWithOptions(h.logs, "info", logger.FormatJSON), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	h.driver = d
	return h
}

func (h *harness) lastReport(t *testing.T) Report {
	t.Helper()
	require.NotEmpty(t, h.reports)
	return h.reports[len(h.reports)-1]
}

func TestDriver_RNGScenarioSucceeds(t *testing.T) {
	h := newHarness(t, Config{})
	h.sim.st.RNG = 3

	for depth := 0; depth < 2; depth++ {
		require.NoError(t, h.driver.AddFrame(depth, 0, 0, 0, 0, -1, 1))
	}
	require.NoError(t, h.driver.AddCondition(AttrRNG, OpEqual, 5))
	require.NoError(t, h.driver.Start(2))
	assert.True(t, h.host.skip)

	_, err := run(h.driver, h.sim, 100)
	require.NoError(t, err)

	assert.False(t, h.driver.Active())
	assert.True(t, h.driver.Ended())

	report := h.lastReport(t)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	require.Len(t, report.Sequence, 2)
	for _, cmd := range report.Sequence {
		assert.NotZero(t, cmd.Turn(), "both tics must turn to consume two RNG calls")
	}
	assert.Equal(t, [][]ticcmd.Command{report.Sequence}, h.host.enqueued)
	assert.True(t, h.host.skip, "skip mode is left to the replay queue")

	assert.Equal(t, 0, h.sim.st.Tic, "simulation is rewound to the start")
	assert.Equal(t, 3, h.sim.st.RNG)
}

func TestDriver_RNGScenarioExhausts(t *testing.T) {
	h := newHarness(t, Config{})
	h.sim.st.RNG = 3

	for depth := 0; depth < 2; depth++ {
		require.NoError(t, h.driver.AddFrame(depth, 0, 0, 0, 0, -1, 1))
	}
	require.NoError(t, h.driver.AddCondition(AttrRNG, OpEqual, 6))
	require.NoError(t, h.driver.Start(2))

	_, err := run(h.driver, h.sim, 1000)
	require.NoError(t, err)

	report := h.lastReport(t)
	assert.Equal(t, OutcomeExhausted, report.Outcome)
	assert.Equal(t, uint64(9), report.Explored)
	assert.Equal(t, uint64(9), report.Volume)
	assert.Empty(t, report.Sequence)
	assert.Empty(t, h.host.enqueued)
	assert.False(t, h.host.skip)
	assert.Equal(t, 1, h.host.exits)

	assert.Equal(t, fakeState{Lines: []int{0, 0}, RNG: 3}, h.sim.st)
}

func TestDriver_EveryLeafVisitedOnce(t *testing.T) {
	h := newHarness(t, Config{CompressKeyFrames: true})

	require.NoError(t, h.driver.AddFrame(0, 0, 1, -1, 1, 0, 0))
	require.NoError(t, h.driver.AddFrame(1, 0, 0, 0, 1, -1, 0))
	require.NoError(t, h.driver.AddFrame(2, 2, 3, 0, 0, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrX, OpGreater, 1000))
	require.NoError(t, h.driver.Start(3))

	volume := uint64(6 * 4 * 2)
	assert.Equal(t, volume, h.driver.Status().Volume)

	// reconstruct each leaf from the commands fed since the last rewind
	leaves := make(map[string]int)
	var path []ticcmd.Command
	for h.driver.Active() {
		cmd, ok, err := h.driver.NextCommand()
		require.NoError(t, err)
		if !ok {
			break
		}
		frame := h.sim.Tic()
		path = append(path[:frame], cmd)
		h.sim.step(cmd)
		h.driver.Evaluate()
		if len(path) == 3 {
			key := ticcmd.Strings(path)
			leaves[key[0]+"|"+key[1]+"|"+key[2]]++
		}
	}

	assert.Len(t, leaves, int(volume))
	for key, n := range leaves {
		assert.Equal(t, 1, n, "leaf %s", key)
	}
	assert.Equal(t, OutcomeExhausted, h.lastReport(t).Outcome)
	assert.Equal(t, 0, h.sim.st.X)
	assert.Equal(t, 0, h.sim.st.Tic)
}

func TestDriver_SuccessPrecedence(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 1, 0, 2, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrX, OpGreaterEqual, 1))
	require.NoError(t, h.driver.SetTarget(AttrY, LimitMax, 0))
	require.NoError(t, h.driver.Start(1))

	_, err := run(h.driver, h.sim, 100)
	require.NoError(t, err)

	report := h.lastReport(t)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	assert.Equal(t, []ticcmd.Command{{Forward: 1}}, report.Sequence, "the condition wins over the better-scoring target leaf")
	assert.Equal(t, uint64(3), report.Explored)
	assert.True(t, report.TargetEvaluated)
	assert.Equal(t, "2.000", report.BestValue)
}

func TestDriver_TargetBestEffort(t *testing.T) {
	h := newHarness(t, Config{ProgressInterval: 1})

	for depth := 0; depth < 2; depth++ {
		require.NoError(t, h.driver.AddFrame(depth, 0, 0, -1, 1, 0, 0))
	}
	require.NoError(t, h.driver.SetTarget(AttrY, LimitApproach, 0))
	require.NoError(t, h.driver.Start(2))

	_, err := run(h.driver, h.sim, 1000)
	require.NoError(t, err)

	report := h.lastReport(t)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	assert.Equal(t, uint64(9), report.Explored)
	assert.Equal(t, []ticcmd.Command{{Side: -1}, {Side: 1}}, report.Sequence)
	assert.Equal(t, "0.000", report.BestValue)
	assert.Len(t, h.host.enqueued, 1)

	logs := h.logs.String()
	assert.Contains(t, logs, "Set brute force target")
	assert.Contains(t, logs, "New best: y = 0.000")
	assert.Contains(t, logs, "Brute force progress")
	assert.Contains(t, logs, "Testing 9 sequences with depth 2")
	assert.Contains(t, logs, "Brute force complete (SUCCESS)!")
}

func TestDriver_FilterByConditions(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 1, 0, 1, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrX, OpEqual, 0))
	require.NoError(t, h.driver.SetTarget(AttrY, LimitMax, 0))
	require.NoError(t, h.driver.SetFilterByConditions(true))
	require.NoError(t, h.driver.Start(1))

	_, err := run(h.driver, h.sim, 100)
	require.NoError(t, err)

	report := h.lastReport(t)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	assert.Equal(t, uint64(4), report.Explored, "conditions filter instead of ending the search")
	assert.Equal(t, []ticcmd.Command{{Side: 1}}, report.Sequence)
}

func TestDriver_MiscCondition(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 0, -1, 1, 0, 0))
	require.NoError(t, h.driver.AddMiscCondition(MiscLineActivation, 0))
	require.NoError(t, h.driver.Start(1))

	_, err := run(h.driver, h.sim, 100)
	require.NoError(t, err)

	report := h.lastReport(t)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	assert.Equal(t, []ticcmd.Command{{Side: 1}}, report.Sequence)
	assert.Equal(t, 0, h.sim.st.Lines[0], "line counter is rewound with the world")
}

func TestDriver_ConfigErrors(t *testing.T) {
	h := newHarness(t, Config{})
	d := h.driver

	assert.ErrorIs(t, d.Start(0), ErrInvalidDepth)
	assert.ErrorIs(t, d.Start(MaxDepth+1), ErrInvalidDepth)
	assert.ErrorIs(t, d.AddFrame(0, 0, 200, 0, 0, 0, 0), ErrInvalidRange)
	assert.ErrorIs(t, d.AddMiscCondition(MiscLineSkip, 42), ErrUnknownLine)
	assert.ErrorIs(t, d.Abort(), ErrNotActive)

	for i := 0; i < MaxDepth; i++ {
		require.NoError(t, d.AddFrame(i, AxisMin, AxisMax, AxisMin, AxisMax, AxisMin, AxisMax))
	}
	assert.ErrorIs(t, d.Start(MaxDepth), ErrVolumeOverflow)
	assert.False(t, d.Active())
	assert.False(t, h.host.skip)

	require.NoError(t, d.Start(1))
	assert.ErrorIs(t, d.Start(1), ErrSessionActive)
	assert.ErrorIs(t, d.AddFrame(0, 0, 0, 0, 0, 0, 0), ErrSessionActive)
	assert.ErrorIs(t, d.AddCondition(AttrX, OpEqual, 0), ErrSessionActive)
	assert.ErrorIs(t, d.SetTarget(AttrX, LimitMax, 0), ErrSessionActive)
	assert.ErrorIs(t, d.ResetConditions(), ErrSessionActive)
	assert.Equal(t, 1, h.host.enters)
}

func TestDriver_Abort(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 1, 2, 0, 0, 0, 0))
	require.NoError(t, h.driver.AddFrame(1, 1, 2, 0, 0, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrX, OpGreater, 100))
	require.NoError(t, h.driver.Start(2))

	_, err := run(h.driver, h.sim, 3)
	require.NoError(t, err)
	require.True(t, h.driver.Active())
	require.NotZero(t, h.sim.st.X)

	require.NoError(t, h.driver.Abort())
	assert.False(t, h.driver.Active())
	assert.Equal(t, OutcomeAborted, h.lastReport(t).Outcome)
	assert.Equal(t, 0, h.sim.st.X)
	assert.Equal(t, 0, h.sim.st.Tic)
	assert.False(t, h.host.skip)
	assert.Empty(t, h.host.enqueued)

	// a fresh session can start afterwards
	require.NoError(t, h.driver.ResetConditions())
	require.NoError(t, h.driver.Start(2))
	assert.False(t, h.driver.Ended())
	assert.Equal(t, uint64(0), h.driver.Status().Explored)
}

func TestDriver_OutOfStep(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 1, 0, 0, 0, 0))
	require.NoError(t, h.driver.Start(1))

	cmd, ok, err := h.driver.NextCommand()
	require.NoError(t, err)
	require.True(t, ok)

	// the world moves on without the driver evaluating the leaf
	h.sim.step(cmd)
	h.sim.step(cmd)

	_, ok, err = h.driver.NextCommand()
	assert.ErrorIs(t, err, ErrOutOfStep)
	assert.False(t, ok)
	assert.False(t, h.driver.Active())
	assert.Equal(t, OutcomeAborted, h.lastReport(t).Outcome)
	assert.Equal(t, 0, h.sim.st.Tic)
}

func TestDriver_Status(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 10, -5, 5, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrSpeed, OpGreater, 30))
	require.NoError(t, h.driver.SetTarget(AttrX, LimitMax, 0))
	require.NoError(t, h.driver.Start(1))

	st := h.driver.Status()
	assert.True(t, st.Active)
	assert.Equal(t, 1, st.Depth)
	assert.Equal(t, uint64(11*11), st.Volume)
	assert.Equal(t, []string{"spd > 30.000"}, st.Conditions)
	assert.Equal(t, "x max 0.000", st.Target)
	require.Len(t, st.Frames, 1)
	assert.Equal(t, "F 0:10 S -5:5 T 0:0", st.Frames[0].String())
	assert.Nil(t, st.Last)
	assert.Zero(t, st.KeyFrameBytes, "depth 0 is captured on the first pull")

	_, ok, err := h.driver.NextCommand()
	require.NoError(t, err)
	require.True(t, ok)

	st = h.driver.Status()
	assert.Positive(t, st.KeyFrameBytes)
	assert.Equal(t, 1, st.KeyFrameCaptures)
	assert.Zero(t, st.KeyFrameRestores)
}

func TestDriver_ReconfigureRollsBack(t *testing.T) {
	h := newHarness(t, Config{})

	require.NoError(t, h.driver.AddFrame(0, 0, 1, 0, 0, 0, 0))
	require.NoError(t, h.driver.AddCondition(AttrX, OpEqual, 1))

	err := h.driver.Reconfigure(func() error {
		require.NoError(t, h.driver.ResetConditions())
		require.NoError(t, h.driver.AddFrame(0, -9, 9, 0, 0, 0, 0))
		require.NoError(t, h.driver.AddCondition(AttrRNG, OpEqual, 5))
		require.NoError(t, h.driver.SetTarget(AttrY, LimitMin, 0))
		return h.driver.AddCondition(Attribute(99), OpEqual, 1)
	})
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	require.NoError(t, h.driver.Start(1))
	st := h.driver.Status()
	assert.Equal(t, []string{"x == 1.000"}, st.Conditions)
	assert.Equal(t, "none", st.Target)
	assert.Equal(t, uint64(2), st.Volume)
	require.NoError(t, h.driver.Abort())

	require.NoError(t, h.driver.Reconfigure(func() error {
		return h.driver.AddCondition(AttrRNG, OpEqual, 5)
	}))
	assert.Len(t, h.driver.Status().Conditions, 2)
}
