package replay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

type skipFlag struct {
	on    bool
	exits int
}

func (s *skipFlag) SkipMode() bool { return s.on }
func (s *skipFlag) ExitSkipMode()  { s.on = false; s.exits++ }

type stubSearch struct {
	active bool
	cmd    ticcmd.Command
	err    error
}

func (s *stubSearch) Active() bool { return s.active }

func (s *stubSearch) NextCommand() (ticcmd.Command, bool, error) {
	if s.err != nil {
		s.active = false
		return ticcmd.Command{}, false, s.err
	}
	return s.cmd, true, nil
}

type stubPending struct{ cmd ticcmd.Command }

func (p stubPending) Next() ticcmd.Command { return p.cmd }

func TestQueue_PopOrderAndSkipExit(t *testing.T) {
	skip := &skipFlag{on: true}
	q := NewQueue(skip)

	seq := []ticcmd.Command{{Forward: 1}, {Forward: 2}, {Forward: 3}}
	q.Enqueue(seq)
	seq[0].Forward = 99
	assert.Equal(t, 3, q.Remaining())

	for i := 1; i <= 3; i++ {
		cmd, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, int8(i), cmd.Forward, "enqueue copies its input")
		if i < 3 {
			assert.True(t, skip.on)
		}
	}

	assert.False(t, skip.on)
	assert.Equal(t, 1, skip.exits)
	assert.Equal(t, 0, q.Remaining())

	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 1, skip.exits, "popping an empty queue does not exit skip mode again")
}

func TestQueue_EnqueueReplaces(t *testing.T) {
	q := NewQueue(nil)
	q.Enqueue([]ticcmd.Command{{Side: 1}, {Side: 2}, {Side: 3}})
	_, _ = q.Pop()

	q.Enqueue([]ticcmd.Command{{Side: -1}})
	assert.Equal(t, []ticcmd.Command{{Side: -1}}, q.Pending())

	cmd, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, int8(-1), cmd.Side)
	assert.Nil(t, q.Pending())
}

func TestSelector_Priority(t *testing.T) {
	skip := &skipFlag{}
	q := NewQueue(skip)
	search := &stubSearch{cmd: ticcmd.Command{Forward: 20}}
	var build ticcmd.Builder
	require.NoError(t, build.MF(30))
	pending := stubPending{cmd: ticcmd.Command{Forward: 40}}

	sel := NewSelector(q, search, &build, pending, skip)

	cmd, src, err := sel.Next()
	require.NoError(t, err)
	assert.Equal(t, SourcePending, src)
	assert.Equal(t, int8(40), cmd.Forward)

	sel.UseBuild(true)
	cmd, src, _ = sel.Next()
	assert.Equal(t, SourceBuild, src)
	assert.Equal(t, int8(30), cmd.Forward)

	skip.on = true
	_, src, _ = sel.Next()
	assert.Equal(t, SourcePending, src, "the build command is ignored in skip mode")

	search.active = true
	cmd, src, _ = sel.Next()
	assert.Equal(t, SourceSearch, src)
	assert.Equal(t, int8(20), cmd.Forward)

	q.Enqueue([]ticcmd.Command{{Forward: 10}})
	cmd, src, _ = sel.Next()
	assert.Equal(t, SourceQueue, src)
	assert.Equal(t, int8(10), cmd.Forward)
	assert.False(t, skip.on, "draining the queue leaves skip mode")
}

func TestSelector_SearchErrorFallsThrough(t *testing.T) {
	var build ticcmd.Builder
	boom := errors.New("restore failed")
	search := &stubSearch{active: true, err: boom}

	sel := NewSelector(NewQueue(nil), search, &build, nil, nil)
	sel.UseBuild(true)
	require.NoError(t, build.SR(10))

	cmd, src, err := sel.Next()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, SourceBuild, src)
	assert.Equal(t, int8(10), cmd.Side)
}

func TestSelector_ClearsOneShotFields(t *testing.T) {
	var build ticcmd.Builder
	require.NoError(t, build.MF(50))
	require.NoError(t, build.TL(3))
	build.ToggleUse()

	sel := NewSelector(NewQueue(nil), nil, &build, nil, nil)
	sel.UseBuild(true)

	cmd, _, _ := sel.Next()
	assert.Equal(t, 3, cmd.Turn())
	assert.NotZero(t, cmd.Buttons&ticcmd.ButtonUse)

	cmd, _, _ = sel.Next()
	assert.Equal(t, int8(50), cmd.Forward, "movement persists")
	assert.Zero(t, cmd.Turn())
	assert.Zero(t, cmd.Buttons&ticcmd.ButtonUse)
}
