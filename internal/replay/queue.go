// Package replay feeds a found command sequence back into the simulation and
// decides which input source drives each tic.
package replay

import (
	"github.com/distrubuted-game-mechanic/bruteforce/internal/metrics"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

// SkipExiter is told when the queue runs dry.
type SkipExiter interface {
	ExitSkipMode()
}

// Queue holds a sequence of commands consumed one per tic.
type Queue struct {
	cmds      []ticcmd.Command
	remaining int
	skip      SkipExiter
}

// NewQueue creates an empty queue. skip may be nil.
func NewQueue(skip SkipExiter) *Queue {
	return &Queue{skip: skip}
}

// Enqueue replaces whatever has not been consumed yet with a copy of cmds.
func (q *Queue) Enqueue(cmds []ticcmd.Command) {
	q.cmds = append([]ticcmd.Command(nil), cmds...)
	q.remaining = len(q.cmds)
}

// Pop returns the next command. Taking the last one leaves skip mode.
func (q *Queue) Pop() (ticcmd.Command, bool) {
	if q.remaining == 0 {
		return ticcmd.Command{}, false
	}

	cmd := q.cmds[len(q.cmds)-q.remaining]
	q.remaining--
	metrics.ReplayCommands.Inc()

	if q.remaining == 0 {
		q.cmds = nil
		if q.skip != nil {
			q.skip.ExitSkipMode()
		}
	}
	return cmd, true
}

// Remaining is the number of commands still queued.
func (q *Queue) Remaining() int {
	return q.remaining
}

// Pending returns a copy of the unconsumed commands.
func (q *Queue) Pending() []ticcmd.Command {
	if q.remaining == 0 {
		return nil
	}
	return append([]ticcmd.Command(nil), q.cmds[len(q.cmds)-q.remaining:]...)
}
