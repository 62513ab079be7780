package replay

import (
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

// Source names where a tic's command came from.
type Source string

const (
	SourceQueue   Source = "replay"
	SourceSearch  Source = "search"
	SourceBuild   Source = "build"
	SourcePending Source = "pending"
)

// Search is the active search session, if any.
type Search interface {
	Active() bool
	NextCommand() (ticcmd.Command, bool, error)
}

// Pending is the fallback input source (player input or a demo).
type Pending interface {
	Next() ticcmd.Command
}

// SkipState reports whether the host is currently in skip mode.
type SkipState interface {
	SkipMode() bool
}

// Selector picks each tic's command in priority order: replay queue, active
// search, the hand-built command, then the pending source.
type Selector struct {
	queue   *Queue
	search  Search
	build   *ticcmd.Builder
	pending Pending
	skip    SkipState

	useBuild bool
}

// NewSelector wires the input sources. search, pending and skip may be nil.
func NewSelector(queue *Queue, search Search, build *ticcmd.Builder, pending Pending, skip SkipState) *Selector {
	return &Selector{
		queue:   queue,
		search:  search,
		build:   build,
		pending: pending,
		skip:    skip,
	}
}

// UseBuild makes the hand-built command replace the pending source.
func (s *Selector) UseBuild(on bool) {
	s.useBuild = on
}

// UsingBuild reports whether the hand-built command replaces the pending
// source.
func (s *Selector) UsingBuild() bool {
	return s.useBuild
}

// Next returns the command for the coming tic. The builder's one-shot fields
// are cleared on every call whichever source wins. A search error has
// already ended the search; the tic falls through to the next source.
func (s *Selector) Next() (ticcmd.Command, Source, error) {
	cmd, src, err := s.pick()
	s.build.Read()
	return cmd, src, err
}

func (s *Selector) pick() (ticcmd.Command, Source, error) {
	if cmd, ok := s.queue.Pop(); ok {
		return cmd, SourceQueue, nil
	}

	var searchErr error
	if s.search != nil && s.search.Active() {
		cmd, ok, err := s.search.NextCommand()
		if ok {
			return cmd, SourceSearch, nil
		}
		searchErr = err
	}

	if s.useBuild && (s.skip == nil || !s.skip.SkipMode()) {
		return s.build.Command(), SourceBuild, searchErr
	}

	if s.pending != nil {
		return s.pending.Next(), SourcePending, searchErr
	}
	return ticcmd.Command{}, SourcePending, searchErr
}
