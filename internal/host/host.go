// Package host runs the simulation loop. A single goroutine owns the world,
// the search driver and the replay queue; everything else talks to it by
// sending closures through Do.
package host

import (
	"context"
	"errors"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/bruteforce"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/engine"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/metrics"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/replay"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("host: loop stopped")

// Config tunes the host.
type Config struct {
	ProgressInterval  uint64
	CompressKeyFrames bool
	// OnSearchEnd is called on the loop goroutine when a search finishes.
	OnSearchEnd func(bruteforce.Report)
}

// WorldState is a readout of the world and the loop.
type WorldState struct {
	Tic            int            `json:"tic"`
	X              string         `json:"x"`
	Y              string         `json:"y"`
	Z              string         `json:"z"`
	MomX           string         `json:"vx"`
	MomY           string         `json:"vy"`
	Speed          string         `json:"spd"`
	Damage         string         `json:"dmg"`
	RNG            int            `json:"rng"`
	Health         int            `json:"health"`
	Activations    []int          `json:"line_activations"`
	SkipMode       bool           `json:"skip_mode"`
	Searching      bool           `json:"searching"`
	QueueRemaining int            `json:"queue_remaining"`
	Queued         []string       `json:"queued,omitempty"`
	BuildCommand   string         `json:"build_command"`
	LastSource     replay.Source  `json:"last_source,omitempty"`
	LastCommand    ticcmd.Command `json:"last_command"`
}

// Host owns the simulation and its input sources.
type Host struct {
	world    *engine.World
	driver   *bruteforce.Driver
	queue    *replay.Queue
	selector *replay.Selector
	build    ticcmd.Builder
	log      *logger.Logger

	requests chan func()
	done     chan struct{}

	skip       bool
	advance    int
	lastSource replay.Source
	lastCmd    ticcmd.Command
}

// New wires a host around world.
func New(world *engine.World, log *logger.Logger, cfg Config) (*Host, error) {
	if log == nil {
		log = logger.Nop()
	}

	h := &Host{
		world:    world,
		log:      log,
		requests: make(chan func()),
		done:     make(chan struct{}),
	}
	h.queue = replay.NewQueue(h)

	driver, err := bruteforce.New(world, h, h.queue, log, bruteforce.Config{
		ProgressInterval:  cfg.ProgressInterval,
		CompressKeyFrames: cfg.CompressKeyFrames,
		OnEnd:             cfg.OnSearchEnd,
	})
	if err != nil {
		return nil, err
	}
	h.driver = driver
	h.selector = replay.NewSelector(h.queue, driver, &h.build, nil, h)

	return h, nil
}

// EnterSkipMode makes the loop run tics back-to-back.
func (h *Host) EnterSkipMode() {
	h.skip = true
}

// ExitSkipMode returns the loop to stepping on request.
func (h *Host) ExitSkipMode() {
	h.skip = false
}

// SkipMode reports whether the loop is running tics back-to-back.
func (h *Host) SkipMode() bool {
	return h.skip
}

// The accessors below must only be used on the loop goroutine, i.e. inside
// Do or before Run is started.

func (h *Host) World() *engine.World       { return h.world }
func (h *Host) Driver() *bruteforce.Driver { return h.driver }
func (h *Host) Queue() *replay.Queue       { return h.queue }
func (h *Host) Builder() *ticcmd.Builder   { return &h.build }
func (h *Host) Selector() *replay.Selector { return h.selector }

// Advance schedules n tics to run outside skip mode.
func (h *Host) Advance(n int) {
	if n > 0 {
		h.advance += n
	}
}

// Busy reports whether the loop has tics to run without further requests.
func (h *Host) Busy() bool {
	return h.skip || h.advance > 0
}

// Step runs one tic: pick a command, simulate it, let the search score it.
func (h *Host) Step() {
	stepping := !h.skip

	cmd, src, err := h.selector.Next()
	if err != nil {
		h.log.Error("Search command failed", logger.Err(err))
	}

	h.world.Step(cmd)
	h.driver.Evaluate()

	h.lastSource = src
	h.lastCmd = cmd
	metrics.WorldTics.WithLabelValues(string(src)).Inc()

	if stepping && h.advance > 0 {
		h.advance--
	}
}

// RunUntilIdle steps until the host is no longer busy or maxTics have run.
// It returns the number of tics simulated.
func (h *Host) RunUntilIdle(ctx context.Context, maxTics int) (int, error) {
	n := 0
	for h.Busy() && n < maxTics {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		h.Step()
		n++
	}
	return n, nil
}

// State reads out the world and the loop.
func (h *Host) State() WorldState {
	st := h.world.State()
	return WorldState{
		Tic:            st.Tic,
		X:              st.Player.X.String(),
		Y:              st.Player.Y.String(),
		Z:              st.Player.Z.String(),
		MomX:           st.Player.MomX.String(),
		MomY:           st.Player.MomY.String(),
		Speed:          h.world.Speed().String(),
		Damage:         st.Damage.String(),
		RNG:            st.RNG,
		Health:         st.Player.Health,
		Activations:    st.Activations,
		SkipMode:       h.skip,
		Searching:      h.driver.Active(),
		QueueRemaining: h.queue.Remaining(),
		Queued:         ticcmd.Strings(h.queue.Pending()),
		BuildCommand:   h.build.Command().String(),
		LastSource:     h.lastSource,
		LastCommand:    h.lastCmd,
	}
}

// Run drives the loop until ctx is cancelled. A running search is aborted
// on the way out so the world is left at the search's start.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.shutdown()

	for {
		if h.Busy() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fn := <-h.requests:
				fn()
			default:
				h.Step()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-h.requests:
			fn()
		}
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (h *Host) Do(ctx context.Context, fn func(h *Host) error) error {
	result := make(chan error, 1)
	req := func() {
		result <- fn(h)
	}

	select {
	case h.requests <- req:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) shutdown() {
	if h.driver.Active() {
		if err := h.driver.Abort(); err != nil {
			h.log.Error("Failed to abort search", logger.Err(err))
		}
	}
	if err := h.driver.Close(); err != nil {
		h.log.Error("Failed to close search", logger.Err(err))
	}
}
