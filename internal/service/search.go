package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/bruteforce"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/engine"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/host"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/plan"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/store"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

// MaxAdvance bounds a single frame advance request.
const MaxAdvance = 35 * 100

var (
	ErrWorldInPlan = errors.New("service: plan world settings are only read by the offline runner")
	ErrBadAdvance  = errors.New("service: tics out of range")
	ErrSkipping    = errors.New("service: world is replaying or searching")
)

// SearchService runs searches on the host and keeps their records.
type SearchService struct {
	host    *host.Host
	store   store.Store
	log     *logger.Logger
	timeout time.Duration

	// recMu orders the record insert in Start before the update written
	// when that search ends.
	recMu    sync.Mutex
	mu       sync.Mutex
	activeID string
	writes   sync.WaitGroup
}

// NewSearchService builds the host around world and wires its search end
// callback to the service. Call Run to start the host loop.
func NewSearchService(world *engine.World, st store.Store, log *logger.Logger, hc host.Config) (*SearchService, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &SearchService{
		store:   st,
		log:     log,
		timeout: 5 * time.Second,
	}

	onEnd := hc.OnSearchEnd
	hc.OnSearchEnd = func(r bruteforce.Report) {
		s.OnSearchEnd(r)
		if onEnd != nil {
			onEnd(r)
		}
	}

	h, err := host.New(world, log, hc)
	if err != nil {
		return nil, err
	}
	s.host = h
	return s, nil
}

// Run drives the host loop until ctx is cancelled, then waits for pending
// record writes.
func (s *SearchService) Run(ctx context.Context) error {
	err := s.host.Run(ctx)
	s.Wait()
	return err
}

// Start configures the driver from p and starts the search. raw is stored
// with the record when non-nil.
func (s *SearchService) Start(ctx context.Context, p *plan.Plan, raw json.RawMessage) (*types.SearchRecord, error) {
	if p == nil {
		return nil, plan.ErrNoFrames
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.World != nil {
		return nil, ErrWorldInPlan
	}
	if raw == nil {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode plan: %w", err)
		}
		raw = data
	}

	rec := &types.SearchRecord{
		ID:        uuid.New().String(),
		Status:    types.StatusRunning,
		Plan:      raw,
		CreatedAt: time.Now().UTC(),
	}

	s.recMu.Lock()
	defer s.recMu.Unlock()

	err := s.host.Do(ctx, func(h *host.Host) error {
		d := h.Driver()
		if d.Active() {
			return bruteforce.ErrSessionActive
		}
		if h.Busy() {
			return ErrSkipping
		}
		if err := p.Apply(d); err != nil {
			return err
		}

		rec.StartTic = h.World().Tic()
		if err := d.Start(p.SearchDepth()); err != nil {
			return err
		}

		st := d.Status()
		rec.Depth = st.Depth
		rec.Volume = st.Volume
		rec.Target = st.Target
		s.setActive(rec.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateSearch(ctx, rec); err != nil {
		s.log.Error("Failed to store search, aborting", logger.F("search_id", rec.ID), logger.Err(err))
		_ = s.host.Do(context.Background(), func(h *host.Host) error {
			if s.Active() == rec.ID {
				return h.Driver().Abort()
			}
			return nil
		})
		return nil, fmt.Errorf("failed to create search: %w", err)
	}

	s.log.Info("Search started",
		logger.F("search_id", rec.ID),
		logger.F("depth", rec.Depth),
		logger.F("volume", rec.Volume))

	return rec, nil
}

// OnSearchEnd records a finished search. It runs on the host goroutine, so
// the store write is handed to another goroutine.
func (s *SearchService) OnSearchEnd(r bruteforce.Report) {
	id := s.takeActive()
	if id == "" {
		return
	}

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()

		s.recMu.Lock()
		defer s.recMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.finishRecord(ctx, id, r); err != nil {
			s.log.Error("Failed to record search outcome", logger.F("search_id", id), logger.Err(err))
		}
	}()
}

func (s *SearchService) finishRecord(ctx context.Context, id string, r bruteforce.Report) error {
	rec, err := s.store.GetSearch(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.Status = statusOf(r.Outcome)
	rec.Explored = r.Explored
	rec.Sequence = ticcmd.Strings(r.Sequence)
	rec.BestValue = r.BestValue
	rec.ElapsedMs = r.Elapsed.Milliseconds()
	rec.FinishedAt = &now

	return s.store.UpdateSearch(ctx, rec)
}

// Wait blocks until pending record writes are done.
func (s *SearchService) Wait() {
	s.writes.Wait()
}

// Get returns a record. The running search is overlaid with live progress.
func (s *SearchService) Get(ctx context.Context, id string) (*types.SearchRecord, error) {
	rec, err := s.store.GetSearch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status == types.StatusRunning && s.Active() == id {
		err := s.host.Do(ctx, func(h *host.Host) error {
			st := h.Driver().Status()
			if st.Active {
				rec.Explored = st.Explored
				rec.BestValue = st.BestValue
			}
			return nil
		})
		if err != nil {
			s.log.Debug("Live search progress unavailable", logger.F("search_id", id), logger.Err(err))
		}
	}
	return rec, nil
}

// List returns the newest records.
func (s *SearchService) List(ctx context.Context, limit int) ([]*types.SearchRecord, error) {
	return s.store.ListSearches(ctx, limit)
}

// ActiveStatus reads the live driver status.
func (s *SearchService) ActiveStatus(ctx context.Context) (*types.ActiveSearchResponse, error) {
	var resp types.ActiveSearchResponse
	err := s.host.Do(ctx, func(h *host.Host) error {
		st := h.Driver().Status()
		resp = types.ActiveSearchResponse{
			Active:     st.Active,
			Depth:      st.Depth,
			Explored:   st.Explored,
			Volume:     st.Volume,
			Conditions: st.Conditions,
			Target:     st.Target,
			BestValue:  st.BestValue,

			KeyFrameBytes:    st.KeyFrameBytes,
			KeyFrameCaptures: st.KeyFrameCaptures,
			KeyFrameRestores: st.KeyFrameRestores,
		}
		for _, f := range st.Frames {
			resp.Frames = append(resp.Frames, f.String())
		}
		if st.Volume > 0 {
			resp.Progress = float64(st.Explored) / float64(st.Volume)
		}
		if st.Active {
			resp.ID = s.Active()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop aborts the running search with the given id.
func (s *SearchService) Stop(ctx context.Context, id string) (*types.StopSearchResponse, error) {
	if s.Active() != id {
		if _, err := s.store.GetSearch(ctx, id); err != nil {
			return nil, err
		}
		return nil, bruteforce.ErrNotActive
	}

	err := s.host.Do(ctx, func(h *host.Host) error {
		if s.Active() != id {
			return bruteforce.ErrNotActive
		}
		return h.Driver().Abort()
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Search stopped", logger.F("search_id", id))
	return &types.StopSearchResponse{ID: id, Status: types.StatusAborted}, nil
}

// Advance runs tics on the world with the live command and returns the
// resulting state.
func (s *SearchService) Advance(ctx context.Context, tics int) (host.WorldState, error) {
	if tics <= 0 || tics > MaxAdvance {
		return host.WorldState{}, fmt.Errorf("%w: %d", ErrBadAdvance, tics)
	}

	var state host.WorldState
	err := s.host.Do(ctx, func(h *host.Host) error {
		if h.Busy() {
			return ErrSkipping
		}
		h.Advance(tics)
		if _, err := h.RunUntilIdle(ctx, tics); err != nil {
			return err
		}
		state = h.State()
		return nil
	})
	return state, err
}

// SetCommand edits the live build command.
func (s *SearchService) SetCommand(ctx context.Context, req types.CommandRequest) (*types.CommandResponse, error) {
	var resp types.CommandResponse
	err := s.host.Do(ctx, func(h *host.Host) error {
		// edit a copy so a bad amount leaves the live command untouched
		b := *h.Builder()
		if err := applyCommand(&b, req); err != nil {
			return err
		}
		*h.Builder() = b

		if req.UseBuild != nil {
			h.Selector().UseBuild(*req.UseBuild)
		}
		resp = types.CommandResponse{
			Command:  b.Command().String(),
			Turbo:    b.Turbo(),
			UseBuild: h.Selector().UsingBuild(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func applyCommand(b *ticcmd.Builder, req types.CommandRequest) error {
	if req.Reset {
		b.Reset()
	}

	set := []struct {
		v  *int
		fn func(int) error
	}{
		{req.MF, b.MF},
		{req.MB, b.MB},
		{req.SR, b.SR},
		{req.SL, b.SL},
		{req.TR, b.TR},
		{req.TL, b.TL},
	}
	for _, s := range set {
		if s.v == nil {
			continue
		}
		if err := s.fn(*s.v); err != nil {
			return err
		}
	}

	for _, action := range req.Actions {
		if err := b.Apply(action); err != nil {
			return err
		}
	}

	if req.Use {
		b.ToggleUse()
	}
	if req.Fire {
		b.ToggleFire()
	}
	if req.Weapon != nil {
		if *req.Weapon < 0 || *req.Weapon > 8 {
			return ticcmd.ErrAmountOutOfRange
		}
		b.Weapon(*req.Weapon)
	}
	return nil
}

// State reads out the world.
func (s *SearchService) State(ctx context.Context) (host.WorldState, error) {
	var state host.WorldState
	err := s.host.Do(ctx, func(h *host.Host) error {
		state = h.State()
		return nil
	})
	return state, err
}

// Active returns the id of the running search, or "".
func (s *SearchService) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *SearchService) setActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

func (s *SearchService) takeActive() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.activeID
	s.activeID = ""
	return id
}

func statusOf(o bruteforce.Outcome) string {
	switch o {
	case bruteforce.OutcomeSucceeded:
		return types.StatusSucceeded
	case bruteforce.OutcomeExhausted:
		return types.StatusExhausted
	default:
		return types.StatusAborted
	}
}
