package bruteforce

import (
	"errors"
	"fmt"
	"time"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/keyframe"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/metrics"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

// DefaultProgressInterval is how many leaves pass between progress lines.
const DefaultProgressInterval = 10000

// Simulation is everything the driver needs from the host simulation.
type Simulation interface {
	Subject
	keyframe.Capturer
	// Tic is the number of tics simulated so far. Restoring a key frame
	// restores it too.
	Tic() int
}

// SkipMode lets the driver ask the host to run tics back-to-back.
type SkipMode interface {
	EnterSkipMode()
	ExitSkipMode()
}

// ResultSink receives a successful sequence for replay. The sink is
// responsible for leaving skip mode once it has replayed everything.
type ResultSink interface {
	Enqueue(cmds []ticcmd.Command)
}

// Outcome is how a session ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeExhausted
	OutcomeAborted
)

var outcomeNames = [...]string{
	OutcomeNone:      "none",
	OutcomeSucceeded: "succeeded",
	OutcomeExhausted: "exhausted",
	OutcomeAborted:   "aborted",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for i, name := range outcomeNames {
		if name == string(text) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("bruteforce: unknown outcome %q", text)
}

// Config tunes a Driver.
type Config struct {
	// ProgressInterval is the number of leaves between progress log lines.
	// Zero means DefaultProgressInterval.
	ProgressInterval uint64
	// CompressKeyFrames stores key frames zstd-compressed.
	CompressKeyFrames bool
	// OnEnd, if set, is called once per finished session.
	OnEnd func(Report)
}

// Report summarizes a finished session.
type Report struct {
	Outcome         Outcome          `json:"outcome"`
	Depth           int              `json:"depth"`
	Explored        uint64           `json:"explored"`
	Volume          uint64           `json:"volume"`
	Elapsed         time.Duration    `json:"elapsed"`
	Sequence        []ticcmd.Command `json:"sequence,omitempty"`
	Target          string           `json:"target,omitempty"`
	TargetEvaluated bool             `json:"target_evaluated"`
	BestValue       string           `json:"best_value,omitempty"`
}

// Status is a snapshot of the driver.
type Status struct {
	Active     bool     `json:"active"`
	Ended      bool     `json:"ended"`
	Depth      int      `json:"depth"`
	Explored   uint64   `json:"explored"`
	Volume     uint64   `json:"volume"`
	Frames     []Frame  `json:"frames,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	Target     string   `json:"target"`
	BestValue  string   `json:"best_value,omitempty"`
	Last       *Report  `json:"last,omitempty"`

	KeyFrameBytes    int `json:"key_frame_bytes"`
	KeyFrameCaptures int `json:"key_frame_captures"`
	KeyFrameRestores int `json:"key_frame_restores"`
}

// Driver runs one exhaustive search session at a time. It is not safe for
// concurrent use; the host calls NextCommand before and Evaluate after every
// simulated tic from a single goroutine.
type Driver struct {
	sim    Simulation
	skip   SkipMode
	sink   ResultSink
	log    *logger.Logger
	cfg    Config
	frames *keyframe.Store

	odometer           Odometer
	conditions         Conditions
	target             Target
	filterByConditions bool

	active   bool
	ended    bool
	depth    int
	startTic int
	explored uint64
	volume   uint64
	started  time.Time
	last     *Report
}

// New creates an idle driver bound to sim.
func New(sim Simulation, skip SkipMode, sink ResultSink, log *logger.Logger, cfg Config) (*Driver, error) {
	if sim == nil || skip == nil || sink == nil {
		return nil, errors.New("bruteforce: simulation, skip mode and sink are required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}

	var opts []keyframe.Option
	if cfg.CompressKeyFrames {
		opts = append(opts, keyframe.WithCompression())
	}
	frames, err := keyframe.NewStore(sim, MaxDepth, opts...)
	if err != nil {
		return nil, err
	}

	return &Driver{
		sim:    sim,
		skip:   skip,
		sink:   sink,
		log:    log,
		cfg:    cfg,
		frames: frames,
	}, nil
}

// Close releases the key-frame store.
func (d *Driver) Close() error {
	return d.frames.Close()
}

// AddFrame sets the ranges searched at depth.
func (d *Driver) AddFrame(depth, forwardMin, forwardMax, strafeMin, strafeMax, turnMin, turnMax int) error {
	if d.active {
		return ErrSessionActive
	}
	return d.odometer.Configure(depth, forwardMin, forwardMax, strafeMin, strafeMax, turnMin, turnMax)
}

// AddCondition registers a numeric success clause.
func (d *Driver) AddCondition(attr Attribute, op Operator, value int) error {
	if d.active {
		return ErrSessionActive
	}
	c, err := d.conditions.Add(attr, op, value)
	if err != nil {
		return err
	}
	d.log.Info("Added brute force condition", logger.F("condition", c.String()))
	return nil
}

// AddMiscCondition registers a line predicate against the live world.
func (d *Driver) AddMiscCondition(kind Misc, line int) error {
	if d.active {
		return ErrSessionActive
	}
	c, err := d.conditions.AddMisc(d.sim, kind, line)
	if err != nil {
		return err
	}
	d.log.Info("Added brute force condition", logger.F("condition", c.String()))
	return nil
}

// SetTarget enables the numeric objective.
func (d *Driver) SetTarget(attr Attribute, limit Limit, value int) error {
	if d.active {
		return ErrSessionActive
	}
	if err := d.target.Set(d.sim, attr, limit, value); err != nil {
		return err
	}
	d.log.Info("Set brute force target", logger.F("target", d.target.String()))
	return nil
}

// SetFilterByConditions switches conditions from an early-exit test to a
// filter on which leaves are scored against the target.
func (d *Driver) SetFilterByConditions(on bool) error {
	if d.active {
		return ErrSessionActive
	}
	d.filterByConditions = on
	return nil
}

// ResetConditions drops every condition and the target.
func (d *Driver) ResetConditions() error {
	if d.active {
		return ErrSessionActive
	}
	d.conditions.Reset()
	d.target.Reset()
	d.filterByConditions = false
	return nil
}

// Reconfigure runs fn, which edits frames, conditions and the target, and
// puts back the previous configuration if fn fails.
func (d *Driver) Reconfigure(fn func() error) error {
	if d.active {
		return ErrSessionActive
	}

	odometer, conditions, target, filter := d.odometer, d.conditions, d.target, d.filterByConditions
	if err := fn(); err != nil {
		d.odometer, d.conditions, d.target, d.filterByConditions = odometer, conditions, target, filter
		return err
	}
	return nil
}

// Start begins a session over the first depth frames from the simulation's
// current tic.
func (d *Driver) Start(depth int) error {
	if d.active {
		return ErrSessionActive
	}
	if depth <= 0 || depth > MaxDepth {
		return ErrInvalidDepth
	}
	volume, err := d.odometer.Volume(depth)
	if err != nil {
		return err
	}

	d.odometer.Rewind(depth)
	d.frames.Reset()
	d.target.rearm(d.sim)

	d.active = true
	d.ended = false
	d.depth = depth
	d.startTic = d.sim.Tic()
	d.explored = 0
	d.volume = volume
	d.started = time.Now()

	d.skip.EnterSkipMode()

	d.log.Info("Brute force starting", logger.F("depth", depth), logger.F("start_tic", d.startTic))
	for i := 0; i < depth; i++ {
		d.log.Info("Brute force frame", logger.F("index", i), logger.F("ranges", d.odometer.Frame(i).String()))
	}
	d.log.Info(fmt.Sprintf("Testing %d sequences with depth %d", volume, depth))

	metrics.SearchActive.Set(1)
	metrics.SearchVolume.Set(float64(volume))
	metrics.SearchProgress.Set(0)
	return nil
}

// NextCommand is called before every tic while a session is active. ok is
// false when the driver has no command for this tic, either because no
// session is running or because the space ran out here. A non-nil error
// aborts the session.
func (d *Driver) NextCommand() (cmd ticcmd.Command, ok bool, err error) {
	if !d.active {
		return ticcmd.Command{}, false, nil
	}

	frame := d.sim.Tic() - d.startTic
	switch {
	case frame < 0 || frame > d.depth:
		return d.fail(fmt.Errorf("%w: frame %d of depth %d", ErrOutOfStep, frame, d.depth))

	case frame < d.depth:
		if err := d.frames.Capture(frame); err != nil {
			return d.fail(err)
		}
		return d.odometer.Command(frame), true, nil
	}

	if d.explored%d.cfg.ProgressInterval == 0 {
		d.logProgress()
	}

	pivot, more := d.odometer.Advance(d.depth)
	if !more {
		d.finish(OutcomeExhausted, nil)
		return ticcmd.Command{}, false, nil
	}

	if err := d.frames.Restore(pivot); err != nil {
		return d.fail(err)
	}
	metrics.KeyFrameRestores.Inc()
	return d.odometer.Command(pivot), true, nil
}

// Evaluate is called after every tic while a session is active and scores
// the leaf once the full depth has been simulated.
func (d *Driver) Evaluate() {
	if !d.active || d.sim.Tic()-d.startTic != d.depth {
		return
	}

	metrics.SearchLeaves.Inc()

	seq := d.odometer.Sequence(d.depth)
	if d.conditionsMet() {
		d.finish(OutcomeSucceeded, seq)
		return
	}
	d.explored++

	if d.target.Enabled && (!d.filterByConditions || d.conditions.Evaluate(d.sim)) {
		if d.target.Score(d.sim, seq) {
			d.logBest()
		}
	}

	if d.explored == d.volume {
		if d.target.Enabled && d.target.Evaluated {
			d.finish(OutcomeSucceeded, d.target.BestSequence)
			return
		}
		d.finish(OutcomeExhausted, nil)
	}
}

// Abort cancels the running session and rewinds to its start.
func (d *Driver) Abort() error {
	if !d.active {
		return ErrNotActive
	}
	d.finish(OutcomeAborted, nil)
	return nil
}

// Active reports whether a session is running.
func (d *Driver) Active() bool {
	return d.active
}

// Ended reports whether a session has finished since the last Start.
func (d *Driver) Ended() bool {
	return d.ended
}

// Status returns a snapshot of the driver.
func (d *Driver) Status() Status {
	st := Status{
		Active:   d.active,
		Ended:    d.ended,
		Depth:    d.depth,
		Explored: d.explored,
		Volume:   d.volume,
		Target:   d.target.String(),
		Last:     d.last,

		KeyFrameBytes: d.frames.Size(),
	}
	st.KeyFrameCaptures, st.KeyFrameRestores = d.frames.Stats()
	for i := 0; i < d.depth; i++ {
		st.Frames = append(st.Frames, d.odometer.Frame(i))
	}
	for _, c := range d.conditions.All() {
		st.Conditions = append(st.Conditions, c.String())
	}
	if d.target.Enabled && d.target.Evaluated {
		st.BestValue = d.target.Attribute.Format(d.target.BestValue)
	}
	return st
}

func (d *Driver) conditionsMet() bool {
	if d.target.Enabled && (d.filterByConditions || d.conditions.Len() == 0) {
		return false
	}
	return d.conditions.Evaluate(d.sim)
}

func (d *Driver) fail(err error) (ticcmd.Command, bool, error) {
	d.log.Error("Brute force aborted", logger.Err(err))
	d.finish(OutcomeAborted, nil)
	return ticcmd.Command{}, false, err
}

func (d *Driver) finish(outcome Outcome, seq []ticcmd.Command) {
	if d.frames.Has(0) {
		if err := d.frames.Restore(0); err != nil {
			d.log.Error("Failed to restore start frame", logger.Err(err))
		}
	}
	d.frames.Reset()
	d.active = false
	d.ended = true

	elapsed := time.Since(d.started)
	report := Report{
		Outcome:         outcome,
		Depth:           d.depth,
		Explored:        d.explored,
		Volume:          d.volume,
		Elapsed:         elapsed,
		Target:          d.target.String(),
		TargetEvaluated: d.target.Evaluated,
	}
	if d.target.Enabled && d.target.Evaluated {
		report.BestValue = d.target.Attribute.Format(d.target.BestValue)
	}

	result := "FAILURE"
	if outcome == OutcomeSucceeded {
		result = "SUCCESS"
		report.Sequence = append([]ticcmd.Command(nil), seq...)
		d.sink.Enqueue(report.Sequence)
	} else {
		d.skip.ExitSkipMode()
	}

	d.log.Info(fmt.Sprintf("Brute force complete (%s)!", result),
		logger.F("outcome", outcome.String()),
		logger.F("tested", d.explored),
		logger.F("percent", fmt.Sprintf("%.2f", d.percent())),
		logger.F("seconds", fmt.Sprintf("%.2f", elapsed.Seconds())),
	)
	if outcome == OutcomeSucceeded {
		for i, cmd := range report.Sequence {
			d.log.Info("Brute force result", logger.F("tic", i), logger.F("command", cmd.String()))
		}
	}

	metrics.SearchActive.Set(0)
	metrics.SearchProgress.Set(d.percent() / 100)
	metrics.SearchSessions.WithLabelValues(outcome.String()).Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())

	d.last = &report
	if d.cfg.OnEnd != nil {
		d.cfg.OnEnd(report)
	}
}

func (d *Driver) logProgress() {
	percent := d.percent()
	metrics.SearchProgress.Set(percent / 100)
	d.log.Info("Brute force progress",
		logger.F("tested", d.explored),
		logger.F("volume", d.volume),
		logger.F("percent", fmt.Sprintf("%.2f", percent)),
	)
}

func (d *Driver) logBest() {
	d.log.Info(fmt.Sprintf("New best: %s = %s", d.target.Attribute, d.target.Attribute.Format(d.target.BestValue)))
	for i, cmd := range d.target.BestSequence {
		d.log.Info("New best command", logger.F("tic", i), logger.F("command", cmd.String()))
	}
}

func (d *Driver) percent() float64 {
	if d.volume == 0 {
		return 0
	}
	return float64(d.explored) * 100 / float64(d.volume)
}
