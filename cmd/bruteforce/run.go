package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/bruteforce"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/engine"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/host"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/plan"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

type runOptions struct {
	planPath         string
	seed             int64
	compress         bool
	progressInterval uint64
	jsonOut          bool
}

// runResult is what the run command prints.
type runResult struct {
	Outcome   bruteforce.Outcome `json:"outcome"`
	Depth     int                `json:"depth"`
	Explored  uint64             `json:"explored"`
	Volume    uint64             `json:"volume"`
	Seconds   float64            `json:"seconds"`
	Sequence  []string           `json:"sequence,omitempty"`
	Target    string             `json:"target,omitempty"`
	BestValue string             `json:"best_value,omitempty"`
	World     host.WorldState    `json:"world"`
}

func runSearch(ctx context.Context, opts runOptions, out io.Writer, log *logger.Logger) error {
	p, err := plan.Load(opts.planPath)
	if err != nil {
		return err
	}

	worldCfg := engine.DefaultConfig(opts.seed)
	if p.World != nil {
		worldCfg = *p.World
		if opts.seed != 0 {
			worldCfg.Seed = opts.seed
		}
	}
	world, err := engine.New(worldCfg)
	if err != nil {
		return err
	}

	var report *bruteforce.Report
	h, err := host.New(world, log, host.Config{
		ProgressInterval:  opts.progressInterval,
		CompressKeyFrames: opts.compress,
		OnSearchEnd:       func(r bruteforce.Report) { report = &r },
	})
	if err != nil {
		return err
	}

	if err := p.Apply(h.Driver()); err != nil {
		return err
	}
	if err := h.Driver().Start(p.SearchDepth()); err != nil {
		return err
	}

	if _, err := h.RunUntilIdle(ctx, math.MaxInt); err != nil {
		if h.Driver().Active() {
			_ = h.Driver().Abort()
		}
		return err
	}
	if report == nil {
		return fmt.Errorf("search did not finish")
	}

	res := runResult{
		Outcome:   report.Outcome,
		Depth:     report.Depth,
		Explored:  report.Explored,
		Volume:    report.Volume,
		Seconds:   report.Elapsed.Seconds(),
		Sequence:  ticcmd.Strings(report.Sequence),
		Target:    report.Target,
		BestValue: report.BestValue,
		World:     h.State(),
	}
	return printResult(out, res, opts.jsonOut)
}

func printResult(out io.Writer, res runResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "outcome: %s\n", res.Outcome)
	fmt.Fprintf(out, "tested: %d / %d (depth %d) in %.2fs\n", res.Explored, res.Volume, res.Depth, res.Seconds)
	if res.Target != "" && res.Target != "none" {
		fmt.Fprintf(out, "target: %s best %s\n", res.Target, res.BestValue)
	}
	for i, cmd := range res.Sequence {
		fmt.Fprintf(out, "%2d: %s\n", i, cmd)
	}
	fmt.Fprintf(out, "world: tic %d x %s y %s spd %s rng %d\n",
		res.World.Tic, res.World.X, res.World.Y, res.World.Speed, res.World.RNG)
	return nil
}
